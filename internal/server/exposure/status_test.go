package exposure

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func contact(contacted uuid.UUID, at time.Time) models.CloseContact {
	return models.CloseContact{ID: uuid.New(), InfectedUserID: uuid.New(), ContactedUserID: contacted, ContactTimestamp: at}
}

func TestResolveStatus(t *testing.T) {
	user := uuid.New()

	tests := []struct {
		name       string
		infections []models.InfectionEvent
		contacts   []models.CloseContact
		want       Status
	}{
		{"nothing", nil, nil, StatusNegative},
		{"recent infection", []models.InfectionEvent{infection(user, daysAgo(3))}, nil, StatusPositive},
		{"infection beats newer contact",
			[]models.InfectionEvent{infection(user, daysAgo(3))},
			[]models.CloseContact{contact(user, daysAgo(1))}, StatusPositive},
		{"recent contact", nil, []models.CloseContact{contact(user, daysAgo(1))}, StatusClose},
		{"old infection, recent contact",
			[]models.InfectionEvent{infection(user, daysAgo(20))},
			[]models.CloseContact{contact(user, daysAgo(14))}, StatusClose},
		{"old contact", nil, []models.CloseContact{contact(user, daysAgo(16))}, StatusNegative},
		{"contact of someone else", nil, []models.CloseContact{contact(uuid.New(), daysAgo(1))}, StatusNegative},
		{"infection of someone else", []models.InfectionEvent{infection(uuid.New(), daysAgo(1))}, nil, StatusNegative},
		{"exactly at lookback edge", []models.InfectionEvent{infection(user, now.Add(-Lookback))}, nil, StatusPositive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStatus(user, tt.infections, tt.contacts, now))
		})
	}
}

func TestResolveStatus_ReporterIsNotClose(t *testing.T) {
	user := uuid.New()
	c := contact(uuid.New(), daysAgo(1))
	c.InfectedUserID = user

	assert.Equal(t, StatusNegative, ResolveStatus(user, nil, []models.CloseContact{c}, now))
}
