package exposure

import (
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

// Status is a user's exposure classification.
type Status string

const (
	StatusPositive Status = "positive"
	StatusClose    Status = "close"
	StatusNegative Status = "negative"
)

// ResolveStatus classifies user. A recent infection wins over a recent
// contact regardless of which is newer.
func ResolveStatus(user uuid.UUID, infections []models.InfectionEvent, contacts []models.CloseContact, now time.Time) Status {
	if _, ok := latestInfection(user, infections, now); ok {
		return StatusPositive
	}
	for _, c := range contacts {
		if c.ContactedUserID == user && within(c.ContactTimestamp, now) {
			return StatusClose
		}
	}
	return StatusNegative
}
