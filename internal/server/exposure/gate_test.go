package exposure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 14, 30, 0, 0, time.UTC)

func daysAgo(n int) time.Time { return now.Add(-time.Duration(n) * 24 * time.Hour) }

func date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func infection(user uuid.UUID, at time.Time) models.InfectionEvent {
	return models.InfectionEvent{ID: uuid.New(), UserID: user, RecordedAt: at}
}

func notification(inf models.InfectionEvent, start, due time.Time) models.NotificationRequirement {
	return models.NotificationRequirement{ID: uuid.New(), InfectionID: inf.ID, StartDate: date(start), DueDate: date(due)}
}

func TestAuthorizeUpload_PicksMostRecentInfection(t *testing.T) {
	user := uuid.New()
	old := infection(user, daysAgo(20))
	recent := infection(user, daysAgo(5))
	oldN := notification(old, daysAgo(20), now.Add(48*time.Hour))
	recentN := notification(recent, daysAgo(5), now.Add(24*time.Hour))

	auth, err := AuthorizeUpload(user,
		[]models.InfectionEvent{old, recent},
		[]models.NotificationRequirement{oldN, recentN},
		now)
	require.NoError(t, err)
	assert.Equal(t, recent.ID, auth.InfectionID)
	assert.Equal(t, recentN.ID, auth.NotificationID)
	assert.Equal(t, user, auth.UserID)
}

func TestAuthorizeUpload_LatestDueDateWins(t *testing.T) {
	user := uuid.New()
	inf := infection(user, daysAgo(3))
	early := notification(inf, daysAgo(3), now)
	late := notification(inf, daysAgo(3), now.Add(72*time.Hour))
	spent := notification(inf, daysAgo(3), now.Add(240*time.Hour))
	spent.Uploaded = true

	auth, err := AuthorizeUpload(user, []models.InfectionEvent{inf},
		[]models.NotificationRequirement{early, spent, late}, now)
	require.NoError(t, err)
	assert.Equal(t, late.ID, auth.NotificationID)
}

func TestAuthorizeUpload_Rejections(t *testing.T) {
	user := uuid.New()
	inf := infection(user, daysAgo(5))

	spent := notification(inf, daysAgo(5), now.Add(24*time.Hour))
	spent.Uploaded = true

	tests := []struct {
		name          string
		infections    []models.InfectionEvent
		notifications []models.NotificationRequirement
		want          error
	}{
		{"no infections", nil, nil, common.ErrNoRecentInfection},
		{"only old infection", []models.InfectionEvent{infection(user, daysAgo(16))}, nil, common.ErrNoRecentInfection},
		{"infection of someone else", []models.InfectionEvent{infection(uuid.New(), daysAgo(1))}, nil, common.ErrNoRecentInfection},
		{"future infection", []models.InfectionEvent{infection(user, now.Add(time.Hour))}, nil, common.ErrNoRecentInfection},
		{"no notification", []models.InfectionEvent{inf}, nil, common.ErrNoPendingNotification},
		{"already uploaded", []models.InfectionEvent{inf}, []models.NotificationRequirement{spent}, common.ErrNoPendingNotification},
		{"notification of another infection", []models.InfectionEvent{inf},
			[]models.NotificationRequirement{notification(infection(user, daysAgo(30)), daysAgo(30), now)}, common.ErrNoPendingNotification},
		{"due yesterday", []models.InfectionEvent{inf},
			[]models.NotificationRequirement{notification(inf, daysAgo(5), daysAgo(1))}, common.ErrNotificationExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth, err := AuthorizeUpload(user, tt.infections, tt.notifications, now)
			assert.Nil(t, auth)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, common.IsPolicyError(err))
		})
	}
}

func TestAuthorizeUpload_DueTodayIsAllowed(t *testing.T) {
	user := uuid.New()
	inf := infection(user, daysAgo(2))
	n := notification(inf, daysAgo(2), now)

	late := time.Date(2026, 10, 17, 23, 59, 0, 0, time.UTC)
	auth, err := AuthorizeUpload(user, []models.InfectionEvent{inf}, []models.NotificationRequirement{n}, late)
	require.NoError(t, err)
	assert.Equal(t, n.ID, auth.NotificationID)
}

func TestAuthorizeUpload_DateComparedInCallerZone(t *testing.T) {
	user := uuid.New()
	inf := infection(user, daysAgo(2))
	n := notification(inf, daysAgo(2), now) // due 2026-10-17

	loc := time.FixedZone("UTC-8", -8*60*60)
	localNow := time.Date(2026, 10, 17, 1, 0, 0, 0, loc)

	_, err := AuthorizeUpload(user, []models.InfectionEvent{inf}, []models.NotificationRequirement{n}, localNow)
	require.NoError(t, err)
}

type fakeCommitter struct {
	calls int
	got   []models.CloseContact
	err   error
}

func (f *fakeCommitter) CommitUpload(_ context.Context, _ *Authorization, contacts []models.CloseContact) (int, error) {
	f.calls++
	f.got = contacts
	if f.err != nil {
		return 0, f.err
	}
	return len(contacts), nil
}

func TestCompleteUpload(t *testing.T) {
	auth := &Authorization{UserID: uuid.New(), InfectionID: uuid.New(), NotificationID: uuid.New()}

	t.Run("no contacts", func(t *testing.T) {
		c := &fakeCommitter{}
		n, err := CompleteUpload(context.Background(), c, auth, nil)
		assert.ErrorIs(t, err, common.ErrNoValidContacts)
		assert.Zero(t, n)
		assert.Zero(t, c.calls, "notification must not be spent")
	})

	t.Run("commits", func(t *testing.T) {
		c := &fakeCommitter{}
		contacts := []models.CloseContact{{ContactedUserID: uuid.New()}, {ContactedUserID: uuid.New()}}
		n, err := CompleteUpload(context.Background(), c, auth, contacts)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, 1, c.calls)
		assert.Equal(t, contacts, c.got)
	})

	t.Run("commit error", func(t *testing.T) {
		c := &fakeCommitter{err: errors.New("tx aborted")}
		_, err := CompleteUpload(context.Background(), c, auth, []models.CloseContact{{}})
		assert.EqualError(t, err, "tx aborted")
	})
}
