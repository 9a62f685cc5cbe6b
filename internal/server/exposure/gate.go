package exposure

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

// Authorization permits one contact upload. It is bound to the notification
// requirement it will spend and to the infection event the contacts will be
// attached to.
type Authorization struct {
	UserID         uuid.UUID
	InfectionID    uuid.UUID
	NotificationID uuid.UUID
}

// UploadCommitter persists validated contacts and spends the bound
// notification as one atomic step. It must fail with
// common.ErrNoPendingNotification, committing nothing, if the notification
// was already spent.
type UploadCommitter interface {
	CommitUpload(ctx context.Context, auth *Authorization, contacts []models.CloseContact) (int, error)
}

// AuthorizeUpload decides whether user may disclose contacts now.
//
// The user's most recent infection within Lookback is selected, then the
// pending notification of that infection with the latest due date. A due
// date before today (in now's location) is expired.
func AuthorizeUpload(user uuid.UUID, infections []models.InfectionEvent, notifications []models.NotificationRequirement, now time.Time) (*Authorization, error) {
	infection, ok := latestInfection(user, infections, now)
	if !ok {
		return nil, common.ErrNoRecentInfection
	}

	var (
		pending models.NotificationRequirement
		found   bool
	)
	for _, n := range notifications {
		if n.InfectionID != infection.ID || n.Uploaded {
			continue
		}
		if !found || n.DueDate.After(pending.DueDate) {
			pending, found = n, true
		}
	}
	if !found {
		return nil, common.ErrNoPendingNotification
	}

	loc := now.Location()
	if day(pending.DueDate, loc).Before(day(now, loc)) {
		return nil, common.ErrNotificationExpired
	}

	return &Authorization{
		UserID:         user,
		InfectionID:    infection.ID,
		NotificationID: pending.ID,
	}, nil
}

// CompleteUpload stores contacts under auth. An empty contact list is
// rejected with common.ErrNoValidContacts and leaves the notification
// unspent so the user can retry.
func CompleteUpload(ctx context.Context, c UploadCommitter, auth *Authorization, contacts []models.CloseContact) (int, error) {
	if len(contacts) == 0 {
		return 0, common.ErrNoValidContacts
	}
	return c.CommitUpload(ctx, auth, contacts)
}
