// Package notifications declares and implements storage for notification
// requirements, the obligations that gate contact uploads.
package notifications

import (
	"context"

	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	// ListPendingForUser returns the not yet uploaded notifications attached
	// to any infection of userID.
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.NotificationRequirement, error)

	// MarkUploaded spends the notification. It reports false when the
	// notification does not exist or was already spent.
	MarkUploaded(ctx context.Context, id uuid.UUID) (bool, error)
}
