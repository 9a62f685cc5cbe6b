// Package closecontacts declares and implements storage for validated close
// contact records.
package closecontacts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	// CreateBatch stores contacts and returns how many rows were new.
	// Re-inserting a contact already stored for the same infection is a no-op.
	CreateBatch(ctx context.Context, contacts []models.CloseContact) (int, error)

	// ListRecentForContacted returns contacts where userID is the contacted
	// party and the contact happened in [from, to].
	ListRecentForContacted(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.CloseContact, error)
}
