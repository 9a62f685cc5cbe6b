// Package infections declares and implements read access to recorded
// infection events.
package infections

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

type Repository interface {
	// ListRecent returns the infections of userID recorded in [from, to],
	// newest first.
	ListRecent(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.InfectionEvent, error)
}
