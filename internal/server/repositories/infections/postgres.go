package infections

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/dbx"
	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository reads infections over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListRecent(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.InfectionEvent, error) {
	query := `
		SELECT id, user_id, recorded_at
		FROM infections
		WHERE user_id = $1 AND recorded_at BETWEEN $2 AND $3
		ORDER BY recorded_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.InfectionEvent
	for rows.Next() {
		var ev models.InfectionEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
