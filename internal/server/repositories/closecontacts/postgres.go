package closecontacts

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/dbx"
	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateBatch inserts contacts one by one. It is meant to run inside a
// transaction; on error the caller rolls back.
func (r *PostgresRepository) CreateBatch(ctx context.Context, contacts []models.CloseContact) (int, error) {
	query := `
		INSERT INTO close_contacts (id, infected_user_id, contacted_user_id, infection_id, contact_timestamp, signal_strength)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (infection_id, contacted_user_id, contact_timestamp) DO NOTHING
	`
	inserted := 0
	for _, c := range contacts {
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		res, err := r.db.ExecContext(ctx, query,
			id, c.InfectedUserID, c.ContactedUserID, c.InfectionID, c.ContactTimestamp, c.SignalStrength)
		if err != nil {
			return inserted, fmt.Errorf("error performing sql request: %w", err)
		}
		n, err := dbx.RowsAffected(res)
		if err != nil {
			return inserted, err
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (r *PostgresRepository) ListRecentForContacted(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.CloseContact, error) {
	query := `
		SELECT id, infected_user_id, contacted_user_id, infection_id, contact_timestamp, signal_strength
		FROM close_contacts
		WHERE contacted_user_id = $1 AND contact_timestamp BETWEEN $2 AND $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.CloseContact
	for rows.Next() {
		var c models.CloseContact
		if err := rows.Scan(&c.ID, &c.InfectedUserID, &c.ContactedUserID, &c.InfectionID, &c.ContactTimestamp, &c.SignalStrength); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
