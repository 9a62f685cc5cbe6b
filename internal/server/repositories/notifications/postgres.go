package notifications

import (
	"context"
	"fmt"

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

func (r *PostgresRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]models.NotificationRequirement, error) {
	query := `
		SELECT n.id, n.infection_id, n.start_date, n.due_date, n.uploaded_status
		FROM notifications n
		JOIN infections i ON i.id = n.infection_id
		WHERE i.user_id = $1 AND n.uploaded_status = false
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.NotificationRequirement
	for rows.Next() {
		var n models.NotificationRequirement
		if err := rows.Scan(&n.ID, &n.InfectionID, &n.StartDate, &n.DueDate, &n.Uploaded); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// MarkUploaded flips uploaded_status only while it is still false.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE notifications
		SET uploaded_status = true, uploaded_at = now()
		WHERE id = $1 AND uploaded_status = false
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := dbx.RowsAffected(res)
	if err != nil {
		return false, err
	}
	switch n {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("unexpected rows affected: %d", n)
	}
}
