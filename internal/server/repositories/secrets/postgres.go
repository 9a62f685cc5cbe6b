package secrets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/dmitrijs2005/tracekeeper/internal/dbx"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Read(ctx context.Context, path string) (map[string]string, error) {
	query := `
		SELECT data
		FROM secrets
		WHERE path = $1
	`
	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, path).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	data := map[string]string{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode secret %q: %w", path, err)
	}
	return data, nil
}

// Write upserts; concurrent writers to one path resolve as last write wins.
func (r *PostgresRepository) Write(ctx context.Context, path string, data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode secret %q: %w", path, err)
	}

	query := `
		INSERT INTO secrets (path, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (path)
		DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, path, string(raw)); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
