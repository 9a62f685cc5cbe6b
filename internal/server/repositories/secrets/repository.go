// Package secrets stores key/value secret documents in PostgreSQL. It backs
// the secret store when no external secret manager is configured.
package secrets

import "context"

type Repository interface {
	// Read returns the document at path or common.ErrorNotFound.
	Read(ctx context.Context, path string) (map[string]string, error)
	// Write creates or replaces the document at path.
	Write(ctx context.Context, path string, data map[string]string) error
}
