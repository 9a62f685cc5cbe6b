// Package secretstore obtains the long-lived temporary-id key from a secret
// backend, provisioning a fresh one when none is stored yet.
package secretstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/dmitrijs2005/tracekeeper/internal/cryptox"
	"github.com/dmitrijs2005/tracekeeper/internal/logging"
)

// KeyField is the document field holding the hex-encoded key.
const KeyField = "key"

// Backend reads and writes string-map secret documents addressed by path.
// Read returns common.ErrorNotFound when nothing is stored at path.
type Backend interface {
	Read(ctx context.Context, path string) (map[string]string, error)
	Write(ctx context.Context, path string, data map[string]string) error
}

type Store struct {
	backend Backend
	timeout time.Duration
	logger  logging.Logger
	rand    io.Reader
}

func NewStore(backend Backend, timeout time.Duration, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{
		backend: backend,
		timeout: timeout,
		logger:  logger.With("module", "secretstore"),
		rand:    rand.Reader,
	}
}

// GetOrCreate returns the key stored at path. An absent, unreadable or
// malformed document is replaced by a freshly generated key. A structurally
// valid key is never regenerated.
func (s *Store) GetOrCreate(ctx context.Context, path string) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	doc, err := s.backend.Read(ctx, path)
	switch {
	case err == nil:
		if key, ok := parseKey(doc); ok {
			return key, nil
		}
		s.logger.Warn(ctx, "malformed secret document, provisioning new key", "path", path)
	case errors.Is(err, common.ErrorNotFound):
		s.logger.Info(ctx, "no key stored, provisioning new key", "path", path)
	default:
		s.logger.Warn(ctx, "secret read failed, treating as absent", "path", path, "error", err)
	}

	key, err := cryptox.GenerateKey(s.rand)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrBackendUnavailable, err)
	}

	if err := s.backend.Write(ctx, path, map[string]string{KeyField: hex.EncodeToString(key)}); err != nil {
		common.WipeByteArray(key)
		return nil, fmt.Errorf("%w: write %s: %w", common.ErrBackendUnavailable, path, err)
	}
	return key, nil
}

func parseKey(doc map[string]string) ([]byte, bool) {
	enc, ok := doc[KeyField]
	if !ok {
		return nil, false
	}
	key, err := hex.DecodeString(enc)
	if err != nil || len(key) != cryptox.KeySize {
		return nil, false
	}
	return key, true
}
