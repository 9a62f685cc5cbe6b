// Package services contains server-side business logic. This file implements
// ContactService, which issues temporary ids, accepts contact uploads and
// reports exposure state.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/dmitrijs2005/tracekeeper/internal/dbx"
	"github.com/dmitrijs2005/tracekeeper/internal/logging"
	"github.com/dmitrijs2005/tracekeeper/internal/server/exposure"
	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tracekeeper/internal/server/tempid"
	"github.com/google/uuid"
)

// KeyProvider returns the temporary-id key stored at path, creating it on
// first use. The caller owns the returned slice and wipes it after use.
// *secretstore.Store implements it.
type KeyProvider interface {
	GetOrCreate(ctx context.Context, path string) ([]byte, error)
}

// ContactService is stateless between calls and safe for concurrent use.
type ContactService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	keys        KeyProvider
	codec       *tempid.Codec
	keyPath     string
	logger      logging.Logger
	now         func() time.Time
}

func NewContactService(db *sql.DB, m repomanager.RepositoryManager, keys KeyProvider, codec *tempid.Codec, keyPath string, logger logging.Logger) *ContactService {
	if keyPath == "" {
		keyPath = common.DefaultKeyPath
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &ContactService{
		db:          db,
		repomanager: m,
		keys:        keys,
		codec:       codec,
		keyPath:     keyPath,
		logger:      logger.With("module", "contacts"),
		now:         time.Now,
	}
}

// GenerateTemporaryIDs issues a fresh batch of temporary ids for userID.
func (s *ContactService) GenerateTemporaryIDs(ctx context.Context, userID uuid.UUID) (*tempid.Batch, error) {
	key, err := s.keys.GetOrCreate(ctx, s.keyPath)
	if err != nil {
		return nil, fmt.Errorf("error loading key: %w", err)
	}
	defer common.WipeByteArray(key)

	batch, err := s.codec.Generate(userID, key, s.now())
	if err != nil {
		return nil, fmt.Errorf("error generating temporary ids: %w", err)
	}

	s.logger.Info(ctx, "temporary ids issued", "action", "generate_temp_ids", "user_id", userID, "count", len(batch.Tokens))
	return batch, nil
}

// UploadContacts stores the contacts the user's device observed. It returns
// the number of newly stored close contacts. Reports that fail validation
// are dropped without error.
func (s *ContactService) UploadContacts(ctx context.Context, userID uuid.UUID, reports []tempid.ContactReport) (int, error) {
	now := s.now()

	infections, err := s.repomanager.Infections(s.db).ListRecent(ctx, userID, now.Add(-exposure.Lookback), now)
	if err != nil {
		return 0, fmt.Errorf("error loading infections: %w", err)
	}
	pending, err := s.repomanager.Notifications(s.db).ListPendingForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("error loading notifications: %w", err)
	}

	auth, err := exposure.AuthorizeUpload(userID, infections, pending, now)
	if err != nil {
		return 0, err
	}
	if len(reports) == 0 {
		return 0, common.ErrNoReports
	}

	key, err := s.keys.GetOrCreate(ctx, s.keyPath)
	if err != nil {
		return 0, fmt.Errorf("error loading key: %w", err)
	}
	contacts := s.codec.DecodeAll(reports, key, userID, auth.InfectionID)
	common.WipeByteArray(key)

	n, err := exposure.CompleteUpload(ctx, s, auth, contacts)
	if err != nil {
		return 0, err
	}

	s.logger.Info(ctx, "contacts uploaded",
		"action", "upload_temp_ids",
		"user_id", userID,
		"infection_id", auth.InfectionID,
		"received", len(reports),
		"valid", len(contacts),
		"stored", n,
	)
	return n, nil
}

// CommitUpload spends the authorized notification and stores contacts in one
// transaction.
func (s *ContactService) CommitUpload(ctx context.Context, auth *exposure.Authorization, contacts []models.CloseContact) (int, error) {
	var stored int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		spent, err := s.repomanager.Notifications(tx).MarkUploaded(ctx, auth.NotificationID)
		if err != nil {
			return fmt.Errorf("error marking notification uploaded: %w", err)
		}
		if !spent {
			return common.ErrNoPendingNotification
		}

		stored, err = s.repomanager.CloseContacts(tx).CreateBatch(ctx, contacts)
		if err != nil {
			return fmt.Errorf("error storing close contacts: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return stored, nil
}

// ExposureStatus classifies userID as positive, close or negative.
func (s *ContactService) ExposureStatus(ctx context.Context, userID uuid.UUID) (exposure.Status, error) {
	now := s.now()
	from := now.Add(-exposure.Lookback)

	infections, err := s.repomanager.Infections(s.db).ListRecent(ctx, userID, from, now)
	if err != nil {
		return "", fmt.Errorf("error loading infections: %w", err)
	}
	contacts, err := s.repomanager.CloseContacts(s.db).ListRecentForContacted(ctx, userID, from, now)
	if err != nil {
		return "", fmt.Errorf("error loading close contacts: %w", err)
	}

	status := exposure.ResolveStatus(userID, infections, contacts, now)
	s.logger.Info(ctx, "exposure status resolved", "action", "get_infection_status", "user_id", userID, "status", status)
	return status, nil
}

// UploadRequired reports whether userID has a notification whose upload
// window includes today.
func (s *ContactService) UploadRequired(ctx context.Context, userID uuid.UUID) (bool, error) {
	pending, err := s.repomanager.Notifications(s.db).ListPendingForUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("error loading notifications: %w", err)
	}

	required := exposure.UploadRequired(pending, s.now())
	s.logger.Info(ctx, "upload requirement resolved", "action", "get_upload_requirement_status", "user_id", userID, "required", required)
	return required, nil
}
