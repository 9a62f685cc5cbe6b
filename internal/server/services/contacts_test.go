package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/dmitrijs2005/tracekeeper/internal/cryptox"
	"github.com/dmitrijs2005/tracekeeper/internal/dbx"
	"github.com/dmitrijs2005/tracekeeper/internal/server/exposure"
	"github.com/dmitrijs2005/tracekeeper/internal/server/models"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/closecontacts"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/infections"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/secrets"
	"github.com/dmitrijs2005/tracekeeper/internal/server/tempid"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

// --- fakes ---

type fakeInfections struct {
	out []models.InfectionEvent
	err error
}

func (f *fakeInfections) ListRecent(_ context.Context, userID uuid.UUID, from, to time.Time) ([]models.InfectionEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	var res []models.InfectionEvent
	for _, i := range f.out {
		if i.UserID == userID && !i.RecordedAt.Before(from) && !i.RecordedAt.After(to) {
			res = append(res, i)
		}
	}
	return res, nil
}

type fakeNotifications struct {
	out     []models.NotificationRequirement
	err     error
	spent   bool
	markErr error
	marked  []uuid.UUID
}

func (f *fakeNotifications) ListPendingForUser(context.Context, uuid.UUID) ([]models.NotificationRequirement, error) {
	return f.out, f.err
}

func (f *fakeNotifications) MarkUploaded(_ context.Context, id uuid.UUID) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	f.marked = append(f.marked, id)
	if f.spent {
		return false, nil
	}
	f.spent = true
	return true, nil
}

type fakeContacts struct {
	stored    []models.CloseContact
	listOut   []models.CloseContact
	createErr error
}

func (f *fakeContacts) CreateBatch(_ context.Context, contacts []models.CloseContact) (int, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.stored = append(f.stored, contacts...)
	return len(contacts), nil
}

func (f *fakeContacts) ListRecentForContacted(context.Context, uuid.UUID, time.Time, time.Time) ([]models.CloseContact, error) {
	return f.listOut, nil
}

type fakeRepoManager struct {
	i *fakeInfections
	n *fakeNotifications
	c *fakeContacts
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Infections(dbx.DBTX) infections.Repository       { return m.i }
func (m *fakeRepoManager) Notifications(dbx.DBTX) notifications.Repository { return m.n }
func (m *fakeRepoManager) CloseContacts(dbx.DBTX) closecontacts.Repository { return m.c }
func (m *fakeRepoManager) Secrets(dbx.DBTX) secrets.Repository             { return nil }

type fakeKeys struct {
	key   []byte
	err   error
	calls int
}

func (f *fakeKeys) GetOrCreate(context.Context, string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return bytes.Clone(f.key), nil
}

// --- helpers ---

type fixture struct {
	svc   *ContactService
	mock  sqlmock.Sqlmock
	rm    *fakeRepoManager
	keys  *fakeKeys
	codec *tempid.Codec

	user      uuid.UUID
	infection models.InfectionEvent
	notif     models.NotificationRequirement
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	user := uuid.New()
	inf := models.InfectionEvent{ID: uuid.New(), UserID: user, RecordedAt: now.Add(-48 * time.Hour)}
	notif := models.NotificationRequirement{
		ID:          uuid.New(),
		InfectionID: inf.ID,
		StartDate:   time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
	}

	rm := &fakeRepoManager{
		i: &fakeInfections{out: []models.InfectionEvent{inf}},
		n: &fakeNotifications{out: []models.NotificationRequirement{notif}},
		c: &fakeContacts{},
	}
	keys := &fakeKeys{key: bytes.Repeat([]byte{7}, cryptox.KeySize)}
	codec := tempid.NewCodec(cryptox.AES256GCM)

	svc := NewContactService(db, rm, keys, codec, "", nil)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, mock: mock, rm: rm, keys: keys, codec: codec, user: user, infection: inf, notif: notif}
}

// reportFor issues a token for contacted and reports it as seen a minute
// after issuance.
func (f *fixture) reportFor(t *testing.T, contacted uuid.UUID) tempid.ContactReport {
	t.Helper()
	batch, err := f.codec.Generate(contacted, f.keys.key, now)
	require.NoError(t, err)
	ts, rssi := now.Add(time.Minute).Unix(), int64(-60)
	return tempid.ContactReport{Token: batch.Tokens[0].Token, ContactTimestamp: &ts, SignalStrength: &rssi}
}

// --- tests ---

func TestGenerateTemporaryIDs(t *testing.T) {
	f := newFixture(t)

	batch, err := f.svc.GenerateTemporaryIDs(context.Background(), f.user)
	require.NoError(t, err)
	require.Len(t, batch.Tokens, tempid.WindowCount)
	assert.Equal(t, batch.Tokens[tempid.WindowCount-1].End, batch.ServerStartTime)
	assert.Equal(t, 1, f.keys.calls)
	assert.Equal(t, bytes.Repeat([]byte{7}, cryptox.KeySize), f.keys.key)

	ts, rssi := now.Unix(), int64(-40)
	cc, ok := f.codec.Decode(tempid.ContactReport{Token: batch.Tokens[0].Token, ContactTimestamp: &ts, SignalStrength: &rssi},
		f.keys.key, uuid.New(), uuid.Nil)
	require.True(t, ok)
	assert.Equal(t, f.user, cc.ContactedUserID)
}

func TestGenerateTemporaryIDs_KeyUnavailable(t *testing.T) {
	f := newFixture(t)
	f.keys.err = common.ErrBackendUnavailable

	_, err := f.svc.GenerateTemporaryIDs(context.Background(), f.user)
	assert.ErrorIs(t, err, common.ErrBackendUnavailable)
}

func TestUploadContacts_Success(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	contacted := uuid.New()
	reports := []tempid.ContactReport{
		f.reportFor(t, contacted),
		f.reportFor(t, f.user), // own token
		{Token: "garbage"},     // malformed
	}

	n, err := f.svc.UploadContacts(context.Background(), f.user, reports)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.keys.calls)

	require.Len(t, f.rm.c.stored, 1)
	got := f.rm.c.stored[0]
	assert.Equal(t, f.user, got.InfectedUserID)
	assert.Equal(t, contacted, got.ContactedUserID)
	assert.Equal(t, f.infection.ID, got.InfectionID)
	assert.Equal(t, int64(-60), got.SignalStrength)
	assert.Equal(t, []uuid.UUID{f.notif.ID}, f.rm.n.marked)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUploadContacts_PolicyRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *fixture)
		reports func(t *testing.T, f *fixture) []tempid.ContactReport
		wantErr error
	}{
		{
			name:    "no recent infection",
			mutate:  func(f *fixture) { f.rm.i.out = nil },
			wantErr: common.ErrNoRecentInfection,
		},
		{
			name: "infection too old",
			mutate: func(f *fixture) {
				f.rm.i.out[0].RecordedAt = now.Add(-16 * 24 * time.Hour)
			},
			wantErr: common.ErrNoRecentInfection,
		},
		{
			name:    "no pending notification",
			mutate:  func(f *fixture) { f.rm.n.out = nil },
			wantErr: common.ErrNoPendingNotification,
		},
		{
			name: "notification expired",
			mutate: func(f *fixture) {
				f.rm.n.out[0].DueDate = time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
			},
			wantErr: common.ErrNotificationExpired,
		},
		{
			name:    "empty report list",
			reports: func(*testing.T, *fixture) []tempid.ContactReport { return nil },
			wantErr: common.ErrNoReports,
		},
		{
			name: "nothing decodes",
			reports: func(t *testing.T, f *fixture) []tempid.ContactReport {
				return []tempid.ContactReport{{Token: "garbage"}, f.reportFor(t, f.user)}
			},
			wantErr: common.ErrNoValidContacts,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.mutate != nil {
				tt.mutate(f)
			}
			reports := []tempid.ContactReport{f.reportFor(t, uuid.New())}
			if tt.reports != nil {
				reports = tt.reports(t, f)
			}

			n, err := f.svc.UploadContacts(context.Background(), f.user, reports)
			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, common.IsPolicyError(err))
			assert.Zero(t, n)
			assert.Empty(t, f.rm.c.stored)
			assert.Empty(t, f.rm.n.marked)
			require.NoError(t, f.mock.ExpectationsWereMet())
		})
	}
}

func TestUploadContacts_EmptyListChecksAuthorizationFirst(t *testing.T) {
	f := newFixture(t)
	f.rm.i.out = nil

	_, err := f.svc.UploadContacts(context.Background(), f.user, nil)
	require.ErrorIs(t, err, common.ErrNoRecentInfection)
	assert.Zero(t, f.keys.calls)
}

func TestUploadContacts_NotificationSpentConcurrently(t *testing.T) {
	f := newFixture(t)
	f.rm.n.spent = true
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.UploadContacts(context.Background(), f.user, []tempid.ContactReport{f.reportFor(t, uuid.New())})
	require.ErrorIs(t, err, common.ErrNoPendingNotification)
	assert.Empty(t, f.rm.c.stored)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUploadContacts_StoreFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.rm.c.createErr = errors.New("disk full")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.UploadContacts(context.Background(), f.user, []tempid.ContactReport{f.reportFor(t, uuid.New())})
	require.ErrorContains(t, err, "disk full")
	assert.False(t, common.IsPolicyError(err))
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestUploadContacts_RepositoryErrors(t *testing.T) {
	f := newFixture(t)
	f.rm.i.err = errors.New("conn refused")
	_, err := f.svc.UploadContacts(context.Background(), f.user, nil)
	assert.ErrorContains(t, err, "error loading infections")

	f = newFixture(t)
	f.rm.n.err = errors.New("conn refused")
	_, err = f.svc.UploadContacts(context.Background(), f.user, nil)
	assert.ErrorContains(t, err, "error loading notifications")
}

func TestUploadContacts_KeyUnavailable(t *testing.T) {
	f := newFixture(t)
	f.keys.err = common.ErrBackendUnavailable

	_, err := f.svc.UploadContacts(context.Background(), f.user, []tempid.ContactReport{{Token: "x"}})
	assert.ErrorIs(t, err, common.ErrBackendUnavailable)
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func TestExposureStatus(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		f := newFixture(t)
		f.rm.c.listOut = []models.CloseContact{{ContactedUserID: f.user, ContactTimestamp: now.Add(-time.Hour)}}
		st, err := f.svc.ExposureStatus(context.Background(), f.user)
		require.NoError(t, err)
		assert.Equal(t, exposure.StatusPositive, st)
	})
	t.Run("close", func(t *testing.T) {
		f := newFixture(t)
		f.rm.i.out = nil
		f.rm.c.listOut = []models.CloseContact{{ContactedUserID: f.user, ContactTimestamp: now.Add(-time.Hour)}}
		st, err := f.svc.ExposureStatus(context.Background(), f.user)
		require.NoError(t, err)
		assert.Equal(t, exposure.StatusClose, st)
	})
	t.Run("negative", func(t *testing.T) {
		f := newFixture(t)
		f.rm.i.out = nil
		st, err := f.svc.ExposureStatus(context.Background(), f.user)
		require.NoError(t, err)
		assert.Equal(t, exposure.StatusNegative, st)
	})
}

func TestUploadRequired(t *testing.T) {
	f := newFixture(t)

	required, err := f.svc.UploadRequired(context.Background(), f.user)
	require.NoError(t, err)
	assert.True(t, required)

	f.rm.n.out = nil
	required, err = f.svc.UploadRequired(context.Background(), f.user)
	require.NoError(t, err)
	assert.False(t, required)

	f.rm.n.err = errors.New("conn refused")
	_, err = f.svc.UploadRequired(context.Background(), f.user)
	assert.Error(t, err)
}
