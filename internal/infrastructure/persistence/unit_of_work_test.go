package persistence

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/moderation"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return sqlx.NewDb(conn, "postgres"), mock
}

func sqlPart(s string) string {
	return regexp.QuoteMeta(s)
}

var copyColumns = []string{
	"id", "tenant_id", "sender_id", "sender_name", "receiver_id", "receiver_name",
	"original_message_id", "message_body", "listing_id", "listing_title", "copy_reason", "sent_at",
	"reviewed_at", "reviewed_by", "flagged", "flag_reason", "flag_severity", "flagged_by", "flagged_at",
	"archive_id", "archived_at", "version", "created_at",
}

type copyFixture struct {
	id, tenant, sender, receiver, message uuid.UUID
	sentAt                                time.Time
}

func newCopyFixture() copyFixture {
	return copyFixture{
		id:       uuid.New(),
		tenant:   uuid.New(),
		sender:   uuid.New(),
		receiver: uuid.New(),
		message:  uuid.New(),
		sentAt:   time.Date(2026, 6, 3, 18, 0, 0, 0, time.UTC),
	}
}

func (f copyFixture) lockedRow(flagged bool, version int) *sqlmock.Rows {
	var reason, severity interface{}
	if flagged {
		reason, severity = "asks to pay in cash", "concern"
	}
	return sqlmock.NewRows(copyColumns).AddRow(
		f.id.String(), f.tenant.String(), f.sender.String(), "Alice", f.receiver.String(), "Bob",
		f.message.String(), "Shall we swap two hours?", nil, nil, "first_contact", f.sentAt,
		nil, nil, flagged, reason, severity, nil, nil,
		nil, nil, int64(version), f.sentAt,
	)
}

func (f copyFixture) expectThread(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(sqlPart("SELECT sender_id, receiver_id FROM messages")).
		WillReturnRows(sqlmock.NewRows([]string{"sender_id", "receiver_id"}).AddRow(f.sender.String(), f.receiver.String()))
	mock.ExpectQuery(sqlPart("FROM messages m")).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "sender_id", "sender_name", "receiver_id", "receiver_name", "body", "created_at", "is_edited", "is_deleted",
		}).AddRow(f.message.String(), f.tenant.String(), f.sender.String(), "Alice", f.receiver.String(), "Bob", "Shall we swap two hours?", f.sentAt, false, false))
}

func (f copyFixture) actor() reqctx.Actor {
	return reqctx.Actor{TenantID: f.tenant, UserID: uuid.New(), Name: "Dana Broker", Role: reqctx.RoleBroker}
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := WithTransaction(context.Background(), db, func(tx *sqlx.Tx) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_RollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = WithTransaction(context.Background(), db, func(tx *sqlx.Tx) error { panic("row decoder exploded") })
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransaction_CommitFailureIsPersistence(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := WithTransaction(context.Background(), db, func(tx *sqlx.Tx) error { return nil })

	assert.True(t, apperror.IsPersistence(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_LockCopyUsesRowLock(t *testing.T) {
	db, mock := newMockDB(t)
	f := newCopyFixture()

	mock.ExpectBegin()
	mock.ExpectQuery(sqlPart("WHERE c.id = $1 AND c.tenant_id = $2 FOR UPDATE OF c")).
		WithArgs(f.id, f.tenant).
		WillReturnRows(f.lockedRow(true, 4))
	mock.ExpectCommit()

	var locked *entity.MessageCopy
	err := NewUnitOfWork(db).WithinTx(context.Background(), func(ctx context.Context, tx repository.ModerationTx) error {
		var err error
		locked, err = tx.LockCopy(ctx, f.tenant, f.id)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 4, locked.Version)
	assert.True(t, locked.Flagged)
	require.NotNil(t, locked.FlagSeverity)
	assert.Equal(t, valueobject.FlagSeverity("concern"), *locked.FlagSeverity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_LockCopyMissingIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	f := newCopyFixture()

	mock.ExpectBegin()
	mock.ExpectQuery(sqlPart("FOR UPDATE OF c")).WillReturnRows(sqlmock.NewRows(copyColumns))
	mock.ExpectRollback()

	err := NewUnitOfWork(db).WithinTx(context.Background(), func(ctx context.Context, tx repository.ModerationTx) error {
		_, err := tx.LockCopy(ctx, f.tenant, f.id)
		return err
	})

	assert.ErrorIs(t, err, apperror.ErrCopyNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_StaleVersionIsConcurrencyConflict(t *testing.T) {
	db, mock := newMockDB(t)
	f := newCopyFixture()
	mc := &entity.MessageCopy{ID: f.id, TenantID: f.tenant, Version: 3}

	mock.ExpectBegin()
	mock.ExpectExec(sqlPart("UPDATE broker_message_copies SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := NewUnitOfWork(db).WithinTx(context.Background(), func(ctx context.Context, tx repository.ModerationTx) error {
		return tx.SaveCopyStatus(ctx, mc, 2)
	})

	assert.ErrorIs(t, err, apperror.ErrConcurrencyConflict)
	assert.True(t, apperror.IsConcurrencyConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitOfWork_DuplicateArchiveIsAlreadyArchived(t *testing.T) {
	cases := []struct {
		name       string
		constraint string
		check      func(error) bool
	}{
		{"copy unique", archiveCopyUnique, apperror.IsAlreadyArchived},
		{"other unique", "broker_archives_pkey", apperror.IsPersistence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			f := newCopyFixture()
			rec := &entity.ArchiveRecord{
				ID:       uuid.New(),
				TenantID: f.tenant,
				CopyID:   f.id,
				Decision: valueobject.ArchiveDecisionApproved,
				Snapshot: entity.BuildSnapshot(nil, f.sentAt),
			}

			mock.ExpectBegin()
			mock.ExpectExec(sqlPart("INSERT INTO broker_archives")).
				WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: tc.constraint})
			mock.ExpectRollback()

			err := NewUnitOfWork(db).WithinTx(context.Background(), func(ctx context.Context, tx repository.ModerationTx) error {
				return tx.CreateArchive(ctx, rec)
			})

			assert.True(t, tc.check(err), "got %v", err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestApproveAndArchive_CommitsWholeTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	f := newCopyFixture()

	mock.ExpectBegin()
	mock.ExpectQuery(sqlPart("FOR UPDATE OF c")).WillReturnRows(f.lockedRow(true, 1))
	f.expectThread(mock)
	mock.ExpectExec(sqlPart("INSERT INTO broker_archives")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(sqlPart("UPDATE broker_message_copies SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(sqlPart("INSERT INTO activity_log")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	uc := moderation.NewApproveAndArchiveUseCase(NewUnitOfWork(db), nil, nil)
	rec, err := uc.Execute(context.Background(), f.actor(), moderation.ApproveAndArchiveInput{CopyID: f.id})

	require.NoError(t, err)
	assert.Equal(t, valueobject.ArchiveDecisionFlagged, rec.Decision)
	require.NotNil(t, rec.FlagReason)
	assert.Equal(t, "asks to pay in cash", *rec.FlagReason)
	assert.Equal(t, 1, rec.Snapshot.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveAndArchive_FailedStepRollsBackArchive(t *testing.T) {
	db, mock := newMockDB(t)
	f := newCopyFixture()

	mock.ExpectBegin()
	mock.ExpectQuery(sqlPart("FOR UPDATE OF c")).WillReturnRows(f.lockedRow(false, 0))
	f.expectThread(mock)
	mock.ExpectExec(sqlPart("INSERT INTO broker_archives")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(sqlPart("UPDATE broker_message_copies SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(sqlPart("INSERT INTO activity_log")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	uc := moderation.NewApproveAndArchiveUseCase(NewUnitOfWork(db), nil, nil)
	rec, err := uc.Execute(context.Background(), f.actor(), moderation.ApproveAndArchiveInput{CopyID: f.id})

	assert.Nil(t, rec)
	assert.True(t, apperror.IsPersistence(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveAndArchive_ConcurrentWriterLosesOnVersion(t *testing.T) {
	db, mock := newMockDB(t)
	f := newCopyFixture()

	mock.ExpectBegin()
	mock.ExpectQuery(sqlPart("FOR UPDATE OF c")).WillReturnRows(f.lockedRow(false, 2))
	f.expectThread(mock)
	mock.ExpectExec(sqlPart("INSERT INTO broker_archives")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(sqlPart("UPDATE broker_message_copies SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	uc := moderation.NewApproveAndArchiveUseCase(NewUnitOfWork(db), nil, nil)
	_, err := uc.Execute(context.Background(), f.actor(), moderation.ApproveAndArchiveInput{CopyID: f.id})

	assert.True(t, apperror.IsConcurrencyConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
