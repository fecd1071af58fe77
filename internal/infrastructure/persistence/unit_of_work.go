package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

var (
	_ repository.UnitOfWork             = (*UnitOfWork)(nil)
	_ repository.MessageCopyRepository  = (*MessageCopyRepositoryAdapter)(nil)
	_ repository.ThreadRepository       = (*ThreadRepositoryAdapter)(nil)
	_ repository.ArchiveRepository      = (*ArchiveRepositoryAdapter)(nil)
	_ repository.BrokerConfigRepository = (*BrokerConfigRepositoryAdapter)(nil)
)

// UnitOfWork открывает транзакцию PostgreSQL на одну операцию модерации.
type UnitOfWork struct {
	db *sqlx.DB
}

func NewUnitOfWork(db *sqlx.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.ModerationTx) error) error {
	return WithTransaction(ctx, u.db, func(tx *sqlx.Tx) error {
		return fn(ctx, &moderationTx{tx: tx})
	})
}

type moderationTx struct {
	tx *sqlx.Tx
}

// LockCopy блокирует строку копии до конца транзакции: параллельные flag и approve ждут друг друга.
func (t *moderationTx) LockCopy(ctx context.Context, tenantID, id uuid.UUID) (*entity.MessageCopy, error) {
	return findCopy(ctx, t.tx, copySelect+` WHERE c.id = $1 AND c.tenant_id = $2 FOR UPDATE OF c`, id, tenantID)
}

func (t *moderationTx) SaveCopyStatus(ctx context.Context, mc *entity.MessageCopy, expectedVersion int) error {
	query := `UPDATE broker_message_copies SET
			reviewed_at = $3, reviewed_by = $4,
			flagged = $5, flag_reason = $6, flag_severity = $7, flagged_by = $8, flagged_at = $9,
			archive_id = $10, archived_at = $11, version = $12
		WHERE id = $1 AND tenant_id = $2 AND version = $13`
	res, err := t.tx.ExecContext(ctx, query,
		mc.ID, mc.TenantID,
		mc.ReviewedAt, mc.ReviewedBy,
		mc.Flagged, mc.FlagReason, severityString(mc.FlagSeverity), mc.FlaggedBy, mc.FlaggedAt,
		mc.ArchiveID, mc.ArchivedAt, mc.Version,
		expectedVersion,
	)
	if err != nil {
		return apperror.Persistence(err, "не удалось обновить копию сообщения")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.Persistence(err, "не удалось обновить копию сообщения")
	}
	if n == 0 {
		return apperror.ErrConcurrencyConflict
	}
	return nil
}

func (t *moderationTx) LoadThread(ctx context.Context, tenantID, messageID uuid.UUID) ([]*entity.ThreadMessage, error) {
	return loadThread(ctx, t.tx, tenantID, messageID)
}

func (t *moderationTx) CreateArchive(ctx context.Context, rec *entity.ArchiveRecord) error {
	return insertArchive(ctx, t.tx, rec)
}

func (t *moderationTx) AppendActivity(ctx context.Context, a *entity.Activity) error {
	query := `INSERT INTO activity_log (id, tenant_id, user_id, action_type, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := t.tx.ExecContext(ctx, query, a.ID, a.TenantID, a.ActorID, string(a.ActionType), a.EntityType, a.EntityID, a.Details, a.CreatedAt)
	if err != nil {
		return apperror.Persistence(err, "не удалось записать действие в журнал")
	}
	return nil
}
