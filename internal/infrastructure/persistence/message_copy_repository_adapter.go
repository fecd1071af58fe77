package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

const copySelect = `SELECT c.id, c.tenant_id, c.sender_id, COALESCE(s.name, '') AS sender_name,
		c.receiver_id, COALESCE(r.name, '') AS receiver_name, c.original_message_id, c.message_body,
		c.listing_id, l.title AS listing_title, c.copy_reason, c.sent_at,
		c.reviewed_at, c.reviewed_by, c.flagged, c.flag_reason, c.flag_severity, c.flagged_by, c.flagged_at,
		c.archive_id, c.archived_at, c.version, c.created_at
	FROM broker_message_copies c
	LEFT JOIN users s ON s.id = c.sender_id
	LEFT JOIN users r ON r.id = c.receiver_id
	LEFT JOIN listings l ON l.id = c.listing_id`

const copyFrom = ` FROM broker_message_copies c
	LEFT JOIN users s ON s.id = c.sender_id
	LEFT JOIN users r ON r.id = c.receiver_id`

type MessageCopyRepositoryAdapter struct {
	db *sqlx.DB
}

func NewMessageCopyRepositoryAdapter(db *sqlx.DB) *MessageCopyRepositoryAdapter {
	return &MessageCopyRepositoryAdapter{db: db}
}

func (r *MessageCopyRepositoryAdapter) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.MessageCopy, error) {
	return findCopy(ctx, r.db, copySelect+` WHERE c.id = $1 AND c.tenant_id = $2`, id, tenantID)
}

func (r *MessageCopyRepositoryAdapter) List(ctx context.Context, filter repository.CopyFilter) ([]*entity.MessageCopy, int, error) {
	w := copyWhere(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)`+copyFrom+w.sql(), w.args...); err != nil {
		return nil, 0, apperror.Persistence(err, "не удалось посчитать копии сообщений")
	}

	pageSQL, args := w.page(filter.Limit, filter.Offset)
	var rows []messageCopyRow
	query := copySelect + w.sql() + ` ORDER BY c.created_at DESC, c.id` + pageSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperror.Persistence(err, "не удалось получить копии сообщений")
	}

	result := make([]*entity.MessageCopy, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, total, nil
}

func (r *MessageCopyRepositoryAdapter) Stats(ctx context.Context, tenantID uuid.UUID) (repository.CopyStats, error) {
	var stats repository.CopyStats
	copiesQuery := `SELECT
			COUNT(*) FILTER (WHERE archive_id IS NULL AND reviewed_at IS NULL AND NOT flagged) AS unreviewed,
			COUNT(*) FILTER (WHERE archive_id IS NULL AND flagged) AS flagged,
			COUNT(*) FILTER (WHERE archive_id IS NULL AND reviewed_at IS NOT NULL AND NOT flagged) AS reviewed,
			COUNT(*) FILTER (WHERE archive_id IS NOT NULL) AS archived
		FROM broker_message_copies WHERE tenant_id = $1`
	if err := r.db.GetContext(ctx, &stats, copiesQuery, tenantID); err != nil {
		return stats, apperror.Persistence(err, "не удалось получить статистику копий")
	}

	archivesQuery := `SELECT
			COUNT(*) FILTER (WHERE decision = 'approved') AS archived_approved,
			COUNT(*) FILTER (WHERE decision = 'flagged') AS archived_flagged
		FROM broker_archives WHERE tenant_id = $1`
	if err := r.db.GetContext(ctx, &stats, archivesQuery, tenantID); err != nil {
		return stats, apperror.Persistence(err, "не удалось получить статистику архива")
	}
	return stats, nil
}

func copyWhere(filter repository.CopyFilter) *whereBuilder {
	w := &whereBuilder{}
	w.add("c.tenant_id = ?", filter.TenantID)

	switch filter.Status {
	case valueobject.CopyFilterUnreviewed:
		w.add("c.archive_id IS NULL AND c.reviewed_at IS NULL AND NOT c.flagged")
	case valueobject.CopyFilterFlagged:
		w.add("c.archive_id IS NULL AND c.flagged")
	case valueobject.CopyFilterReviewed:
		w.add("c.archive_id IS NULL AND c.reviewed_at IS NOT NULL AND NOT c.flagged")
	}

	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(s.name ILIKE ? OR r.name ILIKE ? OR c.message_body ILIKE ?)", p, p, p)
	}
	return w
}

func findCopy(ctx context.Context, q sqlx.QueryerContext, query string, args ...interface{}) (*entity.MessageCopy, error) {
	var row messageCopyRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrCopyNotFound
		}
		return nil, apperror.Persistence(err, "не удалось получить копию сообщения")
	}
	return row.toEntity(), nil
}

type messageCopyRow struct {
	ID                uuid.UUID  `db:"id"`
	TenantID          uuid.UUID  `db:"tenant_id"`
	SenderID          uuid.UUID  `db:"sender_id"`
	SenderName        string     `db:"sender_name"`
	ReceiverID        uuid.UUID  `db:"receiver_id"`
	ReceiverName      string     `db:"receiver_name"`
	OriginalMessageID uuid.UUID  `db:"original_message_id"`
	MessageBody       string     `db:"message_body"`
	ListingID         *uuid.UUID `db:"listing_id"`
	ListingTitle      *string    `db:"listing_title"`
	CopyReason        string     `db:"copy_reason"`
	SentAt            time.Time  `db:"sent_at"`
	ReviewedAt        *time.Time `db:"reviewed_at"`
	ReviewedBy        *uuid.UUID `db:"reviewed_by"`
	Flagged           bool       `db:"flagged"`
	FlagReason        *string    `db:"flag_reason"`
	FlagSeverity      *string    `db:"flag_severity"`
	FlaggedBy         *uuid.UUID `db:"flagged_by"`
	FlaggedAt         *time.Time `db:"flagged_at"`
	ArchiveID         *uuid.UUID `db:"archive_id"`
	ArchivedAt        *time.Time `db:"archived_at"`
	Version           int        `db:"version"`
	CreatedAt         time.Time  `db:"created_at"`
}

func (r *messageCopyRow) toEntity() *entity.MessageCopy {
	mc := &entity.MessageCopy{
		ID:                r.ID,
		TenantID:          r.TenantID,
		SenderID:          r.SenderID,
		SenderName:        r.SenderName,
		ReceiverID:        r.ReceiverID,
		ReceiverName:      r.ReceiverName,
		OriginalMessageID: r.OriginalMessageID,
		MessageBody:       r.MessageBody,
		ListingID:         r.ListingID,
		ListingTitle:      r.ListingTitle,
		CopyReason:        valueobject.CopyReason(r.CopyReason),
		SentAt:            r.SentAt,
		ReviewedAt:        r.ReviewedAt,
		ReviewedBy:        r.ReviewedBy,
		Flagged:           r.Flagged,
		FlagReason:        r.FlagReason,
		FlaggedBy:         r.FlaggedBy,
		FlaggedAt:         r.FlaggedAt,
		ArchiveID:         r.ArchiveID,
		ArchivedAt:        r.ArchivedAt,
		Version:           r.Version,
		CreatedAt:         r.CreatedAt,
	}
	if r.FlagSeverity != nil {
		s := valueobject.FlagSeverity(*r.FlagSeverity)
		mc.FlagSeverity = &s
	}
	return mc
}

func severityString(s *valueobject.FlagSeverity) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}
