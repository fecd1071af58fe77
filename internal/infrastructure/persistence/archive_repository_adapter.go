package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

const archiveCopyUnique = "broker_archives_copy_id_key"

const archiveColumns = `id, tenant_id, copy_id, decision, decided_by, decided_by_name, decided_at, decision_notes,
		flag_reason, flag_severity, sender_id, sender_name, receiver_id, receiver_name, copy_reason,
		target_message_id, target_message_body, target_message_sent_at, listing_title, snapshot, created_at`

type ArchiveRepositoryAdapter struct {
	db *sqlx.DB
}

func NewArchiveRepositoryAdapter(db *sqlx.DB) *ArchiveRepositoryAdapter {
	return &ArchiveRepositoryAdapter{db: db}
}

func (r *ArchiveRepositoryAdapter) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.ArchiveRecord, error) {
	var row archiveRow
	query := `SELECT ` + archiveColumns + ` FROM broker_archives WHERE id = $1 AND tenant_id = $2`
	if err := r.db.GetContext(ctx, &row, query, id, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrArchiveNotFound
		}
		return nil, apperror.Persistence(err, "не удалось получить архивную запись")
	}
	return row.toEntity()
}

func (r *ArchiveRepositoryAdapter) List(ctx context.Context, filter repository.ArchiveFilter) ([]*entity.ArchiveRecord, int, error) {
	w := &whereBuilder{}
	w.add("tenant_id = ?", filter.TenantID)
	if filter.Decision != nil {
		w.add("decision = ?", string(*filter.Decision))
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		w.add("(sender_name ILIKE ? OR receiver_name ILIKE ?)", p, p)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM broker_archives`+w.sql(), w.args...); err != nil {
		return nil, 0, apperror.Persistence(err, "не удалось посчитать архивные записи")
	}

	pageSQL, args := w.page(filter.Limit, filter.Offset)
	var rows []archiveRow
	query := `SELECT ` + archiveColumns + ` FROM broker_archives` + w.sql() + ` ORDER BY decided_at DESC, id` + pageSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, apperror.Persistence(err, "не удалось получить архив")
	}

	result := make([]*entity.ArchiveRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toEntity()
		if err != nil {
			return nil, 0, err
		}
		result = append(result, rec)
	}
	return result, total, nil
}

func insertArchive(ctx context.Context, exec sqlx.ExecerContext, rec *entity.ArchiveRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сериализовать снимок переписки")
	}

	query := `INSERT INTO broker_archives (` + archiveColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err = exec.ExecContext(ctx, query,
		rec.ID, rec.TenantID, rec.CopyID, string(rec.Decision), rec.DecidedBy, rec.DecidedByName, rec.DecidedAt, rec.DecisionNotes,
		rec.FlagReason, severityString(rec.FlagSeverity), rec.SenderID, rec.SenderName, rec.ReceiverID, rec.ReceiverName, string(rec.CopyReason),
		rec.TargetMessageID, rec.TargetMessageBody, rec.TargetMessageSentAt, rec.ListingTitle, snapshot, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, archiveCopyUnique) {
			return apperror.ErrAlreadyArchived
		}
		return apperror.Persistence(err, "не удалось создать архивную запись")
	}
	return nil
}

type archiveRow struct {
	ID                  uuid.UUID `db:"id"`
	TenantID            uuid.UUID `db:"tenant_id"`
	CopyID              uuid.UUID `db:"copy_id"`
	Decision            string    `db:"decision"`
	DecidedBy           uuid.UUID `db:"decided_by"`
	DecidedByName       string    `db:"decided_by_name"`
	DecidedAt           time.Time `db:"decided_at"`
	DecisionNotes       *string   `db:"decision_notes"`
	FlagReason          *string   `db:"flag_reason"`
	FlagSeverity        *string   `db:"flag_severity"`
	SenderID            uuid.UUID `db:"sender_id"`
	SenderName          string    `db:"sender_name"`
	ReceiverID          uuid.UUID `db:"receiver_id"`
	ReceiverName        string    `db:"receiver_name"`
	CopyReason          string    `db:"copy_reason"`
	TargetMessageID     uuid.UUID `db:"target_message_id"`
	TargetMessageBody   string    `db:"target_message_body"`
	TargetMessageSentAt time.Time `db:"target_message_sent_at"`
	ListingTitle        *string   `db:"listing_title"`
	Snapshot            []byte    `db:"snapshot"`
	CreatedAt           time.Time `db:"created_at"`
}

func (r *archiveRow) toEntity() (*entity.ArchiveRecord, error) {
	rec := &entity.ArchiveRecord{
		ID:                  r.ID,
		TenantID:            r.TenantID,
		CopyID:              r.CopyID,
		Decision:            valueobject.ArchiveDecision(r.Decision),
		DecidedBy:           r.DecidedBy,
		DecidedByName:       r.DecidedByName,
		DecidedAt:           r.DecidedAt,
		DecisionNotes:       r.DecisionNotes,
		FlagReason:          r.FlagReason,
		SenderID:            r.SenderID,
		SenderName:          r.SenderName,
		ReceiverID:          r.ReceiverID,
		ReceiverName:        r.ReceiverName,
		CopyReason:          valueobject.CopyReason(r.CopyReason),
		TargetMessageID:     r.TargetMessageID,
		TargetMessageBody:   r.TargetMessageBody,
		TargetMessageSentAt: r.TargetMessageSentAt,
		ListingTitle:        r.ListingTitle,
		CreatedAt:           r.CreatedAt,
	}
	if r.FlagSeverity != nil {
		s := valueobject.FlagSeverity(*r.FlagSeverity)
		rec.FlagSeverity = &s
	}
	if len(r.Snapshot) > 0 {
		if err := json.Unmarshal(r.Snapshot, &rec.Snapshot); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "повреждён снимок переписки в архиве")
		}
	}
	return rec, nil
}
