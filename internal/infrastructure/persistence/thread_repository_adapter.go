package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

// ThreadRepositoryAdapter читает переписку пары участников.
// Переписка — все сообщения между отправителем и получателем в сообществе.
type ThreadRepositoryAdapter struct {
	db *sqlx.DB
}

func NewThreadRepositoryAdapter(db *sqlx.DB) *ThreadRepositoryAdapter {
	return &ThreadRepositoryAdapter{db: db}
}

func (r *ThreadRepositoryAdapter) FindThreadByMessageID(ctx context.Context, tenantID, messageID uuid.UUID) ([]*entity.ThreadMessage, error) {
	return loadThread(ctx, r.db, tenantID, messageID)
}

// loadThread возвращает пустой список, если исходное сообщение уже удалено из базы.
func loadThread(ctx context.Context, q sqlx.QueryerContext, tenantID, messageID uuid.UUID) ([]*entity.ThreadMessage, error) {
	var pair struct {
		SenderID   uuid.UUID `db:"sender_id"`
		ReceiverID uuid.UUID `db:"receiver_id"`
	}
	err := sqlx.GetContext(ctx, q, &pair,
		`SELECT sender_id, receiver_id FROM messages WHERE id = $1 AND tenant_id = $2`, messageID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*entity.ThreadMessage{}, nil
		}
		return nil, apperror.Persistence(err, "не удалось получить сообщение")
	}

	query := `SELECT m.id, m.tenant_id, m.sender_id, COALESCE(s.name, '') AS sender_name,
			m.receiver_id, COALESCE(r.name, '') AS receiver_name, m.body, m.created_at, m.is_edited, m.is_deleted
		FROM messages m
		LEFT JOIN users s ON s.id = m.sender_id
		LEFT JOIN users r ON r.id = m.receiver_id
		WHERE m.tenant_id = $1
			AND ((m.sender_id = $2 AND m.receiver_id = $3) OR (m.sender_id = $3 AND m.receiver_id = $2))
		ORDER BY m.created_at, m.id`

	var rows []threadMessageRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, tenantID, pair.SenderID, pair.ReceiverID); err != nil {
		return nil, apperror.Persistence(err, "не удалось получить переписку")
	}

	result := make([]*entity.ThreadMessage, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

type threadMessageRow struct {
	ID           uuid.UUID `db:"id"`
	TenantID     uuid.UUID `db:"tenant_id"`
	SenderID     uuid.UUID `db:"sender_id"`
	SenderName   string    `db:"sender_name"`
	ReceiverID   uuid.UUID `db:"receiver_id"`
	ReceiverName string    `db:"receiver_name"`
	Body         string    `db:"body"`
	CreatedAt    time.Time `db:"created_at"`
	IsEdited     bool      `db:"is_edited"`
	IsDeleted    bool      `db:"is_deleted"`
}

func (r *threadMessageRow) toEntity() *entity.ThreadMessage {
	return &entity.ThreadMessage{
		ID:           r.ID,
		TenantID:     r.TenantID,
		SenderID:     r.SenderID,
		SenderName:   r.SenderName,
		ReceiverID:   r.ReceiverID,
		ReceiverName: r.ReceiverName,
		Body:         r.Body,
		CreatedAt:    r.CreatedAt,
		IsEdited:     r.IsEdited,
		IsDeleted:    r.IsDeleted,
	}
}
