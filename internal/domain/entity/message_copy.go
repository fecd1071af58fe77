package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

// MessageCopy — копия сообщения между участниками, ожидающая проверки брокером.
type MessageCopy struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	SenderID          uuid.UUID
	SenderName        string
	ReceiverID        uuid.UUID
	ReceiverName      string
	OriginalMessageID uuid.UUID
	MessageBody       string
	ListingID         *uuid.UUID
	ListingTitle      *string
	CopyReason        valueobject.CopyReason
	SentAt            time.Time

	ReviewedAt *time.Time
	ReviewedBy *uuid.UUID

	Flagged      bool
	FlagReason   *string
	FlagSeverity *valueobject.FlagSeverity
	FlaggedBy    *uuid.UUID
	FlaggedAt    *time.Time

	ArchiveID  *uuid.UUID
	ArchivedAt *time.Time

	// Version растёт с каждым изменением статуса и используется для оптимистичной блокировки.
	Version   int
	CreatedAt time.Time
}

func (m *MessageCopy) IsArchived() bool {
	return m.ArchiveID != nil
}

func (m *MessageCopy) IsReviewed() bool {
	return m.ReviewedAt != nil
}

// State возвращает производное состояние. Флаг важнее отметки о просмотре.
func (m *MessageCopy) State() valueobject.CopyState {
	switch {
	case m.IsArchived():
		return valueobject.CopyStateArchived
	case m.Flagged:
		return valueobject.CopyStateFlagged
	case m.IsReviewed():
		return valueobject.CopyStateReviewed
	}
	return valueobject.CopyStatePending
}

// MarkReviewed ставит отметку о просмотре. Возвращает false, если отметка уже стояла.
func (m *MessageCopy) MarkReviewed(by uuid.UUID, now time.Time) (bool, error) {
	if m.IsArchived() {
		return false, apperror.ErrAlreadyArchived
	}
	if m.ReviewedAt != nil {
		return false, nil
	}
	m.ReviewedAt = &now
	m.ReviewedBy = &by
	m.Version++
	return true, nil
}

// Flag помечает копию как требующую внимания. Повторный вызов перезаписывает причину и уровень.
func (m *MessageCopy) Flag(reason string, severity valueobject.FlagSeverity, by uuid.UUID, now time.Time) error {
	if m.IsArchived() {
		return apperror.ErrAlreadyArchived
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperror.Validation("причина пометки обязательна")
	}
	if !severity.IsValid() {
		return apperror.Validation("некорректный уровень серьёзности")
	}
	m.Flagged = true
	m.FlagReason = &reason
	m.FlagSeverity = &severity
	m.FlaggedBy = &by
	m.FlaggedAt = &now
	m.Version++
	return nil
}

// Decision определяет решение архива по текущему значению флага.
func (m *MessageCopy) Decision() valueobject.ArchiveDecision {
	if m.Flagged {
		return valueobject.ArchiveDecisionFlagged
	}
	return valueobject.ArchiveDecisionApproved
}

// CloseArchived закрывает копию после создания архивной записи.
func (m *MessageCopy) CloseArchived(archiveID uuid.UUID, now time.Time) error {
	if m.IsArchived() {
		return apperror.ErrAlreadyArchived
	}
	m.ArchiveID = &archiveID
	m.ArchivedAt = &now
	m.Version++
	return nil
}
