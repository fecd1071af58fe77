package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

// ArchiveRecord — итоговая неизменяемая запись для комплаенса.
// Создаётся один раз на копию и больше не обновляется.
type ArchiveRecord struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	CopyID   uuid.UUID

	Decision      valueobject.ArchiveDecision
	DecidedBy     uuid.UUID
	DecidedByName string
	DecidedAt     time.Time
	DecisionNotes *string

	FlagReason   *string
	FlagSeverity *valueobject.FlagSeverity

	SenderID     uuid.UUID
	SenderName   string
	ReceiverID   uuid.UUID
	ReceiverName string
	CopyReason   valueobject.CopyReason

	TargetMessageID     uuid.UUID
	TargetMessageBody   string
	TargetMessageSentAt time.Time
	ListingTitle        *string

	Snapshot  ConversationSnapshot
	CreatedAt time.Time
}

// NewArchiveRecord фиксирует решение по копии на момент вызова.
// Решение выводится из флага копии, причина и уровень копируются, а не ссылаются.
func NewArchiveRecord(mc *MessageCopy, snapshot ConversationSnapshot, decidedBy uuid.UUID, decidedByName string, notes *string, now time.Time) (*ArchiveRecord, error) {
	if mc.IsArchived() {
		return nil, apperror.ErrAlreadyArchived
	}

	// Тело берётся из снимка; если исходное сообщение уже недоступно, используется текст копии.
	targetBody, targetSentAt := mc.MessageBody, mc.SentAt
	if target, ok := findEntry(snapshot, mc.OriginalMessageID); ok {
		targetBody, targetSentAt = target.Body, target.CreatedAt
	}

	rec := &ArchiveRecord{
		ID:                  uuid.New(),
		TenantID:            mc.TenantID,
		CopyID:              mc.ID,
		Decision:            mc.Decision(),
		DecidedBy:           decidedBy,
		DecidedByName:       decidedByName,
		DecidedAt:           now,
		DecisionNotes:       normalizeNotes(notes),
		SenderID:            mc.SenderID,
		SenderName:          mc.SenderName,
		ReceiverID:          mc.ReceiverID,
		ReceiverName:        mc.ReceiverName,
		CopyReason:          mc.CopyReason,
		TargetMessageID:     mc.OriginalMessageID,
		TargetMessageBody:   targetBody,
		TargetMessageSentAt: targetSentAt,
		ListingTitle:        cloneString(mc.ListingTitle),
		Snapshot:            snapshot,
		CreatedAt:           now,
	}

	if rec.Decision == valueobject.ArchiveDecisionFlagged {
		rec.FlagReason = cloneString(mc.FlagReason)
		if mc.FlagSeverity != nil {
			sev := *mc.FlagSeverity
			rec.FlagSeverity = &sev
		}
	}

	return rec, nil
}

func findEntry(snapshot ConversationSnapshot, messageID uuid.UUID) (SnapshotEntry, bool) {
	for _, e := range snapshot.entries {
		if e.MessageID == messageID {
			return e, true
		}
	}
	return SnapshotEntry{}, false
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
