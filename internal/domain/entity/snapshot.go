package entity

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// RedactedBody подставляется вместо текста удалённого сообщения.
const RedactedBody = "[message deleted]"

// ThreadMessage — живая строка сообщения из переписки.
type ThreadMessage struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	SenderID     uuid.UUID
	SenderName   string
	ReceiverID   uuid.UUID
	ReceiverName string
	Body         string
	CreatedAt    time.Time
	IsEdited     bool
	IsDeleted    bool
}

// SnapshotEntry — замороженное состояние одного сообщения на момент архивации.
type SnapshotEntry struct {
	MessageID  uuid.UUID `json:"message_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
	IsEdited   bool      `json:"is_edited"`
	IsDeleted  bool      `json:"is_deleted"`
}

// ConversationSnapshot — неизменяемый снимок переписки.
type ConversationSnapshot struct {
	entries    []SnapshotEntry
	capturedAt time.Time
}

// BuildSnapshot копирует сообщения в снимок в хронологическом порядке.
// Входные строки не сохраняются, снимок не зависит от дальнейших изменений переписки.
func BuildSnapshot(messages []*ThreadMessage, capturedAt time.Time) ConversationSnapshot {
	entries := make([]SnapshotEntry, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.Body
		if msg.IsDeleted {
			body = RedactedBody
		}
		entries = append(entries, SnapshotEntry{
			MessageID:  msg.ID,
			SenderID:   msg.SenderID,
			SenderName: msg.SenderName,
			Body:       body,
			CreatedAt:  msg.CreatedAt,
			IsEdited:   msg.IsEdited,
			IsDeleted:  msg.IsDeleted,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].MessageID.String() < entries[j].MessageID.String()
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return ConversationSnapshot{entries: entries, capturedAt: capturedAt}
}

// Entries возвращает копию записей снимка.
func (s ConversationSnapshot) Entries() []SnapshotEntry {
	out := make([]SnapshotEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s ConversationSnapshot) Len() int {
	return len(s.entries)
}

func (s ConversationSnapshot) CapturedAt() time.Time {
	return s.capturedAt
}

type snapshotJSON struct {
	CapturedAt time.Time       `json:"captured_at"`
	Messages   []SnapshotEntry `json:"messages"`
}

func (s ConversationSnapshot) MarshalJSON() ([]byte, error) {
	entries := s.entries
	if entries == nil {
		entries = []SnapshotEntry{}
	}
	return json.Marshal(snapshotJSON{CapturedAt: s.capturedAt, Messages: entries})
}

func (s *ConversationSnapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.entries = raw.Messages
	s.capturedAt = raw.CapturedAt
	return nil
}
