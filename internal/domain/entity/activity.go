package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
)

// EntityTypeMessageCopy — тип сущности в журнале действий.
const EntityTypeMessageCopy = "broker_message_copy"

// Activity — запись журнала действий брокера.
type Activity struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ActorID    uuid.UUID
	ActionType valueobject.ActivityType
	EntityType string
	EntityID   uuid.UUID
	Details    *string
	CreatedAt  time.Time
}

func NewCopyActivity(mc *MessageCopy, actorID uuid.UUID, action valueobject.ActivityType, details string, now time.Time) *Activity {
	a := &Activity{
		ID:         uuid.New(),
		TenantID:   mc.TenantID,
		ActorID:    actorID,
		ActionType: action,
		EntityType: EntityTypeMessageCopy,
		EntityID:   mc.ID,
		CreatedAt:  now,
	}
	if details != "" {
		a.Details = &details
	}
	return a
}

// ModerationEvent публикуется после фиксации транзакции.
// BasePath — базовый путь сообщества, по нему клиент строит ссылку на копию.
type ModerationEvent struct {
	Type       valueobject.ActivityType `json:"type"`
	TenantID   uuid.UUID                `json:"tenant_id"`
	CopyID     uuid.UUID                `json:"copy_id"`
	ActorID    uuid.UUID                `json:"actor_id"`
	State      valueobject.CopyState    `json:"state"`
	ArchiveID  *uuid.UUID               `json:"archive_id,omitempty"`
	Decision   string                   `json:"decision,omitempty"`
	BasePath   string                   `json:"base_path,omitempty"`
	OccurredAt time.Time                `json:"occurred_at"`
}

func NewModerationEvent(mc *MessageCopy, actorID uuid.UUID, action valueobject.ActivityType, now time.Time) ModerationEvent {
	ev := ModerationEvent{
		Type:       action,
		TenantID:   mc.TenantID,
		CopyID:     mc.ID,
		ActorID:    actorID,
		State:      mc.State(),
		OccurredAt: now,
	}
	if mc.ArchiveID != nil {
		id := *mc.ArchiveID
		ev.ArchiveID = &id
		ev.Decision = string(mc.Decision())
	}
	return ev
}
