package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
)

// TenantBroadcaster рассылает события подключённым брокерам сообщества.
type TenantBroadcaster interface {
	BroadcastToTenant(tenantID uuid.UUID, event string, data any) error
}

type HubPublisher struct {
	hub TenantBroadcaster
}

func NewHubPublisher(hub TenantBroadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, ev entity.ModerationEvent) error {
	return p.hub.BroadcastToTenant(ev.TenantID, string(ev.Type), ev)
}
