package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/logger"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
)

// ConfigProvider отдаёт действующую конфигурацию брокера сообщества.
type ConfigProvider interface {
	ForTenant(ctx context.Context, tenantID uuid.UUID) (*entity.BrokerConfig, error)
}

func authorize(actor reqctx.Actor) error {
	if !actor.Valid() {
		return apperror.ErrUnauthorized
	}
	if !actor.CanModerate() {
		return apperror.ErrForbidden
	}
	return nil
}

// ensureActive запрещает изменения, если модерация в сообществе выключена.
func ensureActive(ctx context.Context, configs ConfigProvider, tenantID uuid.UUID) error {
	if configs == nil {
		return nil
	}
	cfg, err := configs.ForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if !cfg.ModerationActive() {
		return apperror.ErrModerationDisabled
	}
	return nil
}

func publish(ctx context.Context, events repository.EventPublisher, actor reqctx.Actor, ev entity.ModerationEvent) {
	if events == nil {
		return
	}
	ev.BasePath = actor.BasePath
	if err := events.Publish(ctx, ev); err != nil {
		logger.Get().WithError(err).WithFields(logrus.Fields{
			"event":     ev.Type,
			"tenant_id": ev.TenantID,
			"copy_id":   ev.CopyID,
		}).Warn("не удалось опубликовать событие модерации")
	}
}

func now() time.Time {
	return time.Now().UTC()
}
