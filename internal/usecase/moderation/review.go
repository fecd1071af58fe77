package moderation

import (
	"context"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
)

type MarkReviewedUseCase struct {
	uow     repository.UnitOfWork
	configs ConfigProvider
	events  repository.EventPublisher
}

func NewMarkReviewedUseCase(uow repository.UnitOfWork, configs ConfigProvider, events repository.EventPublisher) *MarkReviewedUseCase {
	return &MarkReviewedUseCase{uow: uow, configs: configs, events: events}
}

// Execute ставит отметку о просмотре. Повторный вызов ничего не меняет и не пишет в журнал.
func (uc *MarkReviewedUseCase) Execute(ctx context.Context, actor reqctx.Actor, copyID uuid.UUID) (*entity.MessageCopy, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	if err := ensureActive(ctx, uc.configs, actor.TenantID); err != nil {
		return nil, err
	}

	ts := now()
	var (
		result  *entity.MessageCopy
		changed bool
	)
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, tx repository.ModerationTx) error {
		mc, err := tx.LockCopy(ctx, actor.TenantID, copyID)
		if err != nil {
			return err
		}

		expected := mc.Version
		changed, err = mc.MarkReviewed(actor.UserID, ts)
		if err != nil {
			return err
		}
		result = mc
		if !changed {
			return nil
		}

		if err := tx.SaveCopyStatus(ctx, mc, expected); err != nil {
			return err
		}
		return tx.AppendActivity(ctx, entity.NewCopyActivity(mc, actor.UserID, valueobject.ActivityMessageReviewed, "", ts))
	})
	if err != nil {
		return nil, err
	}

	if changed {
		publish(ctx, uc.events, actor, entity.NewModerationEvent(result, actor.UserID, valueobject.ActivityMessageReviewed, ts))
	}
	return result, nil
}
