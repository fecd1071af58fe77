package moderation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
	"github.com/jasperfordesq-ai/nexus-broker/internal/validation"
)

type FlagCopyInput struct {
	CopyID   uuid.UUID
	Reason   string
	Severity string
}

type FlagCopyUseCase struct {
	uow     repository.UnitOfWork
	configs ConfigProvider
	events  repository.EventPublisher
}

func NewFlagCopyUseCase(uow repository.UnitOfWork, configs ConfigProvider, events repository.EventPublisher) *FlagCopyUseCase {
	return &FlagCopyUseCase{uow: uow, configs: configs, events: events}
}

// Execute помечает копию. Причина и уровень серьёзности проверяются до обращения к базе.
func (uc *FlagCopyUseCase) Execute(ctx context.Context, actor reqctx.Actor, input FlagCopyInput) (*entity.MessageCopy, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateFlagReason(input.Reason); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	severity, err := valueobject.NewFlagSeverity(input.Severity)
	if err != nil {
		return nil, err
	}
	if err := ensureActive(ctx, uc.configs, actor.TenantID); err != nil {
		return nil, err
	}

	ts := now()
	reason := strings.TrimSpace(input.Reason)
	var result *entity.MessageCopy
	err = uc.uow.WithinTx(ctx, func(ctx context.Context, tx repository.ModerationTx) error {
		mc, err := tx.LockCopy(ctx, actor.TenantID, input.CopyID)
		if err != nil {
			return err
		}

		expected := mc.Version
		if err := mc.Flag(reason, severity, actor.UserID, ts); err != nil {
			return err
		}
		if err := tx.SaveCopyStatus(ctx, mc, expected); err != nil {
			return err
		}

		details := string(severity) + ": " + reason
		if err := tx.AppendActivity(ctx, entity.NewCopyActivity(mc, actor.UserID, valueobject.ActivityMessageFlagged, details, ts)); err != nil {
			return err
		}
		result = mc
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, uc.events, actor, entity.NewModerationEvent(result, actor.UserID, valueobject.ActivityMessageFlagged, ts))
	return result, nil
}
