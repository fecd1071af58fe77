package moderation

import (
	"context"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
	"github.com/jasperfordesq-ai/nexus-broker/internal/validation"
)

type ApproveAndArchiveInput struct {
	CopyID uuid.UUID
	Notes  *string
}

type ApproveAndArchiveUseCase struct {
	uow     repository.UnitOfWork
	configs ConfigProvider
	events  repository.EventPublisher
}

func NewApproveAndArchiveUseCase(uow repository.UnitOfWork, configs ConfigProvider, events repository.EventPublisher) *ApproveAndArchiveUseCase {
	return &ApproveAndArchiveUseCase{uow: uow, configs: configs, events: events}
}

// Execute закрывает копию: снимает снимок переписки, создаёт архивную запись
// и ставит обратную ссылку на неё в одной транзакции.
func (uc *ApproveAndArchiveUseCase) Execute(ctx context.Context, actor reqctx.Actor, input ApproveAndArchiveInput) (*entity.ArchiveRecord, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateDecisionNotes(input.Notes); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := ensureActive(ctx, uc.configs, actor.TenantID); err != nil {
		return nil, err
	}

	ts := now()
	var (
		record *entity.ArchiveRecord
		closed *entity.MessageCopy
	)
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, tx repository.ModerationTx) error {
		mc, err := tx.LockCopy(ctx, actor.TenantID, input.CopyID)
		if err != nil {
			return err
		}
		if mc.IsArchived() {
			return apperror.ErrAlreadyArchived
		}

		thread, err := tx.LoadThread(ctx, actor.TenantID, mc.OriginalMessageID)
		if err != nil {
			return err
		}

		rec, err := entity.NewArchiveRecord(mc, entity.BuildSnapshot(thread, ts), actor.UserID, actor.Name, input.Notes, ts)
		if err != nil {
			return err
		}
		if err := tx.CreateArchive(ctx, rec); err != nil {
			return err
		}

		expected := mc.Version
		if err := mc.CloseArchived(rec.ID, ts); err != nil {
			return err
		}
		if err := tx.SaveCopyStatus(ctx, mc, expected); err != nil {
			return err
		}
		if err := tx.AppendActivity(ctx, entity.NewCopyActivity(mc, actor.UserID, valueobject.ActivityMessageArchived, string(rec.Decision), ts)); err != nil {
			return err
		}

		record, closed = rec, mc
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, uc.events, actor, entity.NewModerationEvent(closed, actor.UserID, valueobject.ActivityMessageArchived, ts))
	return record, nil
}
