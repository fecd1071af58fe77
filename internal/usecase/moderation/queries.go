package moderation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
	"github.com/jasperfordesq-ai/nexus-broker/internal/validation"
)

type ListCopiesInput struct {
	Status string
	Search string
	Limit  int
	Offset int
}

type ListCopiesUseCase struct {
	copies repository.MessageCopyRepository
}

func NewListCopiesUseCase(copies repository.MessageCopyRepository) *ListCopiesUseCase {
	return &ListCopiesUseCase{copies: copies}
}

func (uc *ListCopiesUseCase) Execute(ctx context.Context, actor reqctx.Actor, input ListCopiesInput) ([]*entity.MessageCopy, int, error) {
	if err := authorize(actor); err != nil {
		return nil, 0, err
	}
	status, err := valueobject.NewCopyStatusFilter(input.Status)
	if err != nil {
		return nil, 0, err
	}
	search, err := validation.NormalizeSearch(input.Search)
	if err != nil {
		return nil, 0, apperror.Validation(err.Error())
	}
	limit, offset := validation.NormalizePage(input.Limit, input.Offset)

	return uc.copies.List(ctx, repository.CopyFilter{
		TenantID: actor.TenantID,
		Status:   status,
		Search:   search,
		Limit:    limit,
		Offset:   offset,
	})
}

// CopyDetails — копия вместе с текущим состоянием переписки.
type CopyDetails struct {
	Copy   *entity.MessageCopy
	Thread entity.ConversationSnapshot
}

type GetCopyUseCase struct {
	copies  repository.MessageCopyRepository
	threads repository.ThreadRepository
}

func NewGetCopyUseCase(copies repository.MessageCopyRepository, threads repository.ThreadRepository) *GetCopyUseCase {
	return &GetCopyUseCase{copies: copies, threads: threads}
}

func (uc *GetCopyUseCase) Execute(ctx context.Context, actor reqctx.Actor, copyID uuid.UUID) (*CopyDetails, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	mc, err := uc.copies.FindByID(ctx, actor.TenantID, copyID)
	if err != nil {
		return nil, err
	}
	thread, err := uc.threads.FindThreadByMessageID(ctx, actor.TenantID, mc.OriginalMessageID)
	if err != nil {
		return nil, err
	}
	return &CopyDetails{Copy: mc, Thread: entity.BuildSnapshot(thread, time.Now().UTC())}, nil
}

type CopyStatsUseCase struct {
	copies repository.MessageCopyRepository
}

func NewCopyStatsUseCase(copies repository.MessageCopyRepository) *CopyStatsUseCase {
	return &CopyStatsUseCase{copies: copies}
}

func (uc *CopyStatsUseCase) Execute(ctx context.Context, actor reqctx.Actor) (repository.CopyStats, error) {
	if err := authorize(actor); err != nil {
		return repository.CopyStats{}, err
	}
	return uc.copies.Stats(ctx, actor.TenantID)
}

type GetArchiveUseCase struct {
	archives repository.ArchiveRepository
}

func NewGetArchiveUseCase(archives repository.ArchiveRepository) *GetArchiveUseCase {
	return &GetArchiveUseCase{archives: archives}
}

// Execute возвращает архивную запись. Запись чужого сообщества не отличается от отсутствующей.
func (uc *GetArchiveUseCase) Execute(ctx context.Context, actor reqctx.Actor, archiveID uuid.UUID) (*entity.ArchiveRecord, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	return uc.archives.FindByID(ctx, actor.TenantID, archiveID)
}

type ListArchivesInput struct {
	Decision string
	Search   string
	Limit    int
	Offset   int
}

type ListArchivesUseCase struct {
	archives repository.ArchiveRepository
}

func NewListArchivesUseCase(archives repository.ArchiveRepository) *ListArchivesUseCase {
	return &ListArchivesUseCase{archives: archives}
}

// Execute возвращает страницу архива, новые записи первыми.
func (uc *ListArchivesUseCase) Execute(ctx context.Context, actor reqctx.Actor, input ListArchivesInput) ([]*entity.ArchiveRecord, int, error) {
	if err := authorize(actor); err != nil {
		return nil, 0, err
	}
	decision, err := valueobject.NewArchiveDecisionFilter(input.Decision)
	if err != nil {
		return nil, 0, err
	}
	search, err := validation.NormalizeSearch(input.Search)
	if err != nil {
		return nil, 0, apperror.Validation(err.Error())
	}
	limit, offset := validation.NormalizePage(input.Limit, input.Offset)

	return uc.archives.List(ctx, repository.ArchiveFilter{
		TenantID: actor.TenantID,
		Decision: decision,
		Search:   search,
		Limit:    limit,
		Offset:   offset,
	})
}
