package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/valueobject"
)

type CopyFilter struct {
	TenantID uuid.UUID
	Status   valueobject.CopyStatusFilter
	Search   string
	Limit    int
	Offset   int
}

type ArchiveFilter struct {
	TenantID uuid.UUID
	Decision *valueobject.ArchiveDecision
	Search   string
	Limit    int
	Offset   int
}

type CopyStats struct {
	Unreviewed       int `db:"unreviewed"`
	Flagged          int `db:"flagged"`
	Reviewed         int `db:"reviewed"`
	Archived         int `db:"archived"`
	ArchivedApproved int `db:"archived_approved"`
	ArchivedFlagged  int `db:"archived_flagged"`
}

// MessageCopyRepository — чтение копий вне транзакции модерации.
type MessageCopyRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.MessageCopy, error)
	List(ctx context.Context, filter CopyFilter) ([]*entity.MessageCopy, int, error)
	Stats(ctx context.Context, tenantID uuid.UUID) (CopyStats, error)
}

type ThreadRepository interface {
	// FindThreadByMessageID возвращает всю переписку, в которую входит сообщение.
	FindThreadByMessageID(ctx context.Context, tenantID, messageID uuid.UUID) ([]*entity.ThreadMessage, error)
}

type ArchiveRepository interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*entity.ArchiveRecord, error)
	List(ctx context.Context, filter ArchiveFilter) ([]*entity.ArchiveRecord, int, error)
}

// ModerationTx — операции, выполняемые внутри одной транзакции модерации.
type ModerationTx interface {
	// LockCopy читает копию с блокировкой строки до конца транзакции.
	LockCopy(ctx context.Context, tenantID, id uuid.UUID) (*entity.MessageCopy, error)
	// SaveCopyStatus сохраняет статусные поля, если версия в базе равна expectedVersion.
	SaveCopyStatus(ctx context.Context, mc *entity.MessageCopy, expectedVersion int) error
	LoadThread(ctx context.Context, tenantID, messageID uuid.UUID) ([]*entity.ThreadMessage, error)
	CreateArchive(ctx context.Context, rec *entity.ArchiveRecord) error
	AppendActivity(ctx context.Context, activity *entity.Activity) error
}

// UnitOfWork выполняет fn в транзакции: ошибка fn откатывает все изменения.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx ModerationTx) error) error
}

type BrokerConfigRepository interface {
	// FindByTenant возвращает nil, nil, если конфигурация ещё не сохранялась.
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*entity.BrokerConfig, error)
	Upsert(ctx context.Context, cfg *entity.BrokerConfig) error
}

// EventPublisher рассылает события модерации после фиксации транзакции.
// Ошибка публикации не влияет на результат операции.
type EventPublisher interface {
	Publish(ctx context.Context, event entity.ModerationEvent) error
}
