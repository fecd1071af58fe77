package brokerconfig

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
	"github.com/jasperfordesq-ai/nexus-broker/internal/service"
)

type GetBrokerConfigUseCase struct {
	repo  repository.BrokerConfigRepository
	cache *service.CacheService
	ttl   time.Duration
}

func NewGetBrokerConfigUseCase(repo repository.BrokerConfigRepository, cache *service.CacheService, ttl time.Duration) *GetBrokerConfigUseCase {
	return &GetBrokerConfigUseCase{repo: repo, cache: cache, ttl: ttl}
}

func (uc *GetBrokerConfigUseCase) Execute(ctx context.Context, actor reqctx.Actor) (*entity.BrokerConfig, error) {
	if !actor.Valid() {
		return nil, apperror.ErrUnauthorized
	}
	if !actor.CanModerate() {
		return nil, apperror.ErrForbidden
	}
	return uc.ForTenant(ctx, actor.TenantID)
}

// ForTenant возвращает настройки сообщества или значения по умолчанию, если строки нет.
func (uc *GetBrokerConfigUseCase) ForTenant(ctx context.Context, tenantID uuid.UUID) (*entity.BrokerConfig, error) {
	load := func() (interface{}, error) {
		cfg, err := uc.repo.FindByTenant(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if cfg == nil {
			cfg = entity.DefaultBrokerConfig(tenantID)
		}
		return cfg, nil
	}

	if uc.cache == nil {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return v.(*entity.BrokerConfig), nil
	}

	v, err := uc.cache.GetOrSet(service.BrokerConfigCacheKey(tenantID), uc.ttl, load)
	if err != nil {
		return nil, err
	}
	// Отдаём копию, чтобы вызывающий код не менял закэшированное значение.
	cfg := *v.(*entity.BrokerConfig)
	return &cfg, nil
}

// UpdateBrokerConfigInput — частичное обновление: nil означает «оставить как есть».
type UpdateBrokerConfigInput struct {
	BrokerMessagingEnabled      *bool
	BrokerApprovalRequired      *bool
	CopyFirstContact            *bool
	CopyNewMemberMessages       *bool
	CopyHighRiskListingMessages *bool
	RandomSamplePercentage      *int
	BrokerCopyThresholdHours    *float64
	NewMemberMonitoringDays     *int
	RetentionDays               *int
}

type UpdateBrokerConfigUseCase struct {
	repo    repository.BrokerConfigRepository
	current *GetBrokerConfigUseCase
	cache   *service.CacheService
}

func NewUpdateBrokerConfigUseCase(repo repository.BrokerConfigRepository, current *GetBrokerConfigUseCase, cache *service.CacheService) *UpdateBrokerConfigUseCase {
	return &UpdateBrokerConfigUseCase{repo: repo, current: current, cache: cache}
}

func (uc *UpdateBrokerConfigUseCase) Execute(ctx context.Context, actor reqctx.Actor, input UpdateBrokerConfigInput) (*entity.BrokerConfig, error) {
	if !actor.Valid() {
		return nil, apperror.ErrUnauthorized
	}
	if !actor.CanConfigure() {
		return nil, apperror.ErrForbidden
	}

	cfg, err := uc.current.ForTenant(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	apply(cfg, input)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	by := actor.UserID
	cfg.UpdatedBy = &by
	cfg.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}
	if uc.cache != nil {
		uc.cache.InvalidateTenant(actor.TenantID)
	}
	return cfg, nil
}

func apply(cfg *entity.BrokerConfig, in UpdateBrokerConfigInput) {
	if in.BrokerMessagingEnabled != nil {
		cfg.BrokerMessagingEnabled = *in.BrokerMessagingEnabled
	}
	if in.BrokerApprovalRequired != nil {
		cfg.BrokerApprovalRequired = *in.BrokerApprovalRequired
	}
	if in.CopyFirstContact != nil {
		cfg.CopyFirstContact = *in.CopyFirstContact
	}
	if in.CopyNewMemberMessages != nil {
		cfg.CopyNewMemberMessages = *in.CopyNewMemberMessages
	}
	if in.CopyHighRiskListingMessages != nil {
		cfg.CopyHighRiskListingMessages = *in.CopyHighRiskListingMessages
	}
	if in.RandomSamplePercentage != nil {
		cfg.RandomSamplePercentage = *in.RandomSamplePercentage
	}
	if in.BrokerCopyThresholdHours != nil {
		cfg.BrokerCopyThresholdHours = *in.BrokerCopyThresholdHours
	}
	if in.NewMemberMonitoringDays != nil {
		cfg.NewMemberMonitoringDays = *in.NewMemberMonitoringDays
	}
	if in.RetentionDays != nil {
		cfg.RetentionDays = *in.RetentionDays
	}
}
