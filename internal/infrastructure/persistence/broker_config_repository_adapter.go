package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

type BrokerConfigRepositoryAdapter struct {
	db *sqlx.DB
}

func NewBrokerConfigRepositoryAdapter(db *sqlx.DB) *BrokerConfigRepositoryAdapter {
	return &BrokerConfigRepositoryAdapter{db: db}
}

func (r *BrokerConfigRepositoryAdapter) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*entity.BrokerConfig, error) {
	var row brokerConfigRow
	query := `SELECT tenant_id, broker_messaging_enabled, broker_approval_required, copy_first_contact,
			copy_new_member_messages, copy_high_risk_listing_messages, random_sample_percentage,
			broker_copy_threshold_hours, new_member_monitoring_days, retention_days, updated_by, updated_at
		FROM broker_configs WHERE tenant_id = $1`
	if err := r.db.GetContext(ctx, &row, query, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Persistence(err, "не удалось получить настройки брокера")
	}
	return row.toEntity(), nil
}

func (r *BrokerConfigRepositoryAdapter) Upsert(ctx context.Context, cfg *entity.BrokerConfig) error {
	query := `INSERT INTO broker_configs (tenant_id, broker_messaging_enabled, broker_approval_required, copy_first_contact,
			copy_new_member_messages, copy_high_risk_listing_messages, random_sample_percentage,
			broker_copy_threshold_hours, new_member_monitoring_days, retention_days, updated_by, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (tenant_id) DO UPDATE SET
			broker_messaging_enabled = EXCLUDED.broker_messaging_enabled,
			broker_approval_required = EXCLUDED.broker_approval_required,
			copy_first_contact = EXCLUDED.copy_first_contact,
			copy_new_member_messages = EXCLUDED.copy_new_member_messages,
			copy_high_risk_listing_messages = EXCLUDED.copy_high_risk_listing_messages,
			random_sample_percentage = EXCLUDED.random_sample_percentage,
			broker_copy_threshold_hours = EXCLUDED.broker_copy_threshold_hours,
			new_member_monitoring_days = EXCLUDED.new_member_monitoring_days,
			retention_days = EXCLUDED.retention_days,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		cfg.TenantID, cfg.BrokerMessagingEnabled, cfg.BrokerApprovalRequired, cfg.CopyFirstContact,
		cfg.CopyNewMemberMessages, cfg.CopyHighRiskListingMessages, cfg.RandomSamplePercentage,
		cfg.BrokerCopyThresholdHours, cfg.NewMemberMonitoringDays, cfg.RetentionDays, cfg.UpdatedBy, cfg.UpdatedAt,
	)
	if err != nil {
		return apperror.Persistence(err, "не удалось сохранить настройки брокера")
	}
	return nil
}

type brokerConfigRow struct {
	TenantID                    uuid.UUID  `db:"tenant_id"`
	BrokerMessagingEnabled      bool       `db:"broker_messaging_enabled"`
	BrokerApprovalRequired      bool       `db:"broker_approval_required"`
	CopyFirstContact            bool       `db:"copy_first_contact"`
	CopyNewMemberMessages       bool       `db:"copy_new_member_messages"`
	CopyHighRiskListingMessages bool       `db:"copy_high_risk_listing_messages"`
	RandomSamplePercentage      int        `db:"random_sample_percentage"`
	BrokerCopyThresholdHours    float64    `db:"broker_copy_threshold_hours"`
	NewMemberMonitoringDays     int        `db:"new_member_monitoring_days"`
	RetentionDays               int        `db:"retention_days"`
	UpdatedBy                   *uuid.UUID `db:"updated_by"`
	UpdatedAt                   time.Time  `db:"updated_at"`
}

func (r *brokerConfigRow) toEntity() *entity.BrokerConfig {
	return &entity.BrokerConfig{
		TenantID:                    r.TenantID,
		BrokerMessagingEnabled:      r.BrokerMessagingEnabled,
		BrokerApprovalRequired:      r.BrokerApprovalRequired,
		CopyFirstContact:            r.CopyFirstContact,
		CopyNewMemberMessages:       r.CopyNewMemberMessages,
		CopyHighRiskListingMessages: r.CopyHighRiskListingMessages,
		RandomSamplePercentage:      r.RandomSamplePercentage,
		BrokerCopyThresholdHours:    r.BrokerCopyThresholdHours,
		NewMemberMonitoringDays:     r.NewMemberMonitoringDays,
		RetentionDays:               r.RetentionDays,
		UpdatedBy:                   r.UpdatedBy,
		UpdatedAt:                   r.UpdatedAt,
	}
}
