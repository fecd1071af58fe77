package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

// BrokerConfig — типизированные настройки модерации сообщества.
type BrokerConfig struct {
	TenantID                    uuid.UUID
	BrokerMessagingEnabled      bool
	BrokerApprovalRequired      bool
	CopyFirstContact            bool
	CopyNewMemberMessages       bool
	CopyHighRiskListingMessages bool
	RandomSamplePercentage      int
	BrokerCopyThresholdHours    float64
	NewMemberMonitoringDays     int
	RetentionDays               int
	UpdatedBy                   *uuid.UUID
	UpdatedAt                   time.Time
}

// DefaultBrokerConfig возвращает настройки для сообщества без сохранённой конфигурации.
func DefaultBrokerConfig(tenantID uuid.UUID) *BrokerConfig {
	return &BrokerConfig{
		TenantID:                    tenantID,
		BrokerMessagingEnabled:      true,
		BrokerApprovalRequired:      true,
		CopyFirstContact:            true,
		CopyNewMemberMessages:       true,
		CopyHighRiskListingMessages: true,
		RandomSamplePercentage:      0,
		BrokerCopyThresholdHours:    5,
		NewMemberMonitoringDays:     30,
		RetentionDays:               2555,
	}
}

// Validate проверяет границы всех числовых полей.
func (c *BrokerConfig) Validate() error {
	if c.RandomSamplePercentage < 0 || c.RandomSamplePercentage > 100 {
		return apperror.Validation("random_sample_percentage должен быть от 0 до 100")
	}
	if c.BrokerCopyThresholdHours < 0 {
		return apperror.Validation("broker_copy_threshold_hours не может быть отрицательным")
	}
	if c.NewMemberMonitoringDays < 0 {
		return apperror.Validation("new_member_monitoring_days не может быть отрицательным")
	}
	if c.RetentionDays < 1 {
		return apperror.Validation("retention_days должен быть не меньше 1")
	}
	return nil
}

// ModerationActive сообщает, разрешены ли действия брокера.
func (c *BrokerConfig) ModerationActive() bool {
	return c.BrokerMessagingEnabled
}
