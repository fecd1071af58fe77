package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/brokerconfig"
)

// UpdateBrokerConfigRequest — отсутствующие поля не меняются.
type UpdateBrokerConfigRequest struct {
	BrokerMessagingEnabled      *bool    `json:"broker_messaging_enabled"`
	BrokerApprovalRequired      *bool    `json:"broker_approval_required"`
	CopyFirstContact            *bool    `json:"copy_first_contact"`
	CopyNewMemberMessages       *bool    `json:"copy_new_member_messages"`
	CopyHighRiskListingMessages *bool    `json:"copy_high_risk_listing_messages"`
	RandomSamplePercentage      *int     `json:"random_sample_percentage"`
	BrokerCopyThresholdHours    *float64 `json:"broker_copy_threshold_hours"`
	NewMemberMonitoringDays     *int     `json:"new_member_monitoring_days"`
	RetentionDays               *int     `json:"retention_days"`
}

func (r UpdateBrokerConfigRequest) ToInput() brokerconfig.UpdateBrokerConfigInput {
	return brokerconfig.UpdateBrokerConfigInput(r)
}

type BrokerConfigResponse struct {
	BrokerMessagingEnabled      bool       `json:"broker_messaging_enabled"`
	BrokerApprovalRequired      bool       `json:"broker_approval_required"`
	CopyFirstContact            bool       `json:"copy_first_contact"`
	CopyNewMemberMessages       bool       `json:"copy_new_member_messages"`
	CopyHighRiskListingMessages bool       `json:"copy_high_risk_listing_messages"`
	RandomSamplePercentage      int        `json:"random_sample_percentage"`
	BrokerCopyThresholdHours    float64    `json:"broker_copy_threshold_hours"`
	NewMemberMonitoringDays     int        `json:"new_member_monitoring_days"`
	RetentionDays               int        `json:"retention_days"`
	UpdatedBy                   *uuid.UUID `json:"updated_by"`
	UpdatedAt                   *time.Time `json:"updated_at"`
}

func ToBrokerConfigResponse(cfg *entity.BrokerConfig) BrokerConfigResponse {
	resp := BrokerConfigResponse{
		BrokerMessagingEnabled:      cfg.BrokerMessagingEnabled,
		BrokerApprovalRequired:      cfg.BrokerApprovalRequired,
		CopyFirstContact:            cfg.CopyFirstContact,
		CopyNewMemberMessages:       cfg.CopyNewMemberMessages,
		CopyHighRiskListingMessages: cfg.CopyHighRiskListingMessages,
		RandomSamplePercentage:      cfg.RandomSamplePercentage,
		BrokerCopyThresholdHours:    cfg.BrokerCopyThresholdHours,
		NewMemberMonitoringDays:     cfg.NewMemberMonitoringDays,
		RetentionDays:               cfg.RetentionDays,
		UpdatedBy:                   cfg.UpdatedBy,
	}
	if !cfg.UpdatedAt.IsZero() {
		t := cfg.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}
