package valueobject

import (
	"strings"

	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

// CopyReason — правило, по которому сообщение было скопировано брокеру.
type CopyReason string

const (
	CopyReasonFirstContact     CopyReason = "first_contact"
	CopyReasonHighRiskListing  CopyReason = "high_risk_listing"
	CopyReasonNewMember        CopyReason = "new_member"
	CopyReasonFlaggedUser      CopyReason = "flagged_user"
	CopyReasonManualMonitoring CopyReason = "manual_monitoring"
	CopyReasonRandomSample     CopyReason = "random_sample"
)

func (r CopyReason) IsValid() bool {
	switch r {
	case CopyReasonFirstContact, CopyReasonHighRiskListing, CopyReasonNewMember,
		CopyReasonFlaggedUser, CopyReasonManualMonitoring, CopyReasonRandomSample:
		return true
	}
	return false
}

func NewCopyReason(reason string) (CopyReason, error) {
	r := CopyReason(reason)
	if !r.IsValid() {
		return "", apperror.Validation("некорректная причина копирования")
	}
	return r, nil
}

// FlagSeverity — уровень серьёзности пометки. Каноничный набор: info, warning, concern, urgent.
type FlagSeverity string

const (
	FlagSeverityInfo    FlagSeverity = "info"
	FlagSeverityWarning FlagSeverity = "warning"
	FlagSeverityConcern FlagSeverity = "concern"
	FlagSeverityUrgent  FlagSeverity = "urgent"
)

func (s FlagSeverity) IsValid() bool {
	switch s {
	case FlagSeverityInfo, FlagSeverityWarning, FlagSeverityConcern, FlagSeverityUrgent:
		return true
	}
	return false
}

// NewFlagSeverity разбирает уровень серьёзности. Значение "serious" из старого списка не принимается.
func NewFlagSeverity(severity string) (FlagSeverity, error) {
	s := FlagSeverity(strings.ToLower(strings.TrimSpace(severity)))
	if !s.IsValid() {
		return "", apperror.Validation("некорректный уровень серьёзности: допустимы info, warning, concern, urgent")
	}
	return s, nil
}

// ArchiveDecision — итоговое решение, зафиксированное в архиве.
type ArchiveDecision string

const (
	ArchiveDecisionApproved ArchiveDecision = "approved"
	ArchiveDecisionFlagged  ArchiveDecision = "flagged"
)

func (d ArchiveDecision) IsValid() bool {
	return d == ArchiveDecisionApproved || d == ArchiveDecisionFlagged
}

// NewArchiveDecisionFilter разбирает фильтр решения; пустая строка означает «все».
func NewArchiveDecisionFilter(decision string) (*ArchiveDecision, error) {
	if decision == "" || decision == "all" {
		return nil, nil
	}
	d := ArchiveDecision(decision)
	if !d.IsValid() {
		return nil, apperror.Validation("некорректный фильтр решения")
	}
	return &d, nil
}

// CopyState — производное состояние копии в автомате модерации.
type CopyState string

const (
	CopyStatePending  CopyState = "pending"
	CopyStateReviewed CopyState = "reviewed"
	CopyStateFlagged  CopyState = "flagged"
	CopyStateArchived CopyState = "archived"
)

// CopyStatusFilter — фильтр списка копий в админке.
type CopyStatusFilter string

const (
	CopyFilterUnreviewed CopyStatusFilter = "unreviewed"
	CopyFilterFlagged    CopyStatusFilter = "flagged"
	CopyFilterReviewed   CopyStatusFilter = "reviewed"
	CopyFilterAll        CopyStatusFilter = "all"
)

func NewCopyStatusFilter(status string) (CopyStatusFilter, error) {
	if status == "" {
		return CopyFilterUnreviewed, nil
	}
	s := CopyStatusFilter(status)
	switch s {
	case CopyFilterUnreviewed, CopyFilterFlagged, CopyFilterReviewed, CopyFilterAll:
		return s, nil
	}
	return "", apperror.Validation("некорректный фильтр статуса")
}

// ActivityType — тип записи в журнале действий.
type ActivityType string

const (
	ActivityMessageReviewed ActivityType = "message_reviewed"
	ActivityMessageFlagged  ActivityType = "message_flagged"
	ActivityMessageArchived ActivityType = "message_archived"
)
