package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/entity"
	"github.com/jasperfordesq-ai/nexus-broker/internal/domain/repository"
)

// FlagCopyRequest проверяется в use case, чтобы пустая причина давала VALIDATION_ERROR.
type FlagCopyRequest struct {
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

type ApproveCopyRequest struct {
	Notes *string `json:"notes"`
}

type MessageCopyResponse struct {
	ID                uuid.UUID  `json:"id"`
	State             string     `json:"state"`
	SenderID          uuid.UUID  `json:"sender_id"`
	SenderName        string     `json:"sender_name"`
	ReceiverID        uuid.UUID  `json:"receiver_id"`
	ReceiverName      string     `json:"receiver_name"`
	OriginalMessageID uuid.UUID  `json:"original_message_id"`
	MessageBody       string     `json:"message_body"`
	ListingID         *uuid.UUID `json:"listing_id"`
	ListingTitle      *string    `json:"listing_title"`
	CopyReason        string     `json:"copy_reason"`
	SentAt            time.Time  `json:"sent_at"`
	ReviewedAt        *time.Time `json:"reviewed_at"`
	ReviewedBy        *uuid.UUID `json:"reviewed_by"`
	Flagged           bool       `json:"flagged"`
	FlagReason        *string    `json:"flag_reason"`
	FlagSeverity      *string    `json:"flag_severity"`
	FlaggedBy         *uuid.UUID `json:"flagged_by"`
	FlaggedAt         *time.Time `json:"flagged_at"`
	ArchiveID         *uuid.UUID `json:"archive_id"`
	ArchivedAt        *time.Time `json:"archived_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

func ToMessageCopyResponse(mc *entity.MessageCopy) MessageCopyResponse {
	resp := MessageCopyResponse{
		ID:                mc.ID,
		State:             string(mc.State()),
		SenderID:          mc.SenderID,
		SenderName:        mc.SenderName,
		ReceiverID:        mc.ReceiverID,
		ReceiverName:      mc.ReceiverName,
		OriginalMessageID: mc.OriginalMessageID,
		MessageBody:       mc.MessageBody,
		ListingID:         mc.ListingID,
		ListingTitle:      mc.ListingTitle,
		CopyReason:        string(mc.CopyReason),
		SentAt:            mc.SentAt,
		ReviewedAt:        mc.ReviewedAt,
		ReviewedBy:        mc.ReviewedBy,
		Flagged:           mc.Flagged,
		FlagReason:        mc.FlagReason,
		FlaggedBy:         mc.FlaggedBy,
		FlaggedAt:         mc.FlaggedAt,
		ArchiveID:         mc.ArchiveID,
		ArchivedAt:        mc.ArchivedAt,
		CreatedAt:         mc.CreatedAt,
	}
	if mc.FlagSeverity != nil {
		s := string(*mc.FlagSeverity)
		resp.FlagSeverity = &s
	}
	return resp
}

func ToMessageCopyList(items []*entity.MessageCopy) []MessageCopyResponse {
	result := make([]MessageCopyResponse, len(items))
	for i, mc := range items {
		result[i] = ToMessageCopyResponse(mc)
	}
	return result
}

type CopyDetailsResponse struct {
	Copy   MessageCopyResponse    `json:"copy"`
	Thread []entity.SnapshotEntry `json:"thread"`
}

func ToCopyDetailsResponse(mc *entity.MessageCopy, thread entity.ConversationSnapshot) CopyDetailsResponse {
	return CopyDetailsResponse{
		Copy:   ToMessageCopyResponse(mc),
		Thread: thread.Entries(),
	}
}

type CopyStatsResponse struct {
	Unreviewed       int `json:"unreviewed"`
	Flagged          int `json:"flagged"`
	Reviewed         int `json:"reviewed"`
	Archived         int `json:"archived"`
	ArchivedApproved int `json:"archived_approved"`
	ArchivedFlagged  int `json:"archived_flagged"`
}

func ToCopyStatsResponse(s repository.CopyStats) CopyStatsResponse {
	return CopyStatsResponse(s)
}

type ArchiveSummaryResponse struct {
	ID            uuid.UUID `json:"id"`
	CopyID        uuid.UUID `json:"copy_id"`
	Decision      string    `json:"decision"`
	DecidedBy     uuid.UUID `json:"decided_by"`
	DecidedByName string    `json:"decided_by_name"`
	DecidedAt     time.Time `json:"decided_at"`
	SenderName    string    `json:"sender_name"`
	ReceiverName  string    `json:"receiver_name"`
	CopyReason    string    `json:"copy_reason"`
	FlagSeverity  *string   `json:"flag_severity"`
	MessageCount  int       `json:"message_count"`
}

type ArchiveResponse struct {
	ArchiveSummaryResponse
	DecisionNotes       *string                     `json:"decision_notes"`
	FlagReason          *string                     `json:"flag_reason"`
	SenderID            uuid.UUID                   `json:"sender_id"`
	ReceiverID          uuid.UUID                   `json:"receiver_id"`
	TargetMessageID     uuid.UUID                   `json:"target_message_id"`
	TargetMessageBody   string                      `json:"target_message_body"`
	TargetMessageSentAt time.Time                   `json:"target_message_sent_at"`
	ListingTitle        *string                     `json:"listing_title"`
	Snapshot            entity.ConversationSnapshot `json:"snapshot"`
}

func ToArchiveSummaryResponse(rec *entity.ArchiveRecord) ArchiveSummaryResponse {
	resp := ArchiveSummaryResponse{
		ID:            rec.ID,
		CopyID:        rec.CopyID,
		Decision:      string(rec.Decision),
		DecidedBy:     rec.DecidedBy,
		DecidedByName: rec.DecidedByName,
		DecidedAt:     rec.DecidedAt,
		SenderName:    rec.SenderName,
		ReceiverName:  rec.ReceiverName,
		CopyReason:    string(rec.CopyReason),
		MessageCount:  rec.Snapshot.Len(),
	}
	if rec.FlagSeverity != nil {
		s := string(*rec.FlagSeverity)
		resp.FlagSeverity = &s
	}
	return resp
}

func ToArchiveResponse(rec *entity.ArchiveRecord) ArchiveResponse {
	return ArchiveResponse{
		ArchiveSummaryResponse: ToArchiveSummaryResponse(rec),
		DecisionNotes:          rec.DecisionNotes,
		FlagReason:             rec.FlagReason,
		SenderID:               rec.SenderID,
		ReceiverID:             rec.ReceiverID,
		TargetMessageID:        rec.TargetMessageID,
		TargetMessageBody:      rec.TargetMessageBody,
		TargetMessageSentAt:    rec.TargetMessageSentAt,
		ListingTitle:           rec.ListingTitle,
		Snapshot:               rec.Snapshot,
	}
}

func ToArchiveSummaryList(items []*entity.ArchiveRecord) []ArchiveSummaryResponse {
	result := make([]ArchiveSummaryResponse, len(items))
	for i, rec := range items {
		result[i] = ToArchiveSummaryResponse(rec)
	}
	return result
}
