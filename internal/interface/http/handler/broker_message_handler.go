package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/dto"
	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/response"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/moderation"
	"github.com/jasperfordesq-ai/nexus-broker/internal/validation"
)

// BrokerMessageHandler обслуживает очередь копий сообщений брокера.
type BrokerMessageHandler struct {
	listUC    *moderation.ListCopiesUseCase
	getUC     *moderation.GetCopyUseCase
	statsUC   *moderation.CopyStatsUseCase
	reviewUC  *moderation.MarkReviewedUseCase
	flagUC    *moderation.FlagCopyUseCase
	approveUC *moderation.ApproveAndArchiveUseCase
}

func NewBrokerMessageHandler(
	listUC *moderation.ListCopiesUseCase,
	getUC *moderation.GetCopyUseCase,
	statsUC *moderation.CopyStatsUseCase,
	reviewUC *moderation.MarkReviewedUseCase,
	flagUC *moderation.FlagCopyUseCase,
	approveUC *moderation.ApproveAndArchiveUseCase,
) *BrokerMessageHandler {
	return &BrokerMessageHandler{
		listUC:    listUC,
		getUC:     getUC,
		statsUC:   statsUC,
		reviewUC:  reviewUC,
		flagUC:    flagUC,
		approveUC: approveUC,
	}
}

// ListCopies обрабатывает GET /api/admin/broker/messages.
func (h *BrokerMessageHandler) ListCopies(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	limit, offset := validation.NormalizePage(
		parseIntQuery(c, "limit", validation.DefaultPageLimit),
		parseIntQuery(c, "offset", 0),
	)

	items, total, err := h.listUC.Execute(c.Request.Context(), actor, moderation.ListCopiesInput{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToMessageCopyList(items), total, limit, offset)
}

// Stats обрабатывает GET /api/admin/broker/messages/stats.
func (h *BrokerMessageHandler) Stats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	stats, err := h.statsUC.Execute(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToCopyStatsResponse(stats))
}

// GetCopy обрабатывает GET /api/admin/broker/messages/:id.
func (h *BrokerMessageHandler) GetCopy(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	copyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	details, err := h.getUC.Execute(c.Request.Context(), actor, copyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToCopyDetailsResponse(details.Copy, details.Thread))
}

// Review обрабатывает POST /api/admin/broker/messages/:id/review.
func (h *BrokerMessageHandler) Review(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	copyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	mc, err := h.reviewUC.Execute(c.Request.Context(), actor, copyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMessageCopyResponse(mc))
}

// Flag обрабатывает POST /api/admin/broker/messages/:id/flag.
func (h *BrokerMessageHandler) Flag(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	copyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.FlagCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	mc, err := h.flagUC.Execute(c.Request.Context(), actor, moderation.FlagCopyInput{
		CopyID:   copyID,
		Reason:   req.Reason,
		Severity: req.Severity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMessageCopyResponse(mc))
}

// Approve обрабатывает POST /api/admin/broker/messages/:id/approve.
func (h *BrokerMessageHandler) Approve(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	copyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	// Пустое тело допустимо. Длина -1 (chunked) тоже читается, иначе заметки потеряются.
	var req dto.ApproveCopyRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.BadRequest(c, "некорректные данные запроса")
			return
		}
	}

	rec, err := h.approveUC.Execute(c.Request.Context(), actor, moderation.ApproveAndArchiveInput{
		CopyID: copyID,
		Notes:  req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToArchiveResponse(rec))
}
