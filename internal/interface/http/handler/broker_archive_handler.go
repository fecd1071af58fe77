package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/dto"
	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/response"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/moderation"
	"github.com/jasperfordesq-ai/nexus-broker/internal/validation"
)

type BrokerArchiveHandler struct {
	listUC *moderation.ListArchivesUseCase
	getUC  *moderation.GetArchiveUseCase
}

func NewBrokerArchiveHandler(listUC *moderation.ListArchivesUseCase, getUC *moderation.GetArchiveUseCase) *BrokerArchiveHandler {
	return &BrokerArchiveHandler{listUC: listUC, getUC: getUC}
}

// ListArchives обрабатывает GET /api/admin/broker/archives.
// Снимок переписки в список не входит, только число сообщений.
func (h *BrokerArchiveHandler) ListArchives(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	limit, offset := validation.NormalizePage(
		parseIntQuery(c, "limit", validation.DefaultPageLimit),
		parseIntQuery(c, "offset", 0),
	)

	items, total, err := h.listUC.Execute(c.Request.Context(), actor, moderation.ListArchivesInput{
		Decision: c.Query("decision"),
		Search:   c.Query("search"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, dto.ToArchiveSummaryList(items), total, limit, offset)
}

// GetArchive обрабатывает GET /api/admin/broker/archives/:id.
func (h *BrokerArchiveHandler) GetArchive(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	archiveID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	rec, err := h.getUC.Execute(c.Request.Context(), actor, archiveID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToArchiveResponse(rec))
}
