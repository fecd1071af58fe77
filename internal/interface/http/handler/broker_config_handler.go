package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/dto"
	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/response"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/brokerconfig"
)

type BrokerConfigHandler struct {
	getUC    *brokerconfig.GetBrokerConfigUseCase
	updateUC *brokerconfig.UpdateBrokerConfigUseCase
}

func NewBrokerConfigHandler(getUC *brokerconfig.GetBrokerConfigUseCase, updateUC *brokerconfig.UpdateBrokerConfigUseCase) *BrokerConfigHandler {
	return &BrokerConfigHandler{getUC: getUC, updateUC: updateUC}
}

// GetConfig обрабатывает GET /api/admin/broker/config.
func (h *BrokerConfigHandler) GetConfig(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	cfg, err := h.getUC.Execute(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToBrokerConfigResponse(cfg))
}

// UpdateConfig обрабатывает PUT /api/admin/broker/config.
func (h *BrokerConfigHandler) UpdateConfig(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req dto.UpdateBrokerConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "некорректные данные запроса")
		return
	}

	cfg, err := h.updateUC.Execute(c.Request.Context(), actor, req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToBrokerConfigResponse(cfg))
}
