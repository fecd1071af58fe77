package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/response"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
)

// currentActor достаёт актора, которого положил AuthMiddleware. При отсутствии отвечает 401.
func currentActor(c *gin.Context) (reqctx.Actor, bool) {
	actor, ok := reqctx.FromContext(c.Request.Context())
	if !ok || !actor.Valid() {
		response.Unauthorized(c, "требуется авторизация")
		return reqctx.Actor{}, false
	}
	return actor, true
}

func parseUUIDParam(c *gin.Context, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		response.BadRequest(c, "некорректный идентификатор")
		return uuid.Nil, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
