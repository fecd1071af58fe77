package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/response"
	"github.com/jasperfordesq-ai/nexus-broker/internal/logger"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
	"github.com/jasperfordesq-ai/nexus-broker/internal/ws"
)

// TokenParser разбирает access токен из query параметра.
type TokenParser interface {
	ParseAccess(token string) (reqctx.Actor, error)
}

// WSHandler устанавливает WebSocket соединения брокеров.
type WSHandler struct {
	hub      *ws.Hub
	tokens   TokenParser
	upgrader websocket.Upgrader
}

// NewWSHandler создаёт хэндлер. Пустой allowedOrigins разрешает любой Origin.
func NewWSHandler(hub *ws.Hub, tokens TokenParser, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range allowedOrigins {
					if o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Handle обслуживает GET /api/ws?token=...
func (h *WSHandler) Handle(c *gin.Context) {
	rawToken := c.Query("token")
	if rawToken == "" {
		response.Unauthorized(c, "access токен обязателен")
		return
	}

	actor, err := h.tokens.ParseAccess(rawToken)
	if err != nil || !actor.Valid() {
		response.Unauthorized(c, "невалидный access токен")
		return
	}
	if !actor.CanModerate() {
		response.Forbidden(c, "недостаточно прав")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		logger.Get().WithError(err).Warn("ws: не удалось установить соединение")
		return
	}

	client := ws.NewClient(conn, h.hub, actor)
	h.hub.Register(client)

	client.Run(c.Request.Context())
}
