package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/response"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
	"github.com/jasperfordesq-ai/nexus-broker/internal/service"
)

// ContextActorKey — ключ актора в gin.Context.
const ContextActorKey = "actor"

// HeaderBasePath передаёт базовый путь сообщества для ссылок в событиях.
const HeaderBasePath = "X-Base-Path"

// AccessParser разбирает access токен в актора.
type AccessParser interface {
	ParseAccess(token string) (reqctx.Actor, error)
}

var _ AccessParser = (*service.TokenManager)(nil)

// AuthMiddleware проверяет JWT access токен и кладёт актора в контекст запроса.
func AuthMiddleware(tokens AccessParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		actor, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || !actor.Valid() {
			response.Unauthorized(c, "токен невалиден")
			return
		}
		actor.BasePath = c.GetHeader(HeaderBasePath)

		c.Set(ContextActorKey, actor)
		c.Request = c.Request.WithContext(reqctx.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// RequireModerator пропускает только брокеров и администраторов.
func RequireModerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := reqctx.FromContext(c.Request.Context())
		if !ok {
			response.Unauthorized(c, "требуется авторизация")
			return
		}
		if !actor.CanModerate() {
			response.Forbidden(c, "недостаточно прав")
			return
		}
		c.Next()
	}
}
