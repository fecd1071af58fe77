package router

import (
	"github.com/gin-gonic/gin"

	"github.com/jasperfordesq-ai/nexus-broker/internal/config"
	"github.com/jasperfordesq-ai/nexus-broker/internal/http/middleware"
	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/handler"
)

// Handlers собирает все HTTP обработчики сервиса.
type Handlers struct {
	Health   *handler.HealthHandler
	WS       *handler.WSHandler
	Messages *handler.BrokerMessageHandler
	Archives *handler.BrokerArchiveHandler
	Config   *handler.BrokerConfigHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.AccessParser) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)

	api := r.Group("/api")
	api.GET("/ws", h.WS.Handle)

	broker := api.Group("/admin/broker")
	broker.Use(
		middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod),
		middleware.AuthMiddleware(tokens),
		middleware.RequireModerator(),
		middleware.RequestTimeout(cfg.RequestTimeout),
	)
	{
		broker.GET("/messages", h.Messages.ListCopies)
		broker.GET("/messages/stats", h.Messages.Stats)
		broker.GET("/messages/:id", middleware.UUIDValidator("id"), h.Messages.GetCopy)
		broker.POST("/messages/:id/review", middleware.UUIDValidator("id"), h.Messages.Review)
		broker.POST("/messages/:id/flag", middleware.UUIDValidator("id"), h.Messages.Flag)
		broker.POST("/messages/:id/approve", middleware.UUIDValidator("id"), h.Messages.Approve)

		broker.GET("/archives", h.Archives.ListArchives)
		broker.GET("/archives/:id", middleware.UUIDValidator("id"), h.Archives.GetArchive)

		broker.GET("/config", h.Config.GetConfig)
		broker.PUT("/config", h.Config.UpdateConfig)
	}

	return r
}
