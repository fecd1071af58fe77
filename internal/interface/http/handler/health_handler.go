package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker"
)

// Pinger проверяет доступность базы данных.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BreakerReporter отдаёт состояние circuit breaker публикатора событий.
type BreakerReporter interface {
	State() gobreaker.State
}

// HealthHandler предоставляет endpoint для проверки здоровья сервиса.
type HealthHandler struct {
	db     Pinger
	events BreakerReporter
}

// NewHealthHandler создаёт health handler. events может быть nil, если Kafka не настроена.
func NewHealthHandler(db Pinger, events BreakerReporter) *HealthHandler {
	return &HealthHandler{db: db, events: events}
}

// HealthResponse представляет ответ health check.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health обрабатывает GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		checks["database"] = "healthy"
	}

	// Открытый breaker не делает сервис нездоровым: события лишь не уходят в Kafka
	if h.events != nil {
		if state := h.events.State(); state == gobreaker.StateClosed {
			checks["kafka"] = "healthy"
		} else {
			checks["kafka"] = "degraded: breaker " + state.String()
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	})
}
