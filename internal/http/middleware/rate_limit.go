package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/response"
	"github.com/jasperfordesq-ai/nexus-broker/internal/logger"
)

// RateLimitMiddleware ограничивает количество запросов с одного IP.
// По умолчанию: 60 запросов в минуту.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = 1 * time.Minute
	}

	rate := limiter.Rate{
		Period: period,
		Limit:  limit,
	}
	store := memory.NewStore()
	instance := limiter.New(store, rate)

	return func(c *gin.Context) {
		key := c.ClientIP()
		lc, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			logger.Get().WithError(err).Error("rate limit: хранилище недоступно")
			response.Error(c, err)
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", lc.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", lc.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", lc.Reset))

		if lc.Reached {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Response{
				Success: false,
				Error:   &response.ErrorInfo{Code: "RATE_LIMITED", Message: "слишком много запросов, попробуйте позже"},
			})
			return
		}

		c.Next()
	}
}
