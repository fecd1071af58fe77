package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/response"
)

// ErrorHandler отдаёт последнюю ошибку из c.Errors, если обработчик не записал ответ.
// Внутренние ошибки маскируются в response.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}

		response.Error(c, c.Errors.Last().Err)
	}
}
