package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jasperfordesq-ai/nexus-broker/internal/logger"
	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/apperror"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PaginatedResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func Paginated(c *gin.Context, data interface{}, total, limit, offset int) {
	c.JSON(http.StatusOK, PaginatedResponse{
		Success: true,
		Data:    data,
		Pagination: Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+limit < total,
		},
	})
}

// Error отдаёт AppError с его статусом. Прочие ошибки и ошибки базы логируются и маскируются.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logError(c, err)
		}
		abort(c, appErr.HTTPStatus, string(appErr.Code), appErr.Message)
		return
	}

	logError(c, err)
	abort(c, http.StatusInternalServerError, string(apperror.ErrCodeInternal), "внутренняя ошибка сервера")
}

func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, string(apperror.ErrCodeBadRequest), message)
}

func Validation(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, string(apperror.ErrCodeValidation), message)
}

func NotFound(c *gin.Context, message string) {
	abort(c, http.StatusNotFound, string(apperror.ErrCodeNotFound), message)
}

func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, string(apperror.ErrCodeUnauthorized), message)
}

func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, string(apperror.ErrCodeForbidden), message)
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   &ErrorInfo{Code: code, Message: message},
	})
}

func logError(c *gin.Context, err error) {
	logger.Get().WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	}).Error("Request error")
}
