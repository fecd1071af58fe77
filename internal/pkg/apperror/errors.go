package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest          ErrorCode = "BAD_REQUEST"
	ErrCodeConflict            ErrorCode = "CONFLICT"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation          ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	ErrCodeAlreadyArchived     ErrorCode = "ALREADY_ARCHIVED"
	ErrCodeConcurrencyConflict ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeModerationDisabled  ErrorCode = "MODERATION_DISABLED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы обёрнутые варианты совпадали с сентинелами.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Persistence оборачивает ошибку хранилища; транзакция при этом откатывается вызывающим кодом.
func Persistence(err error, message string) *AppError {
	return Wrap(err, ErrCodeDatabaseError, message)
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeModerationDisabled:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict, ErrCodeAlreadyArchived, ErrCodeConcurrencyConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func hasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return hasCode(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

func IsAlreadyArchived(err error) bool {
	return hasCode(err, ErrCodeAlreadyArchived)
}

func IsConcurrencyConflict(err error) bool {
	return hasCode(err, ErrCodeConcurrencyConflict)
}

func IsPersistence(err error) bool {
	return hasCode(err, ErrCodeDatabaseError)
}

func IsModerationDisabled(err error) bool {
	return hasCode(err, ErrCodeModerationDisabled)
}

// Validation создаёт ошибку валидации с заданным сообщением.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

var (
	ErrCopyNotFound        = New(ErrCodeNotFound, "копия сообщения не найдена")
	ErrArchiveNotFound     = New(ErrCodeNotFound, "архивная запись не найдена")
	ErrAlreadyArchived     = New(ErrCodeAlreadyArchived, "копия сообщения уже архивирована")
	ErrConcurrencyConflict = New(ErrCodeConcurrencyConflict, "копия сообщения изменена другим брокером, повторите действие")
	ErrModerationDisabled  = New(ErrCodeModerationDisabled, "модерация сообщений брокером отключена для этого сообщества")
	ErrUnauthorized        = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden           = New(ErrCodeForbidden, "недостаточно прав")
)
