package goroutine

import (
	"context"
	"runtime/debug"

	"github.com/jasperfordesq-ai/nexus-broker/internal/logger"
)

// Logger интерфейс для логирования ошибок
type Logger interface {
	Errorf(format string, args ...interface{})
}

// RecoveryHandler обрабатывает panic в горутинах
type RecoveryHandler struct {
	logger Logger
}

func NewRecoveryHandler(logger Logger) *RecoveryHandler {
	return &RecoveryHandler{logger: logger}
}

// SafeGo запускает горутину с обработкой panic
func (rh *RecoveryHandler) SafeGo(fn func()) {
	go func() {
		defer rh.handlePanic()
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и обработкой panic
func (rh *RecoveryHandler) SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer rh.handlePanic()
		fn(ctx)
	}()
}

func (rh *RecoveryHandler) handlePanic() {
	if r := recover(); r != nil {
		rh.logger.Errorf("panic в горутине: %v\n%s", r, debug.Stack())
	}
}

// appLogger берёт глобальный логгер в момент записи, а не при инициализации пакета.
type appLogger struct{}

func (appLogger) Errorf(format string, args ...interface{}) {
	logger.Get().Errorf(format, args...)
}

var DefaultRecoveryHandler = NewRecoveryHandler(appLogger{})

func SafeGo(fn func()) {
	DefaultRecoveryHandler.SafeGo(fn)
}

func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	DefaultRecoveryHandler.SafeGoWithContext(ctx, fn)
}
