package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/example/session-scheduler/internal/logging"
)

const requestIDContextKey = "request_id"

// LoggerFromContext returns the request scoped logger installed by RequestLogger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// RequestIDFromContext returns the identifier RequestLogger assigned to the request.
func RequestIDFromContext(c *gin.Context) (string, bool) {
	if c == nil {
		return "", false
	}
	id := c.GetString(requestIDContextKey)
	return id, id != ""
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// requestLogger prefers the request scoped logger, which already carries the
// request id, and tags it with the handler and operation.
func requestLogger(ctx context.Context, fallback *slog.Logger, handler, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = orDefault(fallback)
	}
	return logger.With(append([]any{"handler", handler, "operation", operation}, attrs...)...)
}
