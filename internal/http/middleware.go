package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	apiKeyHeader    = "X-API-Key"
)

// HTTPObserver records served requests, typically as Prometheus metrics.
type HTTPObserver interface {
	ObserveHTTPRequest(method, path string, status int, elapsed time.Duration)
}

// RequireAPIKey rejects requests whose key does not match the argon2id
// encoded hash. An empty hash leaves the API open.
func RequireAPIKey(encodedHash string, logger *slog.Logger) gin.HandlerFunc {
	responder := newResponder(logger)
	encodedHash = strings.TrimSpace(encodedHash)

	return func(c *gin.Context) {
		if encodedHash == "" {
			c.Next()
			return
		}

		key := extractAPIKey(c.Request)
		if key == "" {
			responder.writeError(c, http.StatusUnauthorized, errMissingAPIKey)
			return
		}

		if err := application.VerifyAPIKey(encodedHash, key); err != nil {
			ctx := c.Request.Context()
			switch {
			case errors.Is(err, application.ErrUnauthorized):
				responder.loggerFor(ctx).WarnContext(ctx, "api key rejected")
				responder.abort(c, http.StatusUnauthorized, errorResponse{Message: "API キーが無効です。"})
			default:
				responder.loggerFor(ctx).ErrorContext(ctx, "api key verification failed", "error", err)
				responder.abort(c, http.StatusInternalServerError, errorResponse{Message: "API キーの検証中にエラーが発生しました。"})
			}
			return
		}

		c.Next()
	}
}

func extractAPIKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(apiKeyHeader)); key != "" {
		return key
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// RequestLogger assigns a request id, installs a request scoped logger in the
// context and logs start and completion.
func RequestLogger(base *slog.Logger) gin.HandlerFunc {
	if base == nil {
		base = slog.Default()
	}

	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)

		logger := base.With(
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		ctx := logging.ContextWithLogger(c.Request.Context(), logger)
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		logger.InfoContext(ctx, "request started")
		c.Next()
		logger.InfoContext(ctx, "request completed", "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

// Metrics reports every request to observer using the matched route pattern.
func Metrics(observer HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if observer == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observer.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
