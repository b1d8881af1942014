package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/session-scheduler/internal/application"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRequireAPIKey(t *testing.T) {
	t.Parallel()

	encoded, err := application.HashAPIKey("s3cret", application.Argon2idParams{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16,
	})
	require.NoError(t, err)

	tests := []struct {
		name           string
		hash           string
		headers        map[string]string
		expectedStatus int
	}{
		{name: "open api without configured hash", expectedStatus: http.StatusOK},
		{name: "missing key", hash: encoded, expectedStatus: http.StatusUnauthorized},
		{name: "wrong key", hash: encoded, headers: map[string]string{"X-API-Key": "nope"}, expectedStatus: http.StatusUnauthorized},
		{name: "key header", hash: encoded, headers: map[string]string{"X-API-Key": "s3cret"}, expectedStatus: http.StatusOK},
		{name: "bearer token", hash: encoded, headers: map[string]string{"Authorization": "Bearer s3cret"}, expectedStatus: http.StatusOK},
		{name: "malformed hash", hash: "not-a-hash", headers: map[string]string{"X-API-Key": "s3cret"}, expectedStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			engine := gin.New()
			engine.GET("/protected", RequireAPIKey(tc.hash, quietLogger), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			recorder := httptest.NewRecorder()
			engine.ServeHTTP(recorder, req)

			assert.Equal(t, tc.expectedStatus, recorder.Code)
			if tc.expectedStatus != http.StatusOK {
				var body errorResponse
				require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
				assert.NotEmpty(t, body.Message)
			}
		})
	}
}

func TestRequestLoggerAttachesRequestScope(t *testing.T) {
	t.Parallel()

	engine := gin.New()
	engine.Use(RequestLogger(quietLogger))

	var (
		gotID     string
		hasLogger bool
	)
	engine.GET("/ping", func(c *gin.Context) {
		gotID, _ = RequestIDFromContext(c)
		hasLogger = LoggerFromContext(c.Request.Context()) != nil
		c.Status(http.StatusNoContent)
	})

	t.Run("generates an id", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusNoContent, recorder.Code)
		assert.NotEmpty(t, gotID)
		assert.Equal(t, gotID, recorder.Header().Get("X-Request-ID"))
		assert.True(t, hasLogger)
	})

	t.Run("keeps the caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		recorder := httptest.NewRecorder()
		engine.ServeHTTP(recorder, req)

		assert.Equal(t, "abc-123", gotID)
		assert.Equal(t, "abc-123", recorder.Header().Get("X-Request-ID"))
	})
}

type recordedRequest struct {
	method string
	path   string
	status int
}

type recordingHTTPObserver struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (o *recordingHTTPObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, recordedRequest{method: method, path: path, status: status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	t.Parallel()

	observer := &recordingHTTPObserver{}
	engine := gin.New()
	engine.Use(Metrics(observer))
	engine.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/s-1", nil))
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, observer.requests, 2)
	assert.Equal(t, recordedRequest{method: http.MethodGet, path: "/sessions/:id", status: http.StatusOK}, observer.requests[0])
	assert.Equal(t, "unmatched", observer.requests[1].path)
	assert.Equal(t, http.StatusNotFound, observer.requests[1].status)
}

func TestHandlerRecordsCarryRequestScope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	engine := gin.New()
	engine.Use(RequestLogger(base))
	engine.GET("/requests/:id", func(c *gin.Context) {
		requestLogger(c.Request.Context(), quietLogger, "RequestHandler", "Get", "session_request_id", c.Param("id")).
			InfoContext(c.Request.Context(), "request loaded")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/requests/r1", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	engine.ServeHTTP(httptest.NewRecorder(), req)

	var record map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if entry["msg"] == "request loaded" {
			record = entry
		}
	}
	require.NotNil(t, record)
	assert.Equal(t, "trace-1", record["request_id"])
	assert.Equal(t, "RequestHandler", record["handler"])
	assert.Equal(t, "Get", record["operation"])
	assert.Equal(t, "r1", record["session_request_id"])

	// Outside a request the fallback logger is used.
	var fallbackBuf bytes.Buffer
	fallback := slog.New(slog.NewJSONHandler(&fallbackBuf, nil))
	requestLogger(context.Background(), fallback, "MemberHandler", "Slots").Info("no request scope")
	assert.Contains(t, fallbackBuf.String(), `"handler":"MemberHandler"`)
	assert.NotContains(t, fallbackBuf.String(), "request_id")
}
