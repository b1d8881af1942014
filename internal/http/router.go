package http

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/example/session-scheduler/internal/application"
)

type RouterConfig struct {
	Requests       *RequestHandler
	Sessions       *SessionHandler
	Members        *MemberHandler
	Metrics        HTTPObserver
	MetricsHandler http.Handler
	// APIKeyHash protects every API route when set. /healthz and /metrics stay open.
	APIKeyHash string
	Logger     *slog.Logger
}

// HandlersFor builds the handlers for every service group.
func HandlersFor(services *application.Services, logger *slog.Logger) (*RequestHandler, *SessionHandler, *MemberHandler) {
	return NewRequestHandler(services.Scheduling, services.Catalog, logger),
		NewSessionHandler(services.Scheduling, services.Catalog, logger),
		NewMemberHandler(services.Availability, services.Slots, logger)
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	useJSONFieldNames()
	logger := orDefault(cfg.Logger)

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestLogger(logger), Metrics(cfg.Metrics))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := engine.Group("/", RequireAPIKey(cfg.APIKeyHash, logger))

	if cfg.Requests != nil {
		api.POST("/requests", cfg.Requests.Submit)
		api.GET("/requests", cfg.Requests.List)
		api.GET("/requests/:id", cfg.Requests.Get)
		api.POST("/requests/:id/confirm", cfg.Requests.Confirm)
		api.POST("/requests/:id/reschedule", cfg.Requests.Reschedule)
		api.POST("/requests/:id/cancel", cfg.Requests.Cancel)
		api.POST("/requests/:id/complete", cfg.Requests.Complete)
		api.PUT("/requests/:id/response", cfg.Requests.Respond)
	}

	if cfg.Sessions != nil {
		api.GET("/requests/:id/session", cfg.Sessions.ForRequest)
		api.GET("/sessions", cfg.Sessions.List)
		api.GET("/sessions/:id", cfg.Sessions.Get)
		api.POST("/sessions/:id/status", cfg.Sessions.ChangeStatus)
		api.PUT("/sessions/:id/recording", cfg.Sessions.AttachRecording)
	}

	if cfg.Members != nil {
		api.GET("/members/:id/availability", cfg.Members.ListAvailability)
		api.PUT("/members/:id/availability/:day", cfg.Members.SetAvailability)
		api.GET("/members/:id/slots", cfg.Members.Slots)
	}

	return engine
}

var registerFieldNames sync.Once

// useJSONFieldNames makes binding errors report json field names.
func useJSONFieldNames() {
	registerFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
}
