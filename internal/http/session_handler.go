package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/scheduler"
)

type sessionService interface {
	AdvanceSession(ctx context.Context, sessionID string, to scheduler.SessionStatus) (scheduler.ScheduledSession, error)
	AttachRecording(ctx context.Context, sessionID, recordingURL string) (scheduler.ScheduledSession, error)
}

type sessionCatalog interface {
	GetSession(ctx context.Context, id string) (scheduler.ScheduledSession, error)
	SessionForRequest(ctx context.Context, requestID string) (scheduler.ScheduledSession, error)
	ListSessionsByDate(ctx context.Context, date scheduler.Date) ([]scheduler.ScheduledSession, error)
	ListSessionsByMember(ctx context.Context, memberID string) ([]scheduler.ScheduledSession, error)
}

// SessionHandler serves scheduled session queries and status changes.
type SessionHandler struct {
	service   sessionService
	catalog   sessionCatalog
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, catalog sessionCatalog, logger *slog.Logger) *SessionHandler {
	base := orDefault(logger)
	return &SessionHandler{service: service, catalog: catalog, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return requestLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

type sessionStatusBody struct {
	Status string `json:"status" binding:"required,oneof=scheduled in-progress completed cancelled no-show"`
}

type recordingBody struct {
	URL string `json:"url" binding:"required,url"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type sessionListResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

// List filters by ?date= when present, otherwise by ?member_id=.
func (h *SessionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	dateText := strings.TrimSpace(c.Query("date"))
	memberID := strings.TrimSpace(c.Query("member_id"))

	var (
		sessions []scheduler.ScheduledSession
		err      error
	)
	switch {
	case dateText != "":
		var date scheduler.Date
		if date, err = parseDateField(dateText); err != nil {
			err = fieldValidation("date", err.Error())
			break
		}
		sessions, err = h.catalog.ListSessionsByDate(ctx, date)
	case memberID != "":
		sessions, err = h.catalog.ListSessionsByMember(ctx, memberID)
	default:
		err = fieldValidation("date", "date is required")
	}
	if err != nil {
		h.log(ctx, "List", "date", dateText, "member_id", memberID).ErrorContext(ctx, "session listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	h.responder.writeJSON(c, http.StatusOK, sessionListResponse{Sessions: mapSlice(sessions, toSessionDTO)})
}

func (h *SessionHandler) Get(c *gin.Context) {
	sessionID, ok := h.sessionID(c, "Get")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	session, err := h.catalog.GetSession(ctx, sessionID)
	if err != nil {
		h.log(ctx, "Get", "session_id", sessionID).ErrorContext(ctx, "session lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	h.responder.writeJSON(c, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// ForRequest returns the session booked for the request in the path.
func (h *SessionHandler) ForRequest(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := strings.TrimSpace(c.Param("id"))
	if requestID == "" {
		h.responder.writeError(c, http.StatusBadRequest, errInvalidRequestID)
		return
	}

	session, err := h.catalog.SessionForRequest(ctx, requestID)
	if err != nil {
		h.log(ctx, "ForRequest", "request_id", requestID).ErrorContext(ctx, "session lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	h.responder.writeJSON(c, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) ChangeStatus(c *gin.Context) {
	sessionID, ok := h.sessionID(c, "ChangeStatus")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var body sessionStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log(ctx, "ChangeStatus", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode session status", "error", err)
		h.responder.writeBindError(c, err)
		return
	}

	logger := h.log(ctx, "ChangeStatus", "session_id", sessionID, "status", body.Status)
	session, err := h.service.AdvanceSession(ctx, sessionID, scheduler.SessionStatus(body.Status))
	if err != nil {
		logger.ErrorContext(ctx, "session status change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.InfoContext(ctx, "session status changed")
	h.responder.writeJSON(c, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) AttachRecording(c *gin.Context) {
	sessionID, ok := h.sessionID(c, "AttachRecording")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var body recordingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log(ctx, "AttachRecording", "session_id", sessionID, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode recording", "error", err)
		h.responder.writeBindError(c, err)
		return
	}

	logger := h.log(ctx, "AttachRecording", "session_id", sessionID)
	session, err := h.service.AttachRecording(ctx, sessionID, body.URL)
	if err != nil {
		logger.ErrorContext(ctx, "recording attachment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.InfoContext(ctx, "recording attached")
	h.responder.writeJSON(c, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) sessionID(c *gin.Context, operation string) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		ctx := c.Request.Context()
		h.log(ctx, operation, "error_kind", "bad_request").ErrorContext(ctx, "missing session id")
		h.responder.writeError(c, http.StatusBadRequest, errInvalidSessionID)
		return "", false
	}
	return id, true
}
