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

type requestService interface {
	SubmitRequest(ctx context.Context, input application.RequestInput) (scheduler.SessionRequest, error)
	ConfirmRequest(ctx context.Context, requestID, memberID, memberName string) (scheduler.SessionRequest, error)
	RescheduleRequest(ctx context.Context, requestID string, date scheduler.Date, at scheduler.TimeOfDay) (scheduler.SessionRequest, error)
	CancelRequest(ctx context.Context, requestID, reason string) (scheduler.SessionRequest, error)
	CompleteRequest(ctx context.Context, requestID string) (scheduler.SessionRequest, error)
	SetResponse(ctx context.Context, requestID, message, templateID string) (scheduler.SessionRequest, error)
}

type requestCatalog interface {
	GetRequest(ctx context.Context, id string) (scheduler.SessionRequest, error)
	ListRequestsByStatus(ctx context.Context, status scheduler.RequestStatus) ([]scheduler.SessionRequest, error)
}

// RequestHandler serves the session request lifecycle endpoints.
type RequestHandler struct {
	service   requestService
	catalog   requestCatalog
	responder responder
	logger    *slog.Logger
}

func NewRequestHandler(service requestService, catalog requestCatalog, logger *slog.Logger) *RequestHandler {
	base := orDefault(logger)
	return &RequestHandler{service: service, catalog: catalog, responder: newResponder(base), logger: base}
}

func (h *RequestHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return requestLogger(ctx, h.logger, "RequestHandler", operation, attrs...)
}

type submitRequestBody struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"max=50"`
	Date  string `json:"date" binding:"required"`
	Time  string `json:"time" binding:"required"`
	Type  string `json:"type" binding:"required"`
	Notes string `json:"notes" binding:"max=2000"`
}

type confirmRequestBody struct {
	MemberID   string `json:"member_id" binding:"required"`
	MemberName string `json:"member_name"`
}

type rescheduleRequestBody struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

type cancelRequestBody struct {
	Reason string `json:"reason" binding:"max=1000"`
}

type responseBody struct {
	Message    string `json:"message"`
	TemplateID string `json:"template_id"`
}

type requestResponse struct {
	Request requestDTO `json:"request"`
}

type requestListResponse struct {
	Requests []requestDTO `json:"requests"`
}

func (h *RequestHandler) Submit(c *gin.Context) {
	ctx := c.Request.Context()

	var body submitRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log(ctx, "Submit", "error_kind", "bad_request").ErrorContext(ctx, "failed to decode session request", "error", err)
		h.responder.writeBindError(c, err)
		return
	}

	logger := h.log(ctx, "Submit")
	request, err := h.service.SubmitRequest(ctx, application.RequestInput{
		Name:  body.Name,
		Email: body.Email,
		Phone: body.Phone,
		Date:  body.Date,
		Time:  body.Time,
		Type:  body.Type,
		Notes: body.Notes,
	})
	if err != nil {
		logger.ErrorContext(ctx, "session request submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.With("request_id", request.ID).InfoContext(ctx, "session request submitted")
	h.responder.writeJSON(c, http.StatusCreated, requestResponse{Request: toRequestDTO(request)})
}

func (h *RequestHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	status := scheduler.RequestStatus(strings.TrimSpace(c.Query("status")))

	requests, err := h.catalog.ListRequestsByStatus(ctx, status)
	if err != nil {
		h.log(ctx, "List", "status", string(status)).ErrorContext(ctx, "request listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	h.responder.writeJSON(c, http.StatusOK, requestListResponse{Requests: mapSlice(requests, toRequestDTO)})
}

func (h *RequestHandler) Get(c *gin.Context) {
	requestID, ok := h.requestID(c, "Get")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	request, err := h.catalog.GetRequest(ctx, requestID)
	if err != nil {
		h.log(ctx, "Get", "request_id", requestID).ErrorContext(ctx, "request lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	h.responder.writeJSON(c, http.StatusOK, requestResponse{Request: toRequestDTO(request)})
}

func (h *RequestHandler) Confirm(c *gin.Context) {
	requestID, ok := h.requestID(c, "Confirm")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var body confirmRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log(ctx, "Confirm", "request_id", requestID, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode confirmation", "error", err)
		h.responder.writeBindError(c, err)
		return
	}

	logger := h.log(ctx, "Confirm", "request_id", requestID, "member_id", body.MemberID)
	request, err := h.service.ConfirmRequest(ctx, requestID, body.MemberID, body.MemberName)
	if err != nil {
		logger.ErrorContext(ctx, "request confirmation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.InfoContext(ctx, "request confirmed")
	h.responder.writeJSON(c, http.StatusOK, requestResponse{Request: toRequestDTO(request)})
}

func (h *RequestHandler) Reschedule(c *gin.Context) {
	requestID, ok := h.requestID(c, "Reschedule")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var body rescheduleRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log(ctx, "Reschedule", "request_id", requestID, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode reschedule", "error", err)
		h.responder.writeBindError(c, err)
		return
	}

	logger := h.log(ctx, "Reschedule", "request_id", requestID)
	date, at, err := parseSlot(body.Date, body.Time)
	if err != nil {
		logger.ErrorContext(ctx, "invalid reschedule target", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	request, err := h.service.RescheduleRequest(ctx, requestID, date, at)
	if err != nil {
		logger.ErrorContext(ctx, "request reschedule failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.InfoContext(ctx, "request rescheduled")
	h.responder.writeJSON(c, http.StatusOK, requestResponse{Request: toRequestDTO(request)})
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	requestID, ok := h.requestID(c, "Cancel")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// The body is optional; a cancellation without reason is allowed.
	var body cancelRequestBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			h.log(ctx, "Cancel", "request_id", requestID, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode cancellation", "error", err)
			h.responder.writeBindError(c, err)
			return
		}
	}

	logger := h.log(ctx, "Cancel", "request_id", requestID)
	request, err := h.service.CancelRequest(ctx, requestID, body.Reason)
	if err != nil {
		logger.ErrorContext(ctx, "request cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.InfoContext(ctx, "request cancelled")
	h.responder.writeJSON(c, http.StatusOK, requestResponse{Request: toRequestDTO(request)})
}

func (h *RequestHandler) Complete(c *gin.Context) {
	requestID, ok := h.requestID(c, "Complete")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	logger := h.log(ctx, "Complete", "request_id", requestID)
	request, err := h.service.CompleteRequest(ctx, requestID)
	if err != nil {
		logger.ErrorContext(ctx, "request completion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.InfoContext(ctx, "request completed")
	h.responder.writeJSON(c, http.StatusOK, requestResponse{Request: toRequestDTO(request)})
}

func (h *RequestHandler) Respond(c *gin.Context) {
	requestID, ok := h.requestID(c, "Respond")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var body responseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log(ctx, "Respond", "request_id", requestID, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode response", "error", err)
		h.responder.writeBindError(c, err)
		return
	}

	logger := h.log(ctx, "Respond", "request_id", requestID)
	request, err := h.service.SetResponse(ctx, requestID, body.Message, body.TemplateID)
	if err != nil {
		logger.ErrorContext(ctx, "response update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.InfoContext(ctx, "response recorded")
	h.responder.writeJSON(c, http.StatusOK, requestResponse{Request: toRequestDTO(request)})
}

func (h *RequestHandler) requestID(c *gin.Context, operation string) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		ctx := c.Request.Context()
		h.log(ctx, operation, "error_kind", "bad_request").ErrorContext(ctx, "missing request id")
		h.responder.writeError(c, http.StatusBadRequest, errInvalidRequestID)
		return "", false
	}
	return id, true
}
