package http

import (
	"context"
	"iter"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/scheduler"
)

type availabilityService interface {
	RulesFor(ctx context.Context, memberID string) ([]scheduler.Availability, error)
	SetRule(ctx context.Context, rule scheduler.Availability) (scheduler.Availability, error)
}

type slotService interface {
	AvailableSlots(ctx context.Context, memberID string, date scheduler.Date) (iter.Seq[string], error)
}

// MemberHandler serves member availability rules and open slots.
type MemberHandler struct {
	availability availabilityService
	slots        slotService
	responder    responder
	logger       *slog.Logger
}

func NewMemberHandler(availability availabilityService, slots slotService, logger *slog.Logger) *MemberHandler {
	base := orDefault(logger)
	return &MemberHandler{availability: availability, slots: slots, responder: newResponder(base), logger: base}
}

func (h *MemberHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return requestLogger(ctx, h.logger, "MemberHandler", operation, attrs...)
}

type availabilityBody struct {
	MemberName        string `json:"member_name" binding:"max=200"`
	StartTime         string `json:"start_time" binding:"required"`
	EndTime           string `json:"end_time" binding:"required"`
	IsAvailable       *bool  `json:"is_available"`
	MaxSessionsPerDay int    `json:"max_sessions_per_day" binding:"gte=0"`
}

type availabilityResponse struct {
	Availability availabilityDTO `json:"availability"`
}

type availabilityListResponse struct {
	Availability []availabilityDTO `json:"availability"`
}

type slotsResponse struct {
	MemberID string   `json:"member_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
}

func (h *MemberHandler) ListAvailability(c *gin.Context) {
	memberID, ok := h.memberID(c, "ListAvailability")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	rules, err := h.availability.RulesFor(ctx, memberID)
	if err != nil {
		h.log(ctx, "ListAvailability", "member_id", memberID).ErrorContext(ctx, "availability listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	h.responder.writeJSON(c, http.StatusOK, availabilityListResponse{Availability: mapSlice(rules, toAvailabilityDTO)})
}

func (h *MemberHandler) SetAvailability(c *gin.Context) {
	memberID, ok := h.memberID(c, "SetAvailability")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	day, err := strconv.Atoi(strings.TrimSpace(c.Param("day")))
	if err != nil || day < int(time.Sunday) || day > int(time.Saturday) {
		h.log(ctx, "SetAvailability", "member_id", memberID, "error_kind", "bad_request").ErrorContext(ctx, "invalid day of week", "day", c.Param("day"))
		h.responder.writeError(c, http.StatusBadRequest, errInvalidDay)
		return
	}

	var body availabilityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.log(ctx, "SetAvailability", "member_id", memberID, "error_kind", "bad_request").ErrorContext(ctx, "failed to decode availability", "error", err)
		h.responder.writeBindError(c, err)
		return
	}

	logger := h.log(ctx, "SetAvailability", "member_id", memberID, "day_of_week", day)
	rule, err := body.toRule(memberID, time.Weekday(day))
	if err != nil {
		logger.ErrorContext(ctx, "invalid availability rule", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	stored, err := h.availability.SetRule(ctx, rule)
	if err != nil {
		logger.ErrorContext(ctx, "availability update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	logger.With("rule_id", stored.ID).InfoContext(ctx, "availability updated")
	h.responder.writeJSON(c, http.StatusOK, availabilityResponse{Availability: toAvailabilityDTO(stored)})
}

func (h *MemberHandler) Slots(c *gin.Context) {
	memberID, ok := h.memberID(c, "Slots")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	logger := h.log(ctx, "Slots", "member_id", memberID)

	date, err := parseDateField(c.Query("date"))
	if err != nil {
		err = fieldValidation("date", err.Error())
		logger.ErrorContext(ctx, "invalid slot date", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	seq, err := h.slots.AvailableSlots(ctx, memberID, date)
	if err != nil {
		logger.ErrorContext(ctx, "slot lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(c, err)
		return
	}

	slots := slices.Collect(seq)
	if slots == nil {
		slots = []string{}
	}
	h.responder.writeJSON(c, http.StatusOK, slotsResponse{MemberID: memberID, Date: date.String(), Slots: slots})
}

func (h *MemberHandler) memberID(c *gin.Context, operation string) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		ctx := c.Request.Context()
		h.log(ctx, operation, "error_kind", "bad_request").ErrorContext(ctx, "missing member id")
		h.responder.writeError(c, http.StatusBadRequest, errInvalidMemberID)
		return "", false
	}
	return id, true
}

func (b availabilityBody) toRule(memberID string, day time.Weekday) (scheduler.Availability, error) {
	fields := map[string]string{}
	start, err := scheduler.ParseTimeOfDay(b.StartTime)
	if err != nil {
		fields["start_time"] = "start time is invalid"
	}
	end, err := scheduler.ParseTimeOfDay(b.EndTime)
	if err != nil {
		fields["end_time"] = "end time is invalid"
	}
	if len(fields) > 0 {
		return scheduler.Availability{}, &application.ValidationError{FieldErrors: fields}
	}

	available := true
	if b.IsAvailable != nil {
		available = *b.IsAvailable
	}
	return scheduler.Availability{
		Member:            scheduler.Member{ID: memberID, Name: strings.TrimSpace(b.MemberName)},
		DayOfWeek:         day,
		Start:             start,
		End:               end,
		IsAvailable:       available,
		MaxSessionsPerDay: b.MaxSessionsPerDay,
	}, nil
}
