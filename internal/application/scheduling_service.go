package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/scheduler"
)

// RequestInput carries a client's booking request as submitted.
type RequestInput struct {
	Name  string
	Email string
	Phone string
	Date  string
	Time  string
	Type  string
	Notes string
}

// SchedulingService is the only component that mutates requests and
// sessions. Every check-then-write runs under the request lock and, when a
// member calendar is touched, the member lock.
type SchedulingService struct {
	store       persistence.Store
	rules       *AvailabilityRegistry
	links       MeetingLinkProvider
	events      EventPublisher
	metrics     Observer
	cache       *slotCache
	locks       *lockManager
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSchedulingService wires dependencies for booking operations.
func NewSchedulingService(store persistence.Store, rules *AvailabilityRegistry, links MeetingLinkProvider, events EventPublisher, metrics Observer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SchedulingService {
	if events == nil {
		events = NopPublisher{}
	}
	if metrics == nil {
		metrics = nopObserver{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if rules == nil {
		rules = NewAvailabilityRegistry(store, nil, logger)
	}
	return &SchedulingService{
		store:       store,
		rules:       rules,
		links:       links,
		events:      events,
		metrics:     metrics,
		locks:       newLockManager(),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SchedulingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SchedulingService", operation, attrs...)
}

func (s *SchedulingService) ready() error {
	if s == nil {
		return fmt.Errorf("SchedulingService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("store not configured")
	}
	return nil
}

// SubmitRequest records a new pending request.
func (s *SchedulingService) SubmitRequest(ctx context.Context, input RequestInput) (request scheduler.SessionRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}
	started := time.Now()
	logger := s.loggerWith(ctx, "SubmitRequest", "session_type", input.Type)
	defer func() {
		s.metrics.ObserveOperation("SubmitRequest", outcome(err), time.Since(started))
		if err != nil {
			logger.ErrorContext(ctx, "request submission failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("request_id", request.ID).InfoContext(ctx, "request submitted")
	}()

	request, vErr := parseRequestInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	request.ID = s.idGenerator()
	request.Status = scheduler.RequestPending
	request.CreatedAt = now
	request.UpdatedAt = now
	request.History = []scheduler.StatusChange{{To: scheduler.RequestPending, At: now}}

	err = s.store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.CreateRequest(ctx, request)
	})
	if err != nil {
		err = fmt.Errorf("create request: %w", err)
		return
	}

	s.publish(ctx, logger, requestEvent(EventRequestSubmitted, request, nil, now))
	return
}

// ConfirmRequest assigns a member to the request and books (or moves) its
// session at the request's effective slot.
func (s *SchedulingService) ConfirmRequest(ctx context.Context, requestID, memberID, memberName string) (request scheduler.SessionRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}
	requestID = strings.TrimSpace(requestID)
	member := scheduler.Member{ID: strings.TrimSpace(memberID), Name: strings.TrimSpace(memberName)}

	started := time.Now()
	logger := s.loggerWith(ctx, "ConfirmRequest", "request_id", requestID, "member_id", member.ID)
	defer func() {
		s.metrics.ObserveOperation("ConfirmRequest", outcome(err), time.Since(started))
		if err != nil {
			logger.ErrorContext(ctx, "request confirmation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request confirmed")
	}()

	if member.ID == "" {
		err = fieldError("member_id", "member id is required")
		return
	}

	// Link generation may be slow; it runs before any lock is held.
	link := s.meetingLink(ctx, logger)

	unlockRequest := s.locks.lockRequest(requestID)
	defer unlockRequest()

	current, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = scheduler.CheckRequestTransition(current, scheduler.RequestConfirmed); err != nil {
		err = transitionError(err)
		return
	}
	linked, hasLinked, err := s.activeSession(ctx, requestID)
	if err != nil {
		return
	}

	slot := current.EffectiveSlot()
	duration := current.Type.DurationMinutes()

	unlockMember := s.locks.lockMember(member.ID)
	defer unlockMember()

	if err = s.checkCalendar(ctx, member.ID, slot, duration, linked.ID); err != nil {
		return
	}

	now := s.now()
	request = current.Clone()
	request.Status = scheduler.RequestConfirmed
	request.AssignedTo = &member
	request.RequestedDate = slot.Date
	request.RequestedTime = slot.Time
	request.RescheduledTo = nil
	request.ConfirmedAt = &now
	request.UpdatedAt = now
	request.History = append(request.History, scheduler.StatusChange{
		From: current.Status, To: scheduler.RequestConfirmed, At: now, MemberID: member.ID,
	})

	var session scheduler.ScheduledSession
	previousMember := ""
	if hasLinked {
		previousMember = linked.Member.ID
		session = linked.Clone()
		session.Member = member
		session.Date = slot.Date
		session.Time = slot.Time
		session.DurationMinutes = duration
		session.UpdatedAt = now
		if session.MeetingLink == "" {
			session.MeetingLink = link
		}
	} else {
		session = scheduler.ScheduledSession{
			ID:              s.idGenerator(),
			RequestID:       request.ID,
			Client:          request.Requester,
			Date:            slot.Date,
			Time:            slot.Time,
			DurationMinutes: duration,
			Type:            request.Type,
			Status:          scheduler.SessionScheduled,
			Member:          member,
			MeetingLink:     link,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.UpdateRequest(ctx, request); err != nil {
			return err
		}
		if hasLinked {
			return w.UpdateSession(ctx, session)
		}
		return w.CreateSession(ctx, session)
	})
	if err != nil {
		err = fmt.Errorf("confirm request: %w", mapStoreError(err))
		return
	}

	s.cache.InvalidateMember(member.ID, previousMember)
	logger = logger.With("session_id", session.ID)
	s.publish(ctx, logger, requestEvent(EventRequestConfirmed, request, &session, now))
	return
}

// RescheduleRequest moves the request to a new slot. When a member is already
// assigned the move is checked against their calendar and the linked session
// follows, keeping its id.
func (s *SchedulingService) RescheduleRequest(ctx context.Context, requestID string, date scheduler.Date, at scheduler.TimeOfDay) (request scheduler.SessionRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}
	requestID = strings.TrimSpace(requestID)

	started := time.Now()
	logger := s.loggerWith(ctx, "RescheduleRequest", "request_id", requestID, "date", date.String(), "time", at.String())
	defer func() {
		s.metrics.ObserveOperation("RescheduleRequest", outcome(err), time.Since(started))
		if err != nil {
			logger.ErrorContext(ctx, "request reschedule failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request rescheduled")
	}()

	vErr := &ValidationError{}
	if date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !at.Valid() {
		vErr.add("time", "time is invalid")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	unlockRequest := s.locks.lockRequest(requestID)
	defer unlockRequest()

	current, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = scheduler.CheckRequestTransition(current, scheduler.RequestRescheduled); err != nil {
		err = transitionError(err)
		return
	}
	linked, hasLinked, err := s.activeSession(ctx, requestID)
	if err != nil {
		return
	}

	target := scheduler.Slot{Date: date, Time: at}
	memberID := ""
	if current.AssignedTo != nil {
		memberID = current.AssignedTo.ID
		unlockMember := s.locks.lockMember(memberID)
		defer unlockMember()

		if err = s.checkCalendar(ctx, memberID, target, current.Type.DurationMinutes(), linked.ID); err != nil {
			return
		}
	}

	now := s.now()
	request = current.Clone()
	request.Status = scheduler.RequestRescheduled
	request.RescheduledTo = &target
	request.UpdatedAt = now
	request.History = append(request.History, scheduler.StatusChange{
		From: current.Status, To: scheduler.RequestRescheduled, At: now, MemberID: memberID,
		Note: fmt.Sprintf("moved to %s %s", target.Date, target.Time),
	})

	var session *scheduler.ScheduledSession
	if hasLinked {
		moved := linked.Clone()
		moved.Date = target.Date
		moved.Time = target.Time
		moved.UpdatedAt = now
		session = &moved
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.UpdateRequest(ctx, request); err != nil {
			return err
		}
		if session != nil {
			return w.UpdateSession(ctx, *session)
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("reschedule request: %w", mapStoreError(err))
		return
	}

	if memberID != "" {
		s.cache.InvalidateMember(memberID)
	}
	s.publish(ctx, logger, requestEvent(EventRequestRescheduled, request, session, now))
	return
}

// CancelRequest cancels the request and its linked session, freeing the
// member's slot.
func (s *SchedulingService) CancelRequest(ctx context.Context, requestID, reason string) (request scheduler.SessionRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}
	requestID = strings.TrimSpace(requestID)
	reason = strings.TrimSpace(reason)

	started := time.Now()
	logger := s.loggerWith(ctx, "CancelRequest", "request_id", requestID)
	defer func() {
		s.metrics.ObserveOperation("CancelRequest", outcome(err), time.Since(started))
		if err != nil {
			logger.ErrorContext(ctx, "request cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request cancelled")
	}()

	unlockRequest := s.locks.lockRequest(requestID)
	defer unlockRequest()

	current, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = scheduler.CheckRequestTransition(current, scheduler.RequestCancelled); err != nil {
		err = transitionError(err)
		return
	}
	linked, hasLinked, err := s.linkedSession(ctx, requestID)
	if err != nil {
		return
	}

	now := s.now()
	memberID := ""
	if current.AssignedTo != nil {
		memberID = current.AssignedTo.ID
	}
	request = current.Clone()
	request.Status = scheduler.RequestCancelled
	request.CancellationReason = reason
	request.CancelledAt = &now
	request.UpdatedAt = now
	request.AssignedTo = nil
	request.RescheduledTo = nil
	request.History = append(request.History, scheduler.StatusChange{
		From: current.Status, To: scheduler.RequestCancelled, At: now, MemberID: memberID, Note: reason,
	})

	var session *scheduler.ScheduledSession
	if hasLinked && !linked.Status.IsTerminal() {
		cancelled := linked.Clone()
		cancelled.Status = scheduler.SessionCancelled
		cancelled.CancellationReason = reason
		cancelled.CancelledAt = &now
		cancelled.UpdatedAt = now
		session = &cancelled
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.UpdateRequest(ctx, request); err != nil {
			return err
		}
		if session != nil {
			return w.UpdateSession(ctx, *session)
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("cancel request: %w", mapStoreError(err))
		return
	}

	if session != nil {
		s.cache.InvalidateMember(session.Member.ID)
	}
	event := requestEvent(EventRequestCancelled, request, session, now)
	event.MemberID = memberID
	s.publish(ctx, logger, event)
	return
}

// CompleteRequest marks an assigned request and its session as completed.
func (s *SchedulingService) CompleteRequest(ctx context.Context, requestID string) (request scheduler.SessionRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}
	requestID = strings.TrimSpace(requestID)

	started := time.Now()
	logger := s.loggerWith(ctx, "CompleteRequest", "request_id", requestID)
	defer func() {
		s.metrics.ObserveOperation("CompleteRequest", outcome(err), time.Since(started))
		if err != nil {
			logger.ErrorContext(ctx, "request completion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "request completed")
	}()

	unlockRequest := s.locks.lockRequest(requestID)
	defer unlockRequest()

	current, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		err = mapStoreError(err)
		return
	}
	if err = scheduler.CheckRequestTransition(current, scheduler.RequestCompleted); err != nil {
		err = transitionError(err)
		return
	}
	linked, hasLinked, err := s.linkedSession(ctx, requestID)
	if err != nil {
		return
	}

	now := s.now()
	slot := current.EffectiveSlot()
	request = current.Clone()
	request.Status = scheduler.RequestCompleted
	request.RequestedDate = slot.Date
	request.RequestedTime = slot.Time
	request.RescheduledTo = nil
	request.CompletedAt = &now
	request.UpdatedAt = now
	request.History = append(request.History, scheduler.StatusChange{
		From: current.Status, To: scheduler.RequestCompleted, At: now, MemberID: request.AssignedTo.ID,
	})

	var session *scheduler.ScheduledSession
	if hasLinked && !linked.Status.IsTerminal() {
		completed := linked.Clone()
		completed.Status = scheduler.SessionCompleted
		completed.UpdatedAt = now
		session = &completed
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.UpdateRequest(ctx, request); err != nil {
			return err
		}
		if session != nil {
			return w.UpdateSession(ctx, *session)
		}
		return nil
	})
	if err != nil {
		err = fmt.Errorf("complete request: %w", mapStoreError(err))
		return
	}

	s.cache.InvalidateMember(request.AssignedTo.ID)
	s.publish(ctx, logger, requestEvent(EventRequestCompleted, request, session, now))
	return
}

// AdvanceSession moves a session along its own lifecycle (start, complete,
// no-show, cancel). The owning request is left untouched.
func (s *SchedulingService) AdvanceSession(ctx context.Context, sessionID string, to scheduler.SessionStatus) (session scheduler.ScheduledSession, err error) {
	if err = s.ready(); err != nil {
		return
	}
	sessionID = strings.TrimSpace(sessionID)

	started := time.Now()
	logger := s.loggerWith(ctx, "AdvanceSession", "session_id", sessionID, "status", string(to))
	defer func() {
		s.metrics.ObserveOperation("AdvanceSession", outcome(err), time.Since(started))
		if err != nil {
			logger.ErrorContext(ctx, "session status change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session status changed")
	}()

	if _, parseErr := scheduler.ParseSessionStatus(string(to)); parseErr != nil {
		err = fieldError("status", "unknown session status")
		return
	}

	current, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return
	}
	defer unlock()

	if err = scheduler.CheckSessionTransition(current, to); err != nil {
		err = transitionError(err)
		return
	}

	now := s.now()
	session = current.Clone()
	session.Status = to
	session.UpdatedAt = now
	if to == scheduler.SessionCancelled {
		session.CancelledAt = &now
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.UpdateSession(ctx, session)
	})
	if err != nil {
		err = fmt.Errorf("update session: %w", mapStoreError(err))
		return
	}

	s.cache.InvalidateMember(session.Member.ID)
	s.publish(ctx, logger, sessionEvent(EventSessionStatusChanged, session, now))
	return
}

// AttachRecording stores the recording link of a session.
func (s *SchedulingService) AttachRecording(ctx context.Context, sessionID, recordingURL string) (session scheduler.ScheduledSession, err error) {
	if err = s.ready(); err != nil {
		return
	}
	sessionID = strings.TrimSpace(sessionID)
	recordingURL = strings.TrimSpace(recordingURL)

	started := time.Now()
	logger := s.loggerWith(ctx, "AttachRecording", "session_id", sessionID)
	defer func() {
		s.metrics.ObserveOperation("AttachRecording", outcome(err), time.Since(started))
		if err != nil {
			logger.ErrorContext(ctx, "recording attachment failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "recording attached")
	}()

	if !isHTTPURL(recordingURL) {
		err = fieldError("recording_url", "recording url must be an absolute http or https url")
		return
	}

	current, unlock, err := s.lockSession(ctx, sessionID)
	if err != nil {
		return
	}
	defer unlock()

	if current.Status == scheduler.SessionCancelled {
		err = fieldError("status", "cannot attach a recording to a cancelled session")
		return
	}

	now := s.now()
	session = current.Clone()
	session.RecordingURL = recordingURL
	session.UpdatedAt = now

	err = s.store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.UpdateSession(ctx, session)
	})
	if err != nil {
		err = fmt.Errorf("update session: %w", mapStoreError(err))
		return
	}

	s.publish(ctx, logger, sessionEvent(EventSessionRecording, session, now))
	return
}

// SetResponse records the message sent back to the requester. Either a free
// text message or a template id is required.
func (s *SchedulingService) SetResponse(ctx context.Context, requestID, message, templateID string) (request scheduler.SessionRequest, err error) {
	if err = s.ready(); err != nil {
		return
	}
	requestID = strings.TrimSpace(requestID)
	message = strings.TrimSpace(message)
	templateID = strings.TrimSpace(templateID)

	started := time.Now()
	logger := s.loggerWith(ctx, "SetResponse", "request_id", requestID, "template_id", templateID)
	defer func() {
		s.metrics.ObserveOperation("SetResponse", outcome(err), time.Since(started))
		if err != nil {
			logger.ErrorContext(ctx, "response update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "response recorded")
	}()

	if message == "" && templateID == "" {
		err = fieldError("message", "message or template id is required")
		return
	}

	unlockRequest := s.locks.lockRequest(requestID)
	defer unlockRequest()

	current, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		err = mapStoreError(err)
		return
	}

	now := s.now()
	request = current.Clone()
	request.ResponseMessage = message
	request.ResponseTemplateID = templateID
	request.UpdatedAt = now

	err = s.store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.UpdateRequest(ctx, request)
	})
	if err != nil {
		err = fmt.Errorf("update request: %w", mapStoreError(err))
		return
	}

	s.publish(ctx, logger, requestEvent(EventRequestResponded, request, nil, now))
	return
}

// checkCalendar enforces the member's daily cap and the no-overlap rule for a
// booking at slot. excludeSessionID names the session being moved, if any.
// Callers must hold the member lock.
func (s *SchedulingService) checkCalendar(ctx context.Context, memberID string, slot scheduler.Slot, duration int, excludeSessionID string) error {
	// Neighbouring days are loaded because a booking may cross midnight in
	// either direction.
	existing, err := s.store.SessionsForMember(ctx, memberID, slot.Date.AddDays(-1), slot.Date, slot.Date.AddDays(1))
	if err != nil {
		return fmt.Errorf("load member sessions: %w", err)
	}

	rule, ok, err := s.rules.RuleFor(ctx, memberID, slot.Date.Weekday())
	switch {
	case err != nil:
		return err
	case ok && rule.MaxSessionsPerDay > 0:
		others := make([]scheduler.ScheduledSession, 0, len(existing))
		for _, session := range existing {
			if session.ID != excludeSessionID {
				others = append(others, session)
			}
		}
		day := scheduler.DaySnapshot{MemberID: memberID, Date: slot.Date, Sessions: others}
		if day.BookedCount() >= rule.MaxSessionsPerDay {
			return fieldError("member_id", "daily session limit reached")
		}
	}

	conflict := scheduler.DetectConflict(existing, scheduler.Candidate{
		MemberID:         memberID,
		Date:             slot.Date,
		Time:             slot.Time,
		DurationMinutes:  duration,
		ExcludeSessionID: excludeSessionID,
	})
	if conflict != nil {
		return &ConflictError{MemberID: conflict.MemberID, Session: conflict.Session}
	}
	return nil
}

// linkedSession returns the session booked for a request, if any.
func (s *SchedulingService) linkedSession(ctx context.Context, requestID string) (scheduler.ScheduledSession, bool, error) {
	session, err := s.store.SessionForRequest(ctx, requestID)
	if errors.Is(err, persistence.ErrNotFound) {
		return scheduler.ScheduledSession{}, false, nil
	}
	if err != nil {
		return scheduler.ScheduledSession{}, false, fmt.Errorf("load linked session: %w", err)
	}
	return session, true, nil
}

// activeSession is linkedSession for operations that move the booking; a
// linked session that already ended cannot be moved.
func (s *SchedulingService) activeSession(ctx context.Context, requestID string) (scheduler.ScheduledSession, bool, error) {
	session, ok, err := s.linkedSession(ctx, requestID)
	if err != nil || !ok {
		return session, ok, err
	}
	if session.Status.IsTerminal() {
		return scheduler.ScheduledSession{}, false, fieldError("session", "linked session is closed")
	}
	return session, true, nil
}

// lockSession takes the owning request's lock and re-reads the session under it.
func (s *SchedulingService) lockSession(ctx context.Context, sessionID string) (scheduler.ScheduledSession, func(), error) {
	peek, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return scheduler.ScheduledSession{}, nil, mapStoreError(err)
	}
	unlock := s.locks.lockRequest(peek.RequestID)
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		unlock()
		return scheduler.ScheduledSession{}, nil, mapStoreError(err)
	}
	return session, unlock, nil
}

func (s *SchedulingService) meetingLink(ctx context.Context, logger *slog.Logger) string {
	if s.links == nil {
		return ""
	}
	link, err := s.links.GenerateMeetingLink(ctx)
	if err != nil {
		logger.WarnContext(ctx, "meeting link generation failed", "error", err)
		return ""
	}
	return link
}

func (s *SchedulingService) publish(ctx context.Context, logger *slog.Logger, event Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "event publish failed", "event_type", string(event.Type), "error", err)
	}
}

func requestEvent(kind EventType, request scheduler.SessionRequest, session *scheduler.ScheduledSession, at time.Time) Event {
	slot := request.EffectiveSlot()
	event := Event{
		Type:       kind,
		RequestID:  request.ID,
		Status:     string(request.Status),
		Date:       slot.Date.String(),
		Time:       slot.Time.String(),
		Reason:     request.CancellationReason,
		OccurredAt: at,
	}
	if request.AssignedTo != nil {
		event.MemberID = request.AssignedTo.ID
	}
	if session != nil {
		event.SessionID = session.ID
	}
	return event
}

func sessionEvent(kind EventType, session scheduler.ScheduledSession, at time.Time) Event {
	return Event{
		Type:       kind,
		RequestID:  session.RequestID,
		SessionID:  session.ID,
		MemberID:   session.Member.ID,
		Status:     string(session.Status),
		Date:       session.Date.String(),
		Time:       session.Time.String(),
		OccurredAt: at,
	}
}

func parseRequestInput(input RequestInput) (scheduler.SessionRequest, *ValidationError) {
	vErr := &ValidationError{}
	request := scheduler.SessionRequest{
		Requester: scheduler.Contact{
			Name:  strings.TrimSpace(input.Name),
			Email: strings.TrimSpace(input.Email),
			Phone: strings.TrimSpace(input.Phone),
		},
		Notes: strings.TrimSpace(input.Notes),
	}

	if request.Requester.Name == "" {
		vErr.add("name", "name is required")
	}
	if request.Requester.Email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(request.Requester.Email); err != nil || addr.Address != request.Requester.Email {
		vErr.add("email", "email is invalid")
	}

	var err error
	if request.RequestedDate, err = scheduler.ParseDate(strings.TrimSpace(input.Date)); err != nil {
		vErr.add("date", "date must be formatted as YYYY-MM-DD")
	}
	if request.RequestedTime, err = scheduler.ParseTimeOfDay(input.Time); err != nil {
		vErr.add("time", "time must be formatted as HH:MM or H:MM AM")
	}
	if request.Type, err = scheduler.ParseSessionType(strings.TrimSpace(input.Type)); err != nil {
		vErr.add("type", "unknown session type")
	}
	return request, vErr
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
