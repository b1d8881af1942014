package persistence

import (
	"context"
	"time"

	"github.com/example/session-scheduler/internal/scheduler"
)

// RequestFilter narrows request listings. Zero values match everything.
type RequestFilter struct {
	Status scheduler.RequestStatus
}

// SessionFilter narrows session listings. Zero values match everything.
type SessionFilter struct {
	Date     scheduler.Date
	MemberID string
}

// RequestStore reads session requests.
type RequestStore interface {
	GetRequest(ctx context.Context, id string) (scheduler.SessionRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]scheduler.SessionRequest, error)
}

// SessionStore reads scheduled sessions.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (scheduler.ScheduledSession, error)
	// SessionForRequest returns the session created for a request, or ErrNotFound.
	SessionForRequest(ctx context.Context, requestID string) (scheduler.ScheduledSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]scheduler.ScheduledSession, error)
	// SessionsForMember reads the (member, date) index for each given date.
	SessionsForMember(ctx context.Context, memberID string, dates ...scheduler.Date) ([]scheduler.ScheduledSession, error)
}

// AvailabilityStore holds weekly availability rules, unique per (member, day).
type AvailabilityStore interface {
	ListAvailability(ctx context.Context, memberID string) ([]scheduler.Availability, error)
	GetAvailability(ctx context.Context, memberID string, day time.Weekday) (scheduler.Availability, error)
	// UpsertAvailability replaces any existing rule for the same member and day,
	// keeping the existing rule id.
	UpsertAvailability(ctx context.Context, rule scheduler.Availability) (scheduler.Availability, error)
}

// Writer applies mutations inside an atomic section.
type Writer interface {
	CreateRequest(ctx context.Context, request scheduler.SessionRequest) error
	UpdateRequest(ctx context.Context, request scheduler.SessionRequest) error
	CreateSession(ctx context.Context, session scheduler.ScheduledSession) error
	UpdateSession(ctx context.Context, session scheduler.ScheduledSession) error
}

// Store is the full storage contract consumed by the application layer.
type Store interface {
	RequestStore
	SessionStore
	AvailabilityStore
	// Atomic runs fn and applies every write it issued, or none of them when
	// fn or any write returns an error. fn must only touch storage through w:
	// reads belong before the call, and fn may run more than once.
	Atomic(ctx context.Context, fn func(ctx context.Context, w Writer) error) error
	Close() error
}
