package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/scheduler"
)

// SessionCatalog exposes read-only lookups over requests and sessions.
type SessionCatalog struct {
	requests persistence.RequestStore
	sessions persistence.SessionStore
}

func NewSessionCatalog(requests persistence.RequestStore, sessions persistence.SessionStore) *SessionCatalog {
	return &SessionCatalog{requests: requests, sessions: sessions}
}

func (c *SessionCatalog) GetRequest(ctx context.Context, id string) (scheduler.SessionRequest, error) {
	request, err := c.requests.GetRequest(ctx, strings.TrimSpace(id))
	if err != nil {
		return scheduler.SessionRequest{}, mapStoreError(err)
	}
	return request, nil
}

// ListRequestsByStatus lists requests with the given status, or every request
// when status is empty.
func (c *SessionCatalog) ListRequestsByStatus(ctx context.Context, status scheduler.RequestStatus) ([]scheduler.SessionRequest, error) {
	if status != "" {
		if _, err := scheduler.ParseRequestStatus(string(status)); err != nil {
			return nil, fieldError("status", "unknown request status")
		}
	}
	requests, err := c.requests.ListRequests(ctx, persistence.RequestFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

func (c *SessionCatalog) GetSession(ctx context.Context, id string) (scheduler.ScheduledSession, error) {
	session, err := c.sessions.GetSession(ctx, strings.TrimSpace(id))
	if err != nil {
		return scheduler.ScheduledSession{}, mapStoreError(err)
	}
	return session, nil
}

// SessionForRequest returns the session booked for a request.
func (c *SessionCatalog) SessionForRequest(ctx context.Context, requestID string) (scheduler.ScheduledSession, error) {
	session, err := c.sessions.SessionForRequest(ctx, strings.TrimSpace(requestID))
	if err != nil {
		return scheduler.ScheduledSession{}, mapStoreError(err)
	}
	return session, nil
}

func (c *SessionCatalog) ListSessionsByDate(ctx context.Context, date scheduler.Date) ([]scheduler.ScheduledSession, error) {
	if date.IsZero() {
		return nil, fieldError("date", "date is required")
	}
	sessions, err := c.sessions.ListSessions(ctx, persistence.SessionFilter{Date: date})
	if err != nil {
		return nil, fmt.Errorf("list sessions by date: %w", err)
	}
	return sessions, nil
}

func (c *SessionCatalog) ListSessionsByMember(ctx context.Context, memberID string) ([]scheduler.ScheduledSession, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fieldError("member_id", "member id is required")
	}
	sessions, err := c.sessions.ListSessions(ctx, persistence.SessionFilter{MemberID: memberID})
	if err != nil {
		return nil, fmt.Errorf("list sessions by member: %w", err)
	}
	return sessions, nil
}
