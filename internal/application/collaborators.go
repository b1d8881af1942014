package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MeetingLinkProvider issues a video meeting URL for a new session. Failures
// never block a booking.
type MeetingLinkProvider interface {
	GenerateMeetingLink(ctx context.Context) (string, error)
}

// LocalMeetingLinks builds links locally as <BaseURL>/<uuid>.
type LocalMeetingLinks struct {
	BaseURL string
}

// GenerateMeetingLink implements MeetingLinkProvider.
func (l LocalMeetingLinks) GenerateMeetingLink(context.Context) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(l.BaseURL), "/")
	if base == "" {
		return "", fmt.Errorf("meeting link base URL not configured")
	}
	token, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate meeting token: %w", err)
	}
	return base + "/" + token.String(), nil
}

// EventType names a lifecycle event.
type EventType string

const (
	EventRequestSubmitted     EventType = "request.submitted"
	EventRequestConfirmed     EventType = "request.confirmed"
	EventRequestRescheduled   EventType = "request.rescheduled"
	EventRequestCancelled     EventType = "request.cancelled"
	EventRequestCompleted     EventType = "request.completed"
	EventRequestResponded     EventType = "request.responded"
	EventSessionStatusChanged EventType = "session.status_changed"
	EventSessionRecording     EventType = "session.recording_attached"
)

// Event is published after a mutation commits.
type Event struct {
	Type       EventType `json:"type"`
	RequestID  string    `json:"request_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	MemberID   string    `json:"member_id,omitempty"`
	Status     string    `json:"status"`
	Date       string    `json:"date,omitempty"`
	Time       string    `json:"time,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers lifecycle events to external listeners.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Observer records operation outcomes, typically as metrics.
type Observer interface {
	ObserveOperation(operation, outcome string, elapsed time.Duration)
	ObserveSlotCache(hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, time.Duration) {}
func (nopObserver) ObserveSlotCache(bool)                          {}
