package testfixtures

import (
	"context"
	"fmt"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/scheduler"
)

// Monday is the booking date most scenarios use.
var Monday = scheduler.MustParseDate("2024-06-03")

var referenceTime = time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)

// ReferenceTime is the canonical "now" of fixtures, two days before Monday.
func ReferenceTime() time.Time {
	return referenceTime
}

// Member returns a team member with a readable name.
func Member(id string) scheduler.Member {
	return scheduler.Member{ID: id, Name: "Member " + id}
}

// RequestInput builds a valid submission for the given slot and type.
func RequestInput(date, at string, kind scheduler.SessionType) application.RequestInput {
	return application.RequestInput{
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Phone: "555-0100",
		Date:  date,
		Time:  at,
		Type:  string(kind),
	}
}

// WorkdayRule is an available rule from start to end on day.
func WorkdayRule(memberID string, day time.Weekday, start, end string, maxPerDay int) scheduler.Availability {
	return scheduler.Availability{
		ID:                fmt.Sprintf("rule-%s-%d", memberID, int(day)),
		Member:            Member(memberID),
		DayOfWeek:         day,
		Start:             scheduler.MustParseTimeOfDay(start),
		End:               scheduler.MustParseTimeOfDay(end),
		IsAvailable:       true,
		MaxSessionsPerDay: maxPerDay,
	}
}

// SeedAvailability stores rules directly, bypassing validation.
func SeedAvailability(ctx context.Context, store persistence.AvailabilityStore, rules ...scheduler.Availability) error {
	for _, rule := range rules {
		if _, err := store.UpsertAvailability(ctx, rule); err != nil {
			return fmt.Errorf("seed availability %s: %w", rule.ID, err)
		}
	}
	return nil
}

// SeedBooking writes a confirmed request and its scheduled session for member
// at date/at. It returns the session.
func SeedBooking(ctx context.Context, store persistence.Store, id string, member scheduler.Member, date scheduler.Date, at string, kind scheduler.SessionType) (scheduler.ScheduledSession, error) {
	now := ReferenceTime()
	start := scheduler.MustParseTimeOfDay(at)
	request := scheduler.SessionRequest{
		ID:            "req-" + id,
		Requester:     scheduler.Contact{Name: "Seeded " + id, Email: id + "@example.com"},
		RequestedDate: date,
		RequestedTime: start,
		Type:          kind,
		Status:        scheduler.RequestConfirmed,
		AssignedTo:    &member,
		CreatedAt:     now,
		UpdatedAt:     now,
		ConfirmedAt:   &now,
		History: []scheduler.StatusChange{
			{To: scheduler.RequestPending, At: now},
			{From: scheduler.RequestPending, To: scheduler.RequestConfirmed, At: now, MemberID: member.ID},
		},
	}
	session := scheduler.ScheduledSession{
		ID:              "sess-" + id,
		RequestID:       request.ID,
		Client:          request.Requester,
		Date:            date,
		Time:            start,
		DurationMinutes: kind.DurationMinutes(),
		Type:            kind,
		Status:          scheduler.SessionScheduled,
		Member:          member,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.CreateRequest(ctx, request); err != nil {
			return err
		}
		return w.CreateSession(ctx, session)
	})
	if err != nil {
		return scheduler.ScheduledSession{}, fmt.Errorf("seed booking %s: %w", id, err)
	}
	return session, nil
}
