package scheduler

import (
	"sort"
	"time"
)

// Conflict details an existing session that overlaps a proposed booking.
type Conflict struct {
	MemberID string
	Session  ScheduledSession
}

// Candidate describes a proposed booking checked against a member's calendar.
type Candidate struct {
	MemberID        string
	Date            Date
	Time            TimeOfDay
	DurationMinutes int
	// ExcludeSessionID skips the session being moved during a reschedule.
	ExcludeSessionID string
}

// Start returns the absolute start instant of the candidate.
func (c Candidate) Start() time.Time {
	return At(c.Date, c.Time)
}

// End returns the exclusive end instant of the candidate.
func (c Candidate) End() time.Time {
	return c.Start().Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// Overlaps reports whether two half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect. Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// DetectConflict returns the first session, in chronological order, that
// overlaps the candidate for the same member. Cancelled sessions and sessions
// of other members never conflict. It returns nil when the slot is free.
func DetectConflict(existing []ScheduledSession, candidate Candidate) *Conflict {
	if candidate.DurationMinutes <= 0 {
		return nil
	}

	ordered := make([]ScheduledSession, 0, len(existing))
	for _, session := range existing {
		if session.Member.ID != candidate.MemberID {
			continue
		}
		if session.Status == SessionCancelled {
			continue
		}
		if candidate.ExcludeSessionID != "" && session.ID == candidate.ExcludeSessionID {
			continue
		}
		ordered = append(ordered, session)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start().Before(ordered[j].Start())
	})

	start, end := candidate.Start(), candidate.End()
	for _, session := range ordered {
		if Overlaps(start, end, session.Start(), session.End()) {
			return &Conflict{MemberID: candidate.MemberID, Session: session.Clone()}
		}
	}
	return nil
}
