package scheduler

import "iter"

// SlotStepMinutes is the fixed slot granularity; candidates are also
// checked with this nominal duration.
const SlotStepMinutes = 60

// DaySnapshot is the read-only view the slot planner works from: the rule for
// the requested weekday (if any) and the member's sessions around that date.
type DaySnapshot struct {
	MemberID string
	Date     Date
	Rule     *Availability
	Sessions []ScheduledSession
}

// BookedCount returns the number of non-cancelled sessions the member holds
// on the snapshot date.
func (s DaySnapshot) BookedCount() int {
	count := 0
	for _, session := range s.Sessions {
		if session.Member.ID != s.MemberID || session.Status == SessionCancelled {
			continue
		}
		if session.Date == s.Date {
			count++
		}
	}
	return count
}

// PlanSlots returns the lazy sequence of free slot labels for the snapshot.
// The sequence is empty when the member has no rule, is marked unavailable or
// has reached the rule's daily session cap. Ranging over it again replays the
// same snapshot.
func PlanSlots(snapshot DaySnapshot) iter.Seq[string] {
	return func(yield func(string) bool) {
		rule := snapshot.Rule
		if rule == nil || !rule.IsAvailable {
			return
		}
		if rule.MaxSessionsPerDay > 0 && snapshot.BookedCount() >= rule.MaxSessionsPerDay {
			return
		}
		for candidate := rule.Start; candidate.Add(SlotStepMinutes) <= rule.End; candidate = candidate.Add(SlotStepMinutes) {
			conflict := DetectConflict(snapshot.Sessions, Candidate{
				MemberID:        snapshot.MemberID,
				Date:            snapshot.Date,
				Time:            candidate,
				DurationMinutes: SlotStepMinutes,
			})
			if conflict != nil {
				continue
			}
			if !yield(candidate.Label()) {
				return
			}
		}
	}
}
