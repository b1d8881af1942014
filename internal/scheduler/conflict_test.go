package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func session(id, member string, date Date, at TimeOfDay, minutes int, status SessionStatus) ScheduledSession {
	return ScheduledSession{
		ID:              id,
		RequestID:       "req-" + id,
		Member:          Member{ID: member},
		Date:            date,
		Time:            at,
		DurationMinutes: minutes,
		Status:          status,
	}
}

func TestDetectConflict(t *testing.T) {
	t.Parallel()

	monday := MustParseDate("2024-06-03")
	existing := []ScheduledSession{
		session("s-late", "m1", monday, Clock(14, 0), 60, SessionScheduled),
		session("s-ten", "m1", monday, Clock(10, 0), 60, SessionScheduled),
		session("s-cancelled", "m1", monday, Clock(12, 0), 60, SessionCancelled),
		session("s-other", "m2", monday, Clock(16, 0), 60, SessionScheduled),
	}

	tests := []struct {
		name   string
		at     TimeOfDay
		dur    int
		member string
		want   string
	}{
		{name: "exact overlap", at: Clock(10, 0), dur: 60, member: "m1", want: "s-ten"},
		{name: "partial overlap from before", at: Clock(9, 30), dur: 60, member: "m1", want: "s-ten"},
		{name: "touching end is free", at: Clock(11, 0), dur: 60, member: "m1"},
		{name: "touching start is free", at: Clock(9, 0), dur: 60, member: "m1"},
		{name: "cancelled session ignored", at: Clock(12, 0), dur: 60, member: "m1"},
		{name: "other member ignored", at: Clock(16, 0), dur: 60, member: "m1"},
		{name: "first in chronological order", at: Clock(9, 0), dur: 360, member: "m1", want: "s-ten"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := DetectConflict(existing, Candidate{MemberID: tc.member, Date: monday, Time: tc.at, DurationMinutes: tc.dur})
			if tc.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want, got.Session.ID)
			assert.Equal(t, tc.member, got.MemberID)
		})
	}
}

func TestDetectConflictExcludesMovedSession(t *testing.T) {
	t.Parallel()

	monday := MustParseDate("2024-06-03")
	existing := []ScheduledSession{session("s1", "m1", monday, Clock(10, 0), 60, SessionScheduled)}

	got := DetectConflict(existing, Candidate{
		MemberID:         "m1",
		Date:             monday,
		Time:             Clock(10, 30),
		DurationMinutes:  60,
		ExcludeSessionID: "s1",
	})
	assert.Nil(t, got)
}

func TestDetectConflictAcrossMidnight(t *testing.T) {
	t.Parallel()

	sunday := MustParseDate("2024-06-02")
	existing := []ScheduledSession{session("late", "m1", sunday, Clock(23, 30), 90, SessionScheduled)}

	got := DetectConflict(existing, Candidate{MemberID: "m1", Date: sunday.AddDays(1), Time: Clock(0, 30), DurationMinutes: 30})
	require.NotNil(t, got)
	assert.Equal(t, "late", got.Session.ID)

	free := DetectConflict(existing, Candidate{MemberID: "m1", Date: sunday.AddDays(1), Time: Clock(1, 0), DurationMinutes: 30})
	assert.Nil(t, free)
}
