package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/scheduler"
)

var monday = scheduler.MustParseDate("2024-06-03")

func newSession(id, requestID, member string, date scheduler.Date, at scheduler.TimeOfDay) scheduler.ScheduledSession {
	return scheduler.ScheduledSession{
		ID:              id,
		RequestID:       requestID,
		Member:          scheduler.Member{ID: member},
		Date:            date,
		Time:            at,
		DurationMinutes: 60,
		Type:            scheduler.SessionTypeIndividual,
		Status:          scheduler.SessionScheduled,
	}
}

func TestAtomicAppliesAllWrites(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	request := scheduler.SessionRequest{ID: "r1", Status: scheduler.RequestPending}

	err := store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.CreateRequest(ctx, request); err != nil {
			return err
		}
		return w.CreateSession(ctx, newSession("s1", "r1", "m1", monday, scheduler.Clock(10, 0)))
	})
	require.NoError(t, err)

	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, scheduler.RequestPending, got.Status)

	linked, err := store.SessionForRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "s1", linked.ID)
}

func TestAtomicIsAllOrNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	err := store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.CreateRequest(ctx, scheduler.SessionRequest{ID: "r1"}); err != nil {
			return err
		}
		return w.UpdateSession(ctx, newSession("missing", "r1", "m1", monday, scheduler.Clock(9, 0)))
	})
	require.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = store.GetRequest(ctx, "r1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	boom := errors.New("boom")
	err = store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		_ = w.CreateRequest(ctx, scheduler.SessionRequest{ID: "r2"})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = store.GetRequest(ctx, "r2")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestMemberDayIndexFollowsReschedule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	session := newSession("s1", "r1", "m1", monday, scheduler.Clock(10, 0))

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.CreateSession(ctx, session)
	}))

	session.Date = monday.AddDays(1)
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.UpdateSession(ctx, session)
	}))

	onMonday, err := store.SessionsForMember(ctx, "m1", monday)
	require.NoError(t, err)
	assert.Empty(t, onMonday)

	onTuesday, err := store.SessionsForMember(ctx, "m1", monday, monday.AddDays(1))
	require.NoError(t, err)
	require.Len(t, onTuesday, 1)
	assert.Equal(t, "s1", onTuesday[0].ID)

	byDate, err := store.ListSessions(ctx, persistence.SessionFilter{Date: monday.AddDays(1)})
	require.NoError(t, err)
	assert.Len(t, byDate, 1)
}

func TestSecondSessionForRequestRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.CreateSession(ctx, newSession("s1", "r1", "m1", monday, scheduler.Clock(10, 0)))
	}))

	err := store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.CreateSession(ctx, newSession("s2", "r1", "m1", monday, scheduler.Clock(12, 0)))
	})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestUpsertAvailabilityKeepsOneRulePerDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	member := scheduler.Member{ID: "m1", Name: "Mina"}

	_, err := store.UpsertAvailability(ctx, scheduler.Availability{ID: "a1", Member: member, DayOfWeek: time.Monday, Start: scheduler.Clock(9, 0), End: scheduler.Clock(17, 0), IsAvailable: true})
	require.NoError(t, err)
	replaced, err := store.UpsertAvailability(ctx, scheduler.Availability{ID: "a2", Member: member, DayOfWeek: time.Monday, Start: scheduler.Clock(10, 0), End: scheduler.Clock(12, 0), IsAvailable: true})
	require.NoError(t, err)
	assert.Equal(t, "a1", replaced.ID)

	_, err = store.UpsertAvailability(ctx, scheduler.Availability{ID: "a3", Member: member, DayOfWeek: time.Sunday, Start: scheduler.Clock(9, 0), End: scheduler.Clock(10, 0)})
	require.NoError(t, err)

	rules, err := store.ListAvailability(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, time.Sunday, rules[0].DayOfWeek)
	assert.Equal(t, scheduler.Clock(10, 0), rules[1].Start)

	_, err = store.GetAvailability(ctx, "m1", time.Friday)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestReadsReturnCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.CreateRequest(ctx, scheduler.SessionRequest{ID: "r1", AssignedTo: &scheduler.Member{ID: "m1"}})
	}))

	first, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	first.AssignedTo.ID = "mutated"

	second, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "m1", second.AssignedTo.ID)
}
