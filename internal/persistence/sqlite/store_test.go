package sqlite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/session-scheduler/internal/scheduler"
)

var (
	monday    = scheduler.MustParseDate("2024-06-03")
	reference = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := Open(ctx, migration.InMemoryTestSQLiteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(ctx, slog.New(slog.NewTextHandler(io.Discard, nil))))
	return store
}

func sampleRequest(id string) scheduler.SessionRequest {
	return scheduler.SessionRequest{
		ID:            id,
		Requester:     scheduler.Contact{Name: "Ada", Email: "ada@example.com", Phone: "555-0100"},
		RequestedDate: monday,
		RequestedTime: scheduler.Clock(10, 0),
		Type:          scheduler.SessionTypeIndividual,
		Status:        scheduler.RequestPending,
		CreatedAt:     reference,
		UpdatedAt:     reference,
		History:       []scheduler.StatusChange{{To: scheduler.RequestPending, At: reference}},
	}
}

func sampleSession(id, requestID string) scheduler.ScheduledSession {
	return scheduler.ScheduledSession{
		ID:              id,
		RequestID:       requestID,
		Client:          scheduler.Contact{Name: "Ada", Email: "ada@example.com"},
		Date:            monday,
		Time:            scheduler.Clock(10, 0),
		DurationMinutes: 60,
		Type:            scheduler.SessionTypeIndividual,
		Status:          scheduler.SessionScheduled,
		Member:          scheduler.Member{ID: "m1", Name: "Mina"},
		MeetingLink:     "https://meet.example.com/abc",
		CreatedAt:       reference,
		UpdatedAt:       reference,
	}
}

func TestStoreRequestAndSessionRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	request := sampleRequest("r1")
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.CreateRequest(ctx, request)
	}))

	confirmedAt := reference.Add(time.Hour)
	request.Status = scheduler.RequestConfirmed
	request.AssignedTo = &scheduler.Member{ID: "m1", Name: "Mina"}
	request.ConfirmedAt = &confirmedAt
	request.UpdatedAt = confirmedAt
	request.History = append(request.History, scheduler.StatusChange{From: scheduler.RequestPending, To: scheduler.RequestConfirmed, At: confirmedAt, MemberID: "m1"})

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.UpdateRequest(ctx, request); err != nil {
			return err
		}
		return w.CreateSession(ctx, sampleSession("s1", "r1"))
	}))

	got, err := store.GetRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, scheduler.RequestConfirmed, got.Status)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, "Mina", got.AssignedTo.Name)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, got.ConfirmedAt.Equal(confirmedAt))
	assert.Len(t, got.History, 2)
	assert.Nil(t, got.RescheduledTo)

	session, err := store.SessionForRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, scheduler.Clock(10, 0), session.Time)

	confirmed, err := store.ListRequests(ctx, persistence.RequestFilter{Status: scheduler.RequestConfirmed})
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)
	pending, err := store.ListRequests(ctx, persistence.RequestFilter{Status: scheduler.RequestPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStoreAtomicRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	err := store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.CreateRequest(ctx, sampleRequest("r1")); err != nil {
			return err
		}
		return w.UpdateSession(ctx, sampleSession("missing", "r1"))
	})
	require.ErrorIs(t, err, persistence.ErrNotFound)

	_, err = store.GetRequest(ctx, "r1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestStoreRejectsSecondSessionForRequest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		if err := w.CreateRequest(ctx, sampleRequest("r1")); err != nil {
			return err
		}
		return w.CreateSession(ctx, sampleSession("s1", "r1"))
	}))

	err := store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		return w.CreateSession(ctx, sampleSession("s2", "r1"))
	})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)
}

func TestStoreSessionsForMemberUsesDates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	late := sampleSession("s-late", "r-late")
	late.Date = monday.AddDays(-1)
	late.Time = scheduler.Clock(23, 30)
	other := sampleSession("s-other", "r-other")
	other.Member = scheduler.Member{ID: "m2"}

	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, w persistence.Writer) error {
		for _, id := range []string{"r1", "r-late", "r-other"} {
			if err := w.CreateRequest(ctx, sampleRequest(id)); err != nil {
				return err
			}
		}
		for _, s := range []scheduler.ScheduledSession{sampleSession("s1", "r1"), late, other} {
			if err := w.CreateSession(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}))

	sessions, err := store.SessionsForMember(ctx, "m1", monday.AddDays(-1), monday)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s-late", sessions[0].ID)
	assert.Equal(t, "s1", sessions[1].ID)

	byDate, err := store.ListSessions(ctx, persistence.SessionFilter{Date: monday})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	byMember, err := store.ListSessions(ctx, persistence.SessionFilter{MemberID: "m2"})
	require.NoError(t, err)
	assert.Len(t, byMember, 1)
}

func TestStoreUpsertAvailability(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	member := scheduler.Member{ID: "m1", Name: "Mina"}

	first, err := store.UpsertAvailability(ctx, scheduler.Availability{ID: "a1", Member: member, DayOfWeek: time.Monday, Start: scheduler.Clock(9, 0), End: scheduler.Clock(17, 0), IsAvailable: true, MaxSessionsPerDay: 6})
	require.NoError(t, err)
	assert.Equal(t, "a1", first.ID)

	second, err := store.UpsertAvailability(ctx, scheduler.Availability{ID: "a2", Member: member, DayOfWeek: time.Monday, Start: scheduler.Clock(10, 0), End: scheduler.Clock(12, 0)})
	require.NoError(t, err)
	assert.Equal(t, "a1", second.ID)
	assert.False(t, second.IsAvailable)
	assert.Equal(t, scheduler.Clock(10, 0), second.Start)

	rules, err := store.ListAvailability(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	_, err = store.GetAvailability(ctx, "m1", time.Tuesday)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestStoreUpsertAvailabilityMapsConstraintFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	member := scheduler.Member{ID: "m1", Name: "Mina"}

	_, err := store.UpsertAvailability(ctx, scheduler.Availability{ID: "a1", Member: member, DayOfWeek: time.Weekday(9), Start: scheduler.Clock(9, 0), End: scheduler.Clock(17, 0)})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)

	_, err = store.UpsertAvailability(ctx, scheduler.Availability{ID: "a2", Member: member, DayOfWeek: time.Monday, Start: scheduler.Clock(9, 0), End: scheduler.Clock(17, 0), MaxSessionsPerDay: -1})
	assert.ErrorIs(t, err, persistence.ErrConstraintViolation)
}

func TestStoreMapsDriverFailures(t *testing.T) {
	t.Parallel()

	raw, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer raw.Close()
	store := NewStore(NewConnectionPoolFromDB(sqlx.NewDb(raw, "sqlmock")))

	mock.ExpectQuery(`SELECT .+ FROM session_requests WHERE id = \?`).
		WithArgs("r1").
		WillReturnError(errors.New("disk I/O error"))

	_, err = store.GetRequest(context.Background(), "r1")
	assert.EqualError(t, err, "disk I/O error")

	mock.ExpectQuery(`SELECT .+ FROM scheduled_sessions WHERE id = \?`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = store.GetSession(context.Background(), "s1")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetryHelperRetriesLockedDatabase(t *testing.T) {
	t.Parallel()

	helper := NewRetryHelper(RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 2})

	attempts := 0
	err := helper.WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = helper.WithRetry(context.Background(), func() error {
		attempts++
		return errors.New("UNIQUE constraint failed: session_requests.id")
	})
	assert.ErrorIs(t, err, persistence.ErrDuplicate)
	assert.Equal(t, 1, attempts)
}
