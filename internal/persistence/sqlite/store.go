// Package sqlite implements the persistence contracts on SQLite through sqlx.
package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/session-scheduler/internal/scheduler"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations returns the schema migrations shipped with the binary.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Store implements persistence.Store on a SQLite connection pool.
type Store struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	retry  *RetryHelper
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database described by config.
func Open(ctx context.Context, config migration.SQLiteConfig) (*Store, error) {
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewStore(pool), nil
}

// NewStore wraps an existing pool.
func NewStore(pool *ConnectionPool) *Store {
	return &Store{
		pool:   pool,
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) error {
	manager := migration.NewMigrationManager(
		migration.NewFileScanner(Migrations()),
		migration.NewSQLiteExecutor(s.pool.DB()),
		logger,
	)
	return manager.RunMigrations(ctx)
}

// --- RequestStore implementation ---

// GetRequest retrieves a request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (scheduler.SessionRequest, error) {
	var row requestRow
	err := s.pool.DB().GetContext(ctx, &row, `SELECT `+requestColumns+` FROM session_requests WHERE id = ?`, id)
	if err != nil {
		return scheduler.SessionRequest{}, s.mapper.MapError(err)
	}
	request, err := row.toDomain()
	if err != nil {
		return scheduler.SessionRequest{}, fmt.Errorf("sqlite: request %s: %w", id, err)
	}
	return request, nil
}

// ListRequests returns matching requests ordered by creation time.
func (s *Store) ListRequests(ctx context.Context, filter persistence.RequestFilter) ([]scheduler.SessionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM session_requests`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var rows []requestRow
	if err := s.pool.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.mapper.MapError(err)
	}

	requests := make([]scheduler.SessionRequest, 0, len(rows))
	for _, row := range rows {
		request, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("sqlite: request %s: %w", row.ID, err)
		}
		requests = append(requests, request)
	}
	return requests, nil
}

// --- SessionStore implementation ---

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (scheduler.ScheduledSession, error) {
	return s.getSession(ctx, `SELECT `+sessionColumns+` FROM scheduled_sessions WHERE id = ?`, id)
}

// SessionForRequest returns the session created for the request.
func (s *Store) SessionForRequest(ctx context.Context, requestID string) (scheduler.ScheduledSession, error) {
	return s.getSession(ctx, `SELECT `+sessionColumns+` FROM scheduled_sessions WHERE request_id = ?`, requestID)
}

func (s *Store) getSession(ctx context.Context, query string, arg string) (scheduler.ScheduledSession, error) {
	var row sessionRow
	if err := s.pool.DB().GetContext(ctx, &row, query, arg); err != nil {
		return scheduler.ScheduledSession{}, s.mapper.MapError(err)
	}
	session, err := row.toDomain()
	if err != nil {
		return scheduler.ScheduledSession{}, fmt.Errorf("sqlite: session %s: %w", row.ID, err)
	}
	return session, nil
}

// ListSessions returns matching sessions in chronological order.
func (s *Store) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]scheduler.ScheduledSession, error) {
	var (
		clauses []string
		args    []any
	)
	if !filter.Date.IsZero() {
		clauses = append(clauses, "session_date = ?")
		args = append(args, filter.Date.String())
	}
	if filter.MemberID != "" {
		clauses = append(clauses, "member_id = ?")
		args = append(args, filter.MemberID)
	}

	query := `SELECT ` + sessionColumns + ` FROM scheduled_sessions`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY session_date ASC, session_time ASC, id ASC`
	return s.selectSessions(ctx, query, args...)
}

// SessionsForMember reads the (member_id, session_date) index.
func (s *Store) SessionsForMember(ctx context.Context, memberID string, dates ...scheduler.Date) ([]scheduler.ScheduledSession, error) {
	if len(dates) == 0 {
		return []scheduler.ScheduledSession{}, nil
	}
	values := make([]string, len(dates))
	for i, date := range dates {
		values[i] = date.String()
	}

	query, args, err := sqlx.In(`SELECT `+sessionColumns+` FROM scheduled_sessions
		WHERE member_id = ? AND session_date IN (?)
		ORDER BY session_date ASC, session_time ASC, id ASC`, memberID, values)
	if err != nil {
		return nil, fmt.Errorf("sqlite: build member sessions query: %w", err)
	}
	return s.selectSessions(ctx, s.pool.DB().Rebind(query), args...)
}

func (s *Store) selectSessions(ctx context.Context, query string, args ...any) ([]scheduler.ScheduledSession, error) {
	var rows []sessionRow
	if err := s.pool.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.mapper.MapError(err)
	}
	sessions := make([]scheduler.ScheduledSession, 0, len(rows))
	for _, row := range rows {
		session, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("sqlite: session %s: %w", row.ID, err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// --- AvailabilityStore implementation ---

const availabilityColumns = `id, member_id, member_name, day_of_week, start_time, end_time, is_available, max_sessions_per_day`

// ListAvailability returns the member's rules ordered by day then start.
func (s *Store) ListAvailability(ctx context.Context, memberID string) ([]scheduler.Availability, error) {
	var rows []availabilityRow
	err := s.pool.DB().SelectContext(ctx, &rows,
		`SELECT `+availabilityColumns+` FROM member_availability WHERE member_id = ? ORDER BY day_of_week ASC, start_time ASC`, memberID)
	if err != nil {
		return nil, s.mapper.MapError(err)
	}
	rules := make([]scheduler.Availability, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("sqlite: availability %s: %w", row.ID, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// GetAvailability returns the rule for the member and weekday.
func (s *Store) GetAvailability(ctx context.Context, memberID string, day time.Weekday) (scheduler.Availability, error) {
	var row availabilityRow
	err := s.pool.DB().GetContext(ctx, &row,
		`SELECT `+availabilityColumns+` FROM member_availability WHERE member_id = ? AND day_of_week = ?`, memberID, int(day))
	if err != nil {
		return scheduler.Availability{}, s.mapper.MapError(err)
	}
	return row.toDomain()
}

// UpsertAvailability stores the rule; an existing rule for the same member
// and day keeps its id and takes the new values.
func (s *Store) UpsertAvailability(ctx context.Context, rule scheduler.Availability) (scheduler.Availability, error) {
	const upsert = `
		INSERT INTO member_availability (` + availabilityColumns + `)
		VALUES (:id, :member_id, :member_name, :day_of_week, :start_time, :end_time, :is_available, :max_sessions_per_day)
		ON CONFLICT (member_id, day_of_week) DO UPDATE SET
			member_name = excluded.member_name,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			is_available = excluded.is_available,
			max_sessions_per_day = excluded.max_sessions_per_day`

	err := s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().NamedExecContext(ctx, upsert, newAvailabilityRow(rule))
		return err
	})
	if err != nil {
		return scheduler.Availability{}, err
	}
	return s.GetAvailability(ctx, rule.Member.ID, rule.DayOfWeek)
}

// --- atomic writes ---

// Atomic runs fn inside one transaction. Locked-database failures retry the
// whole transaction, so fn must only issue writes through w.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, w persistence.Writer) error) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
			return fn(ctx, &txWriter{tx: tx, mapper: s.mapper})
		})
	})
}

type txWriter struct {
	tx     *sqlx.Tx
	mapper *ErrorMapper
}

func (w *txWriter) CreateRequest(ctx context.Context, request scheduler.SessionRequest) error {
	row, err := newRequestRow(request)
	if err != nil {
		return err
	}
	_, err = w.tx.NamedExecContext(ctx, `INSERT INTO session_requests (`+requestColumns+`) VALUES (
		:id, :requester_name, :requester_email, :requester_phone, :requested_date, :requested_time,
		:session_type, :notes, :status, :assigned_member_id, :assigned_member_name, :rescheduled_date, :rescheduled_time,
		:cancellation_reason, :response_message, :response_template_id, :history, :created_at, :updated_at,
		:confirmed_at, :cancelled_at, :completed_at)`, row)
	return w.mapper.MapError(err)
}

func (w *txWriter) UpdateRequest(ctx context.Context, request scheduler.SessionRequest) error {
	row, err := newRequestRow(request)
	if err != nil {
		return err
	}
	result, err := w.tx.NamedExecContext(ctx, `UPDATE session_requests SET
		requester_name = :requester_name, requester_email = :requester_email, requester_phone = :requester_phone,
		requested_date = :requested_date, requested_time = :requested_time, session_type = :session_type,
		notes = :notes, status = :status, assigned_member_id = :assigned_member_id,
		assigned_member_name = :assigned_member_name, rescheduled_date = :rescheduled_date,
		rescheduled_time = :rescheduled_time, cancellation_reason = :cancellation_reason,
		response_message = :response_message, response_template_id = :response_template_id,
		history = :history, updated_at = :updated_at, confirmed_at = :confirmed_at,
		cancelled_at = :cancelled_at, completed_at = :completed_at
		WHERE id = :id`, row)
	return w.checkAffected(result, err)
}

func (w *txWriter) CreateSession(ctx context.Context, session scheduler.ScheduledSession) error {
	_, err := w.tx.NamedExecContext(ctx, `INSERT INTO scheduled_sessions (`+sessionColumns+`) VALUES (
		:id, :request_id, :client_name, :client_email, :client_phone, :session_date, :session_time,
		:duration_minutes, :session_type, :status, :member_id, :member_name, :meeting_link, :recording_url,
		:cancellation_reason, :created_at, :updated_at, :cancelled_at)`, newSessionRow(session))
	return w.mapper.MapError(err)
}

func (w *txWriter) UpdateSession(ctx context.Context, session scheduler.ScheduledSession) error {
	result, err := w.tx.NamedExecContext(ctx, `UPDATE scheduled_sessions SET
		session_date = :session_date, session_time = :session_time, duration_minutes = :duration_minutes,
		session_type = :session_type, status = :status, member_id = :member_id, member_name = :member_name,
		meeting_link = :meeting_link, recording_url = :recording_url,
		cancellation_reason = :cancellation_reason, updated_at = :updated_at, cancelled_at = :cancelled_at
		WHERE id = :id`, newSessionRow(session))
	return w.checkAffected(result, err)
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func (w *txWriter) checkAffected(result rowsAffecter, err error) error {
	if err != nil {
		return w.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return w.mapper.MapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}
