// Package memory provides the reference in-process store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/scheduler"
)

type memberDay struct {
	memberID string
	date     scheduler.Date
}

type ruleKey struct {
	memberID string
	day      time.Weekday
}

// Store keeps requests, sessions and availability rules in maps guarded by a
// single RWMutex. Sessions are additionally indexed by (member, date).
type Store struct {
	mu           sync.RWMutex
	requests     map[string]scheduler.SessionRequest
	sessions     map[string]scheduler.ScheduledSession
	byMemberDay  map[memberDay]map[string]struct{}
	byRequest    map[string]string
	availability map[ruleKey]scheduler.Availability
}

var _ persistence.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		requests:     make(map[string]scheduler.SessionRequest),
		sessions:     make(map[string]scheduler.ScheduledSession),
		byMemberDay:  make(map[memberDay]map[string]struct{}),
		byRequest:    make(map[string]string),
		availability: make(map[ruleKey]scheduler.Availability),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// --- RequestStore implementation ---

// GetRequest retrieves a request by ID.
func (s *Store) GetRequest(_ context.Context, id string) (scheduler.SessionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[id]
	if !ok {
		return scheduler.SessionRequest{}, persistence.ErrNotFound
	}
	return request.Clone(), nil
}

// ListRequests returns matching requests ordered by CreatedAt ascending.
func (s *Store) ListRequests(_ context.Context, filter persistence.RequestFilter) ([]scheduler.SessionRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]scheduler.SessionRequest, 0, len(s.requests))
	for _, request := range s.requests {
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		requests = append(requests, request.Clone())
	}

	sort.Slice(requests, func(i, j int) bool {
		if requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})
	return requests, nil
}

// --- SessionStore implementation ---

// GetSession retrieves a session by ID.
func (s *Store) GetSession(_ context.Context, id string) (scheduler.ScheduledSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return scheduler.ScheduledSession{}, persistence.ErrNotFound
	}
	return session.Clone(), nil
}

// SessionForRequest returns the session created for the request.
func (s *Store) SessionForRequest(_ context.Context, requestID string) (scheduler.ScheduledSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRequest[requestID]
	if !ok {
		return scheduler.ScheduledSession{}, persistence.ErrNotFound
	}
	return s.sessions[id].Clone(), nil
}

// ListSessions returns matching sessions in chronological order.
func (s *Store) ListSessions(_ context.Context, filter persistence.SessionFilter) ([]scheduler.ScheduledSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]scheduler.ScheduledSession, 0)
	for _, session := range s.sessions {
		if !filter.Date.IsZero() && session.Date != filter.Date {
			continue
		}
		if filter.MemberID != "" && session.Member.ID != filter.MemberID {
			continue
		}
		sessions = append(sessions, session.Clone())
	}
	sortSessions(sessions)
	return sessions, nil
}

// SessionsForMember reads the (member, date) index.
func (s *Store) SessionsForMember(_ context.Context, memberID string, dates ...scheduler.Date) ([]scheduler.ScheduledSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]scheduler.ScheduledSession, 0)
	for _, date := range dates {
		for id := range s.byMemberDay[memberDay{memberID: memberID, date: date}] {
			sessions = append(sessions, s.sessions[id].Clone())
		}
	}
	sortSessions(sessions)
	return sessions, nil
}

// --- AvailabilityStore implementation ---

// ListAvailability returns the member's rules ordered by day then start.
func (s *Store) ListAvailability(_ context.Context, memberID string) ([]scheduler.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules := make([]scheduler.Availability, 0, 7)
	for key, rule := range s.availability {
		if key.memberID == memberID {
			rules = append(rules, rule)
		}
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].DayOfWeek == rules[j].DayOfWeek {
			return rules[i].Start < rules[j].Start
		}
		return rules[i].DayOfWeek < rules[j].DayOfWeek
	})
	return rules, nil
}

// GetAvailability returns the rule for the member and weekday.
func (s *Store) GetAvailability(_ context.Context, memberID string, day time.Weekday) (scheduler.Availability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, ok := s.availability[ruleKey{memberID: memberID, day: day}]
	if !ok {
		return scheduler.Availability{}, persistence.ErrNotFound
	}
	return rule, nil
}

// UpsertAvailability stores the rule, replacing any rule for the same day.
func (s *Store) UpsertAvailability(_ context.Context, rule scheduler.Availability) (scheduler.Availability, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := ruleKey{memberID: rule.Member.ID, day: rule.DayOfWeek}
	if existing, ok := s.availability[key]; ok {
		rule.ID = existing.ID
	}
	if rule.ID == "" {
		return scheduler.Availability{}, fmt.Errorf("memory: availability rule without id: %w", persistence.ErrConstraintViolation)
	}
	s.availability[key] = rule
	return rule, nil
}

// --- atomic writes ---

type opKind int

const (
	opCreateRequest opKind = iota
	opUpdateRequest
	opCreateSession
	opUpdateSession
)

type stagedOp struct {
	kind    opKind
	request scheduler.SessionRequest
	session scheduler.ScheduledSession
}

type stagingWriter struct {
	ops []stagedOp
}

func (w *stagingWriter) CreateRequest(_ context.Context, request scheduler.SessionRequest) error {
	w.ops = append(w.ops, stagedOp{kind: opCreateRequest, request: request.Clone()})
	return nil
}

func (w *stagingWriter) UpdateRequest(_ context.Context, request scheduler.SessionRequest) error {
	w.ops = append(w.ops, stagedOp{kind: opUpdateRequest, request: request.Clone()})
	return nil
}

func (w *stagingWriter) CreateSession(_ context.Context, session scheduler.ScheduledSession) error {
	w.ops = append(w.ops, stagedOp{kind: opCreateSession, session: session.Clone()})
	return nil
}

func (w *stagingWriter) UpdateSession(_ context.Context, session scheduler.ScheduledSession) error {
	w.ops = append(w.ops, stagedOp{kind: opUpdateSession, session: session.Clone()})
	return nil
}

// Atomic stages the writes issued by fn and applies them under the write lock
// only when fn succeeds and every staged write is valid. fn may read from the
// store; staged writes are not visible to those reads.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, w persistence.Writer) error) error {
	writer := &stagingWriter{}
	if err := fn(ctx, writer); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validateLocked(writer.ops); err != nil {
		return err
	}
	for _, op := range writer.ops {
		switch op.kind {
		case opCreateRequest, opUpdateRequest:
			s.requests[op.request.ID] = op.request
		case opCreateSession, opUpdateSession:
			s.putSessionLocked(op.session)
		}
	}
	return nil
}

func (s *Store) validateLocked(ops []stagedOp) error {
	requests := make(map[string]bool)
	sessions := make(map[string]bool)
	exists := func(seen map[string]bool, live bool, id string) bool {
		if staged, ok := seen[id]; ok {
			return staged
		}
		return live
	}

	for _, op := range ops {
		switch op.kind {
		case opCreateRequest:
			_, live := s.requests[op.request.ID]
			if exists(requests, live, op.request.ID) {
				return fmt.Errorf("memory: request %s: %w", op.request.ID, persistence.ErrDuplicate)
			}
			requests[op.request.ID] = true
		case opUpdateRequest:
			_, live := s.requests[op.request.ID]
			if !exists(requests, live, op.request.ID) {
				return fmt.Errorf("memory: request %s: %w", op.request.ID, persistence.ErrNotFound)
			}
		case opCreateSession:
			_, live := s.sessions[op.session.ID]
			if exists(sessions, live, op.session.ID) {
				return fmt.Errorf("memory: session %s: %w", op.session.ID, persistence.ErrDuplicate)
			}
			if other, ok := s.byRequest[op.session.RequestID]; ok && other != op.session.ID {
				return fmt.Errorf("memory: request %s already has a session: %w", op.session.RequestID, persistence.ErrDuplicate)
			}
			sessions[op.session.ID] = true
		case opUpdateSession:
			_, live := s.sessions[op.session.ID]
			if !exists(sessions, live, op.session.ID) {
				return fmt.Errorf("memory: session %s: %w", op.session.ID, persistence.ErrNotFound)
			}
		}
	}
	return nil
}

func (s *Store) putSessionLocked(session scheduler.ScheduledSession) {
	if previous, ok := s.sessions[session.ID]; ok {
		key := memberDay{memberID: previous.Member.ID, date: previous.Date}
		delete(s.byMemberDay[key], previous.ID)
		if len(s.byMemberDay[key]) == 0 {
			delete(s.byMemberDay, key)
		}
	}

	key := memberDay{memberID: session.Member.ID, date: session.Date}
	if s.byMemberDay[key] == nil {
		s.byMemberDay[key] = make(map[string]struct{})
	}
	s.byMemberDay[key][session.ID] = struct{}{}
	s.byRequest[session.RequestID] = session.ID
	s.sessions[session.ID] = session
}

func sortSessions(sessions []scheduler.ScheduledSession) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Start().Equal(sessions[j].Start()) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].Start().Before(sessions[j].Start())
	})
}
