package application

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/scheduler"
)

// SlotPlanner lists the free hourly start times of a member on a date.
type SlotPlanner struct {
	rules    *AvailabilityRegistry
	sessions persistence.SessionStore
	cache    *slotCache
	metrics  Observer
	logger   *slog.Logger
}

func NewSlotPlanner(rules *AvailabilityRegistry, sessions persistence.SessionStore, metrics Observer, logger *slog.Logger) *SlotPlanner {
	if metrics == nil {
		metrics = nopObserver{}
	}
	return &SlotPlanner{
		rules:    rules,
		sessions: sessions,
		metrics:  metrics,
		logger:   defaultLogger(logger),
	}
}

// AvailableSlots returns the slot labels ("9:00 AM") that are free for the
// member on date. The sequence is computed from a snapshot taken now and can
// be ranged over more than once.
func (p *SlotPlanner) AvailableSlots(ctx context.Context, memberID string, date scheduler.Date) (slots iter.Seq[string], err error) {
	started := time.Now()
	defer func() {
		p.metrics.ObserveOperation("AvailableSlots", outcome(err), time.Since(started))
		if err != nil {
			serviceLogger(ctx, p.logger, "SlotPlanner", "AvailableSlots", "member_id", memberID, "date", date.String()).
				ErrorContext(ctx, "slot lookup failed", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	memberID = strings.TrimSpace(memberID)
	vErr := &ValidationError{}
	if memberID == "" {
		vErr.add("member_id", "member id is required")
	}
	if date.IsZero() {
		vErr.add("date", "date is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	snapshot, err := p.snapshot(ctx, memberID, date)
	if err != nil {
		return
	}
	slots = scheduler.PlanSlots(snapshot)
	return
}

func (p *SlotPlanner) snapshot(ctx context.Context, memberID string, date scheduler.Date) (scheduler.DaySnapshot, error) {
	if cached, ok := p.cache.Get(memberID, date); ok {
		p.metrics.ObserveSlotCache(true)
		return cached, nil
	}
	p.metrics.ObserveSlotCache(false)

	generation := p.cache.Generation(memberID)
	snapshot := scheduler.DaySnapshot{MemberID: memberID, Date: date}

	rule, ok, err := p.rules.RuleFor(ctx, memberID, date.Weekday())
	if err != nil {
		return scheduler.DaySnapshot{}, err
	}
	if ok {
		snapshot.Rule = &rule
	}

	// The previous day is included so a late session running past midnight
	// still blocks the early slots.
	snapshot.Sessions, err = p.sessions.SessionsForMember(ctx, memberID, date.AddDays(-1), date)
	if err != nil {
		return scheduler.DaySnapshot{}, fmt.Errorf("load member sessions: %w", err)
	}

	p.cache.Store(snapshot, generation)
	return snapshot, nil
}
