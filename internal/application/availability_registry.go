package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/scheduler"
)

// AvailabilityRegistry answers which weekly rule applies to a member and
// accepts rule changes from administrators.
type AvailabilityRegistry struct {
	store       persistence.AvailabilityStore
	cache       *slotCache
	idGenerator func() string
	logger      *slog.Logger
}

// NewAvailabilityRegistry wires the registry.
func NewAvailabilityRegistry(store persistence.AvailabilityStore, idGenerator func() string, logger *slog.Logger) *AvailabilityRegistry {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &AvailabilityRegistry{
		store:       store,
		idGenerator: idGenerator,
		logger:      defaultLogger(logger),
	}
}

func (r *AvailabilityRegistry) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, r.logger, "AvailabilityRegistry", operation, attrs...)
}

// RulesFor lists the member's rules ordered by day then start.
func (r *AvailabilityRegistry) RulesFor(ctx context.Context, memberID string) ([]scheduler.Availability, error) {
	if r == nil || r.store == nil {
		return nil, fmt.Errorf("availability store not configured")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, fieldError("member_id", "member id is required")
	}
	rules, err := r.store.ListAvailability(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return rules, nil
}

// RuleFor returns the member's rule for the weekday. A missing rule is
// reported through the boolean, not as an error.
func (r *AvailabilityRegistry) RuleFor(ctx context.Context, memberID string, day time.Weekday) (scheduler.Availability, bool, error) {
	if r == nil || r.store == nil {
		return scheduler.Availability{}, false, fmt.Errorf("availability store not configured")
	}
	rule, err := r.store.GetAvailability(ctx, memberID, day)
	if errors.Is(err, persistence.ErrNotFound) {
		return scheduler.Availability{}, false, nil
	}
	if err != nil {
		return scheduler.Availability{}, false, fmt.Errorf("get availability: %w", err)
	}
	return rule, true, nil
}

// SetRule validates and stores a rule, replacing any rule the member already
// has for the same weekday.
func (r *AvailabilityRegistry) SetRule(ctx context.Context, rule scheduler.Availability) (stored scheduler.Availability, err error) {
	if r == nil || r.store == nil {
		err = fmt.Errorf("availability store not configured")
		return
	}

	rule.Member.ID = strings.TrimSpace(rule.Member.ID)
	rule.Member.Name = strings.TrimSpace(rule.Member.Name)

	logger := r.loggerWith(ctx, "SetRule",
		"member_id", rule.Member.ID,
		"day_of_week", int(rule.DayOfWeek),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "availability update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("rule_id", stored.ID).InfoContext(ctx, "availability updated")
	}()

	if vErr := validateRule(rule); vErr.HasErrors() {
		err = vErr
		return
	}
	if rule.ID == "" {
		rule.ID = r.idGenerator()
	}

	stored, err = r.store.UpsertAvailability(ctx, rule)
	if err != nil {
		err = fmt.Errorf("upsert availability: %w", err)
		return
	}
	r.cache.InvalidateMember(rule.Member.ID)
	return
}

func validateRule(rule scheduler.Availability) *ValidationError {
	vErr := &ValidationError{}
	if rule.Member.ID == "" {
		vErr.add("member_id", "member id is required")
	}
	if rule.DayOfWeek < time.Sunday || rule.DayOfWeek > time.Saturday {
		vErr.add("day_of_week", "day of week must be between 0 and 6")
	}
	if !rule.Start.Valid() {
		vErr.add("start_time", "start time is invalid")
	}
	if !rule.End.Valid() {
		vErr.add("end_time", "end time is invalid")
	}
	if rule.Start.Valid() && rule.End.Valid() && rule.Start >= rule.End {
		vErr.add("end_time", "end time must be after start time")
	}
	if rule.MaxSessionsPerDay < 0 {
		vErr.add("max_sessions_per_day", "max sessions per day must not be negative")
	}
	return vErr
}
