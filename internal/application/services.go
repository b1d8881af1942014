package application

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/session-scheduler/internal/persistence"
)

// Dependencies collects everything NewServices needs. Only Store is required.
type Dependencies struct {
	Store        persistence.Store
	MeetingLinks MeetingLinkProvider
	Events       EventPublisher
	Metrics      Observer
	Logger       *slog.Logger
	IDGenerator  func() string
	Now          func() time.Time
	// SlotCacheTTL disables the slot snapshot cache when zero.
	SlotCacheTTL time.Duration
}

// Services groups the application components sharing one store, one slot
// cache and one lock manager.
type Services struct {
	Availability *AvailabilityRegistry
	Catalog      *SessionCatalog
	Slots        *SlotPlanner
	Scheduling   *SchedulingService
}

// NewServices wires the application layer.
func NewServices(deps Dependencies) (*Services, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("application: store is required")
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := defaultLogger(deps.Logger)
	cache := newSlotCache(deps.SlotCacheTTL, 0, deps.Now)

	registry := NewAvailabilityRegistry(deps.Store, deps.IDGenerator, logger)
	registry.cache = cache

	planner := NewSlotPlanner(registry, deps.Store, deps.Metrics, logger)
	planner.cache = cache

	scheduling := NewSchedulingService(deps.Store, registry, deps.MeetingLinks, deps.Events, deps.Metrics, deps.IDGenerator, deps.Now, logger)
	scheduling.cache = cache

	return &Services{
		Availability: registry,
		Catalog:      NewSessionCatalog(deps.Store, deps.Store),
		Slots:        planner,
		Scheduling:   scheduling,
	}, nil
}
