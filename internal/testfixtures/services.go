package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/memory"
)

// ServiceFactory builds application services with deterministic ids and a
// controllable clock.
type ServiceFactory struct {
	Clock        *Clock
	IDGenerator  *IDGenerator
	Events       *RecordingPublisher
	Metrics      *RecordingObserver
	MeetingLinks application.MeetingLinkProvider
	SlotCacheTTL time.Duration
	Logger       *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a factory with quiet logging and a local
// meeting link provider.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:        NewClock(time.Time{}),
		IDGenerator:  NewIDGenerator("id"),
		Events:       &RecordingPublisher{},
		Metrics:      &RecordingObserver{},
		MeetingLinks: application.LocalMeetingLinks{BaseURL: "https://meet.example.com"},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(factory)
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Clock = clock }
}

func WithMeetingLinks(links application.MeetingLinkProvider) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.MeetingLinks = links }
}

func WithSlotCacheTTL(ttl time.Duration) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.SlotCacheTTL = ttl }
}

// NewServices wires application services over store.
func (f *ServiceFactory) NewServices(tb testing.TB, store persistence.Store) *application.Services {
	tb.Helper()
	services, err := application.NewServices(application.Dependencies{
		Store:        store,
		MeetingLinks: f.MeetingLinks,
		Events:       f.Events,
		Metrics:      f.Metrics,
		Logger:       f.Logger,
		IDGenerator:  f.IDGenerator.NextFunc(),
		Now:          f.Clock.NowFunc(),
		SlotCacheTTL: f.SlotCacheTTL,
	})
	if err != nil {
		tb.Fatalf("failed to build services: %v", err)
	}
	return services
}

// StoreFactory opens an empty store for a test.
type StoreFactory func(tb testing.TB) persistence.Store

// Stores lists every store implementation so behaviour tests can run against
// each of them.
func Stores() map[string]StoreFactory {
	return map[string]StoreFactory{
		"memory": func(tb testing.TB) persistence.Store { return memory.New() },
		"sqlite": func(tb testing.TB) persistence.Store { return NewSQLiteStore(tb) },
	}
}

// RecordingPublisher keeps every published event. Setting Err makes Publish
// fail after recording.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []application.Event
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, event application.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

// Events returns a copy of the recorded events.
func (p *RecordingPublisher) Events() []application.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]application.Event(nil), p.events...)
}

// Types returns the recorded event types in publish order.
func (p *RecordingPublisher) Types() []application.EventType {
	var types []application.EventType
	for _, event := range p.Events() {
		types = append(types, event.Type)
	}
	return types
}

// RecordingObserver counts operation outcomes and slot cache lookups.
type RecordingObserver struct {
	mu          sync.Mutex
	outcomes    map[string]int
	CacheHits   int
	CacheMisses int
}

func (o *RecordingObserver) ObserveOperation(operation, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[operation+"/"+outcome]++
}

func (o *RecordingObserver) ObserveSlotCache(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.CacheHits++
	} else {
		o.CacheMisses++
	}
}

// Count returns how often operation ended with outcome.
func (o *RecordingObserver) Count(operation, outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[operation+"/"+outcome]
}

// FailingMeetingLinks always fails, for checking that bookings survive it.
type FailingMeetingLinks struct{ Err error }

func (f FailingMeetingLinks) GenerateMeetingLink(context.Context) (string, error) {
	return "", f.Err
}
