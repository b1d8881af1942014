package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/config"
	"github.com/example/session-scheduler/internal/events"
	httptransport "github.com/example/session-scheduler/internal/http"
	"github.com/example/session-scheduler/internal/metrics"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/memory"
	"github.com/example/session-scheduler/internal/persistence/sqlite"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/session-scheduler/internal/scheduler"
)

type ServeCmd struct {
	Port int `help:"Listen port; overrides SCHEDULER_HTTP_PORT when set."`
}

func (c *ServeCmd) Run(app *appContext) error {
	ctx, cfg, logger := app.Context, app.Config, app.Logger

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	collector := metrics.New()
	services, err := newServices(cfg, store, publisher, collector, logger)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	requests, sessions, members := httptransport.HandlersFor(services, logger)
	router := httptransport.NewRouter(httptransport.RouterConfig{
		Requests:       requests,
		Sessions:       sessions,
		Members:        members,
		Metrics:        collector,
		MetricsHandler: collector.Handler(),
		APIKeyHash:     cfg.APIKeyHash,
		Logger:         logger,
	})
	if cfg.APIKeyHash == "" {
		logger.Warn("SCHEDULER_API_KEY_HASH is empty; the admin API is unauthenticated")
	}

	port := cfg.HTTPPort
	if c.Port > 0 {
		port = c.Port
	}
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("scheduler API listening", "addr", server.Addr, "store", cfg.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down scheduler API")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})
	return g.Wait()
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(app *appContext) error {
	if app.Config.Store != config.StoreSQLite {
		return fmt.Errorf("migrate requires the sqlite store, got %q", app.Config.Store)
	}
	_, closeStore, err := openStore(app.Context, app.Config, app.Logger)
	if err != nil {
		return err
	}
	closeStore()
	fmt.Fprintln(app.Out, "migrations applied")
	return nil
}

type SlotsCmd struct {
	Member string `help:"Member id." required:""`
	Date   string `help:"Date as YYYY-MM-DD." required:""`
}

func (c *SlotsCmd) Run(app *appContext) error {
	date, err := scheduler.ParseDate(c.Date)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(app.Context, app.Config, app.Logger)
	if err != nil {
		return err
	}
	defer closeStore()

	services, err := newServices(app.Config, store, application.NopPublisher{}, nil, app.Logger)
	if err != nil {
		return err
	}

	slots, err := services.Slots.AvailableSlots(app.Context, c.Member, date)
	if err != nil {
		return err
	}
	for slot := range slots {
		fmt.Fprintln(app.Out, slot)
	}
	return nil
}

type HashKeyCmd struct {
	Key string `arg:"" help:"API key to hash."`
}

func (c *HashKeyCmd) Run(app *appContext) error {
	encoded, err := application.HashAPIKey(c.Key, application.DefaultArgon2idParams)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.Out, encoded)
	return nil
}

// openStore opens and migrates the configured store. The returned func
// releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), func() {}, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		if err := store.Migrate(ctx, logger); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close storage", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// openPublisher connects to Redis when an address is configured; otherwise
// events are discarded.
func openPublisher(ctx context.Context, cfg config.Config, logger *slog.Logger) (application.EventPublisher, func(), error) {
	if cfg.Redis.Addr == "" {
		logger.Info("redis not configured; lifecycle events are disabled")
		return application.NopPublisher{}, func() {}, nil
	}

	client, err := events.NewRedisClient(ctx, events.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing lifecycle events", "redis_addr", cfg.Redis.Addr, "channel", cfg.EventsChannel)
	return events.NewRedisPublisher(client, cfg.EventsChannel), func() {
		if err := client.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}, nil
}

func newServices(cfg config.Config, store persistence.Store, publisher application.EventPublisher, observer application.Observer, logger *slog.Logger) (*application.Services, error) {
	return application.NewServices(application.Dependencies{
		Store:        store,
		MeetingLinks: application.LocalMeetingLinks{BaseURL: cfg.MeetingBaseURL},
		Events:       publisher,
		Metrics:      observer,
		Logger:       logger,
		SlotCacheTTL: cfg.SlotCacheTTL,
	})
}
