package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/example/session-scheduler/internal/persistence/sqlite"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
)

// NewSQLiteStore opens a migrated in-memory SQLite store that is closed when
// the test ends.
func NewSQLiteStore(tb testing.TB) *sqlite.Store {
	tb.Helper()

	ctx := context.Background()
	store, err := sqlite.Open(ctx, migration.InMemoryTestSQLiteConfig())
	if err != nil {
		tb.Fatalf("failed to open sqlite store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		tb.Fatalf("failed to migrate sqlite store: %v", err)
	}
	return store
}
