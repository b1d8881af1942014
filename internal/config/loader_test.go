package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var allKeys = []string{
	"SCHEDULER_HTTP_PORT",
	"SCHEDULER_STORE",
	"SCHEDULER_SQLITE_DSN",
	"SCHEDULER_REDIS_ADDR",
	"SCHEDULER_REDIS_PASSWORD",
	"SCHEDULER_REDIS_DB",
	"SCHEDULER_EVENTS_CHANNEL",
	"SCHEDULER_MEETING_BASE_URL",
	"SCHEDULER_LOG_LEVEL",
	"SCHEDULER_LOG_FORMAT",
	"SCHEDULER_API_KEY_HASH",
	"SCHEDULER_SLOT_CACHE_TTL",
	"SCHEDULER_SHUTDOWN_TIMEOUT",
}

// clearEnv blanks every key for the test; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := LoadFile("")
		if err != nil {
			t.Fatalf("LoadFile returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreSQLite {
			t.Fatalf("expected sqlite store by default, got %q", cfg.Store)
		}
		if cfg.SQLiteDSN != "file:scheduler.db?_pragma=foreign_keys(1)" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.Redis.Addr != "" {
			t.Fatalf("expected events to be disabled by default, got %q", cfg.Redis.Addr)
		}
		if cfg.EventsChannel != "scheduler.events" {
			t.Fatalf("unexpected events channel %q", cfg.EventsChannel)
		}
		if cfg.SlotCacheTTL != 15*time.Second {
			t.Fatalf("expected 15s slot cache ttl, got %s", cfg.SlotCacheTTL)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
			t.Fatalf("unexpected log config %+v", cfg.Log)
		}
	})

	t.Run("parses explicit values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "9090")
		t.Setenv("SCHEDULER_STORE", "Memory")
		t.Setenv("SCHEDULER_REDIS_ADDR", "localhost:6379")
		t.Setenv("SCHEDULER_REDIS_DB", "2")
		t.Setenv("SCHEDULER_LOG_LEVEL", "DEBUG")
		t.Setenv("SCHEDULER_LOG_FORMAT", "text")
		t.Setenv("SCHEDULER_SLOT_CACHE_TTL", "0s")
		t.Setenv("SCHEDULER_SHUTDOWN_TIMEOUT", "3s")

		cfg, err := LoadFile("")
		if err != nil {
			t.Fatalf("LoadFile returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.Store != StoreMemory {
			t.Fatalf("unexpected config %+v", cfg)
		}
		if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
			t.Fatalf("unexpected redis config %+v", cfg.Redis)
		}
		if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
			t.Fatalf("unexpected log config %+v", cfg.Log)
		}
		if cfg.SlotCacheTTL != 0 || cfg.ShutdownTimeout != 3*time.Second {
			t.Fatalf("unexpected durations %s %s", cfg.SlotCacheTTL, cfg.ShutdownTimeout)
		}
	})

	t.Run("aggregates invalid values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SCHEDULER_HTTP_PORT", "abc")
		t.Setenv("SCHEDULER_STORE", "postgres")
		t.Setenv("SCHEDULER_SLOT_CACHE_TTL", "-1s")

		_, err := LoadFile("")
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "環境変数の値が不正です: SCHEDULER_HTTP_PORT, SCHEDULER_STORE, SCHEDULER_SLOT_CACHE_TTL"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reads dotenv file below the environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), ".env")
		content := "SCHEDULER_HTTP_PORT=7070\nSCHEDULER_EVENTS_CHANNEL=bookings\nOTHER_KEY=ignored\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write dotenv file: %v", err)
		}
		t.Setenv("SCHEDULER_EVENTS_CHANNEL", "from-env")

		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile returned error: %v", err)
		}
		if cfg.HTTPPort != 7070 {
			t.Fatalf("expected port from dotenv file, got %d", cfg.HTTPPort)
		}
		if cfg.EventsChannel != "from-env" {
			t.Fatalf("expected environment to override dotenv, got %q", cfg.EventsChannel)
		}
	})

	t.Run("ignores a missing dotenv file", func(t *testing.T) {
		clearEnv(t)
		if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatalf("expected missing file to be ignored, got %v", err)
		}
	})
}
