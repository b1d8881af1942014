package application

import (
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/scheduler"
)

func TestSlotCacheStoresAndReturnsCopies(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newSlotCache(time.Minute, 4, func() time.Time { return current })
	date := scheduler.MustParseDate("2024-06-03")

	original := scheduler.DaySnapshot{
		MemberID: "m1",
		Date:     date,
		Rule:     &scheduler.Availability{ID: "rule-1"},
		Sessions: []scheduler.ScheduledSession{{ID: "session-1"}},
	}
	cache.Store(original, cache.Generation("m1"))

	// Mutating the original snapshot should not affect the cached copy.
	original.Sessions[0].ID = "mutated"
	original.Rule.ID = "mutated"

	cached, ok := cache.Get("m1", date)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached.Sessions[0].ID != "session-1" || cached.Rule.ID != "rule-1" {
		t.Fatalf("expected cached snapshot to remain unchanged, got %+v", cached)
	}

	cached.Sessions[0].ID = "changed"
	again, ok := cache.Get("m1", date)
	if !ok {
		t.Fatalf("expected cache hit on second read")
	}
	if again.Sessions[0].ID != "session-1" {
		t.Fatalf("expected cache to return independent copy, got %s", again.Sessions[0].ID)
	}
}

func TestSlotCacheExpiresEntries(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newSlotCache(time.Second, 4, func() time.Time { return current })
	date := scheduler.MustParseDate("2024-06-03")

	cache.Store(scheduler.DaySnapshot{MemberID: "m1", Date: date}, 0)
	if _, ok := cache.Get("m1", date); !ok {
		t.Fatalf("expected cache hit before expiry")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get("m1", date); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestSlotCacheInvalidateMember(t *testing.T) {
	cache := newSlotCache(time.Minute, 4, time.Now)
	date := scheduler.MustParseDate("2024-06-03")
	cache.Store(scheduler.DaySnapshot{MemberID: "m1", Date: date}, 0)
	cache.Store(scheduler.DaySnapshot{MemberID: "m2", Date: date}, 0)

	cache.InvalidateMember("m1")
	if _, ok := cache.Get("m1", date); ok {
		t.Fatalf("expected m1 snapshot to be dropped")
	}
	if _, ok := cache.Get("m2", date); !ok {
		t.Fatalf("expected m2 snapshot to survive")
	}
}

func TestSlotCacheEvictsWhenFull(t *testing.T) {
	cache := newSlotCache(time.Minute, 2, time.Now)
	date := scheduler.MustParseDate("2024-06-03")
	for _, member := range []string{"a", "b", "c"} {
		cache.Store(scheduler.DaySnapshot{MemberID: member, Date: date}, 0)
	}
	if len(cache.entries) != 2 {
		t.Fatalf("expected cache to hold 2 entries, got %d", len(cache.entries))
	}
}

func TestSlotCacheDisabled(t *testing.T) {
	var cache *slotCache = newSlotCache(0, 0, nil)
	cache.Store(scheduler.DaySnapshot{MemberID: "m1"}, 0)
	if _, ok := cache.Get("m1", scheduler.Date{}); ok {
		t.Fatalf("expected disabled cache to miss")
	}
	cache.InvalidateMember("m1")
}

func TestSlotCacheDropsSnapshotBuiltBeforeInvalidation(t *testing.T) {
	cache := newSlotCache(time.Minute, 4, time.Now)
	date := scheduler.MustParseDate("2024-06-03")

	generation := cache.Generation("m1")
	// A booking commits while the snapshot is being loaded.
	cache.InvalidateMember("m1")
	cache.Store(scheduler.DaySnapshot{MemberID: "m1", Date: date}, generation)
	if _, ok := cache.Get("m1", date); ok {
		t.Fatalf("expected stale snapshot not to be cached")
	}

	cache.Store(scheduler.DaySnapshot{MemberID: "m1", Date: date}, cache.Generation("m1"))
	if _, ok := cache.Get("m1", date); !ok {
		t.Fatalf("expected snapshot loaded after invalidation to be cached")
	}
}
