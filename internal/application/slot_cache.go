package application

import (
	"sync"
	"time"

	"github.com/example/session-scheduler/internal/scheduler"
)

// slotCache stores recently built day snapshots so repeated slot queries for
// the same member and date skip the store while nothing was booked.
type slotCache struct {
	mu          sync.RWMutex
	now         func() time.Time
	ttl         time.Duration
	maxEntries  int
	entries     map[slotCacheKey]slotCacheEntry
	// generations counts invalidations per member; a snapshot built before
	// the latest invalidation is never stored.
	generations map[string]uint64
}

type slotCacheKey struct {
	memberID string
	date     scheduler.Date
}

type slotCacheEntry struct {
	snapshot  scheduler.DaySnapshot
	expiresAt time.Time
}

func newSlotCache(ttl time.Duration, maxEntries int, now func() time.Time) *slotCache {
	if ttl <= 0 {
		return nil
	}
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if now == nil {
		now = time.Now
	}
	return &slotCache{
		now:         now,
		ttl:         ttl,
		maxEntries:  maxEntries,
		entries:     make(map[slotCacheKey]slotCacheEntry),
		generations: make(map[string]uint64),
	}
}

func (c *slotCache) Get(memberID string, date scheduler.Date) (scheduler.DaySnapshot, bool) {
	if c == nil {
		return scheduler.DaySnapshot{}, false
	}
	key := slotCacheKey{memberID: memberID, date: date}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return scheduler.DaySnapshot{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return scheduler.DaySnapshot{}, false
	}
	return cloneSnapshot(entry.snapshot), true
}

// Generation returns the member's invalidation counter. Read it before
// loading the data passed to Store.
func (c *slotCache) Generation(memberID string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[memberID]
}

// Store caches snapshot unless the member was invalidated after generation
// was read.
func (c *slotCache) Store(snapshot scheduler.DaySnapshot, generation uint64) {
	if c == nil {
		return
	}
	cloned := cloneSnapshot(snapshot)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[snapshot.MemberID] != generation {
		return
	}

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[slotCacheKey{memberID: snapshot.MemberID, date: snapshot.Date}] = slotCacheEntry{snapshot: cloned, expiresAt: expiry}
}

// InvalidateMember drops every snapshot of the given members.
func (c *slotCache) InvalidateMember(memberIDs ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range memberIDs {
		c.generations[id]++
	}
	for key := range c.entries {
		for _, id := range memberIDs {
			if key.memberID == id {
				delete(c.entries, key)
				break
			}
		}
	}
}

func (c *slotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *slotCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSnapshot(snapshot scheduler.DaySnapshot) scheduler.DaySnapshot {
	out := snapshot
	if snapshot.Rule != nil {
		rule := *snapshot.Rule
		out.Rule = &rule
	}
	if snapshot.Sessions != nil {
		out.Sessions = make([]scheduler.ScheduledSession, len(snapshot.Sessions))
		for i, session := range snapshot.Sessions {
			out.Sessions[i] = session.Clone()
		}
	}
	return out
}
