package provider

import (
	"sync"
	"time"
)

// SnapshotTTL is the staleness threshold for remote-backed snapshots.
const SnapshotTTL = 5 * time.Minute

// StaleAt reports whether a snapshot written at timestamp (unix millis) is
// stale at now. A zero timestamp is always stale; the TTL boundary itself is
// stale (>= comparator).
func StaleAt(timestampMillis int64, now time.Time, ttl time.Duration) bool {
	if timestampMillis == 0 {
		return true
	}
	return now.Sub(time.UnixMilli(timestampMillis)) >= ttl
}

// Cache tracks the snapshot timestamp of one provider and answers staleness
// queries. Backends embed it and touch it after each successful sync.
type Cache struct {
	mu        sync.Mutex
	timestamp int64 // unix millis, 0 means never synced
	ttl       time.Duration
	now       func() time.Time
}

// NewCache creates a cache with the given TTL using the wall clock.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// SetClock replaces the clock. Tests use this to pin "now".
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Stale implements the shared staleness policy.
func (c *Cache) Stale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return StaleAt(c.timestamp, c.now(), c.ttl)
}

// Touch records a fresh snapshot written at t.
func (c *Cache) Touch(t time.Time) {
	c.mu.Lock()
	c.timestamp = t.UnixMilli()
	c.mu.Unlock()
}

// Restore adopts a timestamp loaded from a persisted snapshot.
func (c *Cache) Restore(timestampMillis int64) {
	c.mu.Lock()
	c.timestamp = timestampMillis
	c.mu.Unlock()
}

// Invalidate zeroes the timestamp so the next Stale call reports true.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.timestamp = 0
	c.mu.Unlock()
}

// Timestamp returns the recorded snapshot time in unix millis.
func (c *Cache) Timestamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timestamp
}
