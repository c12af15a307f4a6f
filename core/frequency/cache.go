// Package frequency maintains a bounded-staleness cache of per-line
// headways so the scheduler never pays a full recomputation on every
// tick.
package frequency

import (
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/host"
	"github.com/HGFantasy/TPF2-Timetables-sub001/core/model"
)

// DefaultTTL is the refresh interval, in simulated seconds, applied
// when the configuration does not override it.
const DefaultTTL = 5

type cacheEntry struct {
	seconds    int
	known      bool
	lastUpdate int64
}

// Cache is a read-through cache over a host.FrequencyComputer. Entries
// stay valid for the TTL unless the observed line set changes, which
// forces a full refresh and purges entries for removed lines
// immediately. Every live line therefore always has a value no staler
// than the TTL. The cache is confined to the scheduler's tick path and
// needs no locking of its own.
type Cache struct {
	computer host.FrequencyComputer
	ttl      int64
	entries  map[model.LineID]*cacheEntry
}

// NewCache creates a Cache with the given TTL in simulated seconds.
// Non-positive TTLs fall back to DefaultTTL.
func NewCache(computer host.FrequencyComputer, ttl int64) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		computer: computer,
		ttl:      ttl,
		entries:  make(map[model.LineID]*cacheEntry),
	}
}

// Refresh reconciles the cache with the host's current line set. When
// membership changed since the previous call every live line is
// recomputed and dead entries are purged at once; otherwise only
// TTL-expired entries are recomputed. It returns the number of
// recomputation calls made, which tests use to pin the cost bound, and
// whether membership changed.
func (c *Cache) Refresh(lines []model.LineID, now int64) (int, bool) {
	live := make(map[model.LineID]bool, len(lines))
	for _, id := range lines {
		live[id] = true
	}
	changed := len(live) != len(c.entries)
	if !changed {
		for id := range live {
			if _, ok := c.entries[id]; !ok {
				changed = true
				break
			}
		}
	}
	recomputed := 0
	if changed {
		for id := range c.entries {
			if !live[id] {
				delete(c.entries, id)
			}
		}
		for id := range live {
			c.recompute(id, now)
			recomputed++
		}
		return recomputed, true
	}
	for id, e := range c.entries {
		if now-e.lastUpdate >= c.ttl {
			c.recompute(id, now)
			recomputed++
		}
	}
	return recomputed, false
}

func (c *Cache) recompute(id model.LineID, now int64) {
	e, ok := c.entries[id]
	if !ok {
		e = &cacheEntry{}
		c.entries[id] = e
	}
	sec, known := c.computer.LineFrequency(id)
	e.seconds = sec
	e.known = known
	e.lastUpdate = now
}

// Get returns the cached headway for a line in seconds. ok is false
// for lines outside the observed set or whose frequency the host could
// not measure yet.
func (c *Cache) Get(line model.LineID) (int, bool) {
	e, ok := c.entries[line]
	if !ok || !e.known {
		return 0, false
	}
	return e.seconds, true
}

// Frequency returns the cached headway as a minute/second pair for the
// unbunch resolver.
func (c *Cache) Frequency(line model.LineID) (model.DebounceConfig, bool) {
	sec, ok := c.Get(line)
	if !ok {
		return model.DebounceConfig{}, false
	}
	return model.DebounceFromSeconds(sec), true
}

// Lines returns the currently observed line set.
func (c *Cache) Lines() []model.LineID {
	out := make([]model.LineID, 0, len(c.entries))
	for id := range c.entries {
		out = append(out, id)
	}
	return out
}

// ColdInit seeds the cache after a session load so the first tick does
// not observe a spurious full membership change.
func (c *Cache) ColdInit(lines []model.LineID, now int64) {
	c.entries = make(map[model.LineID]*cacheEntry, len(lines))
	for _, id := range lines {
		c.recompute(id, now)
	}
}
