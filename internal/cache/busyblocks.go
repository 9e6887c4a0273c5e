// Package cache holds the engine's in-memory caches: TTL-keyed busy blocks
// per date, and the capacity guard that watches every cached collection.
package cache

import (
	"time"

	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/internal/core/window"
	"github.com/hay-kot/daygap/pkg/kv"
)

// DefaultBusyBlockTTL is how long cached busy blocks stay fresh before the
// next read goes back to the calendar provider.
const DefaultBusyBlockTTL = 60 * time.Minute

// BusyBlocks is a TTL-keyed cache of normalized busy blocks per date.
type BusyBlocks struct {
	store *kv.Store[timeutil.Date, []calendar.BusyBlock]
}

// NewBusyBlocks creates a busy-block cache. A non-positive ttl falls back to
// DefaultBusyBlockTTL.
func NewBusyBlocks(ttl time.Duration) *BusyBlocks {
	if ttl <= 0 {
		ttl = DefaultBusyBlockTTL
	}
	return &BusyBlocks{store: kv.NewTTL[timeutil.Date, []calendar.BusyBlock](ttl)}
}

// Get returns the cached blocks for a date. A miss means the entry is absent
// or older than the TTL.
func (c *BusyBlocks) Get(date timeutil.Date) ([]calendar.BusyBlock, bool) {
	return c.store.Get(date)
}

// Set stores the normalized blocks for a date, resetting its TTL.
func (c *BusyBlocks) Set(date timeutil.Date, blocks []calendar.BusyBlock) {
	c.store.Set(date, blocks)
}

// GetStale returns the cached blocks for a date even when the entry has
// outlived its TTL. Used as the degraded path when the provider is
// unreachable.
func (c *BusyBlocks) GetStale(date timeutil.Date) ([]calendar.BusyBlock, bool) {
	return c.store.GetStale(date)
}

// Invalidate removes the cached entry for a date.
func (c *BusyBlocks) Invalidate(date timeutil.Date) {
	c.store.Delete(date)
}

// Cleanup removes every cached date outside the rolling window, bounding
// growth as the window slides forward. Returns the number of entries removed.
func (c *BusyBlocks) Cleanup(win window.Rolling) int {
	removed := c.store.DeleteFunc(func(d timeutil.Date) bool {
		return !win.Contains(d)
	})
	if removed > 0 {
		logger := logging.Component("cache")
		logger.Debug().
			Int("removed", removed).
			Str("window", win.String()).
			Msg("swept busy-block cache outside window")
	}
	return removed
}

// Len returns the number of live cached dates.
func (c *BusyBlocks) Len() int {
	return c.store.Len()
}

// BlockCount returns the total number of busy blocks across live cached
// dates, the figure the limit guard tracks. Reading it does not touch access
// stats.
func (c *BusyBlocks) BlockCount() int {
	n := 0
	for _, k := range c.store.Keys() {
		if blocks, ok := c.store.GetStale(k); ok {
			n += len(blocks)
		}
	}
	return n
}

// Clear drops every cached entry. Used when the normalization policy changes
// and cached blocks no longer reflect it.
func (c *BusyBlocks) Clear() {
	c.store.Clear()
}

// Entries returns usage stats for every live cached date, for the limit
// guard's eviction ranking.
func (c *BusyBlocks) Entries() []RankedEntry {
	keys := c.store.Keys()
	out := make([]RankedEntry, 0, len(keys))
	for _, k := range keys {
		stats, ok := c.store.StatsFor(k)
		if !ok {
			continue
		}
		out = append(out, RankedEntry{
			Key:         k.String(),
			AccessCount: stats.AccessCount,
			LastAccess:  stats.LastAccess,
		})
	}
	return out
}

// Evict removes the given date keys, typically those recommended by the
// limit guard.
func (c *BusyBlocks) Evict(keys []string) {
	for _, k := range keys {
		d, err := timeutil.ParseDate(k)
		if err != nil {
			continue
		}
		c.store.Delete(d)
	}
}
