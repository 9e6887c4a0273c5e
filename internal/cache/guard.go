package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Collection names a cached data set tracked by the guard.
type Collection string

const (
	CollectionTasks             Collection = "tasks"
	CollectionGaps              Collection = "gaps"
	CollectionBusyBlocks        Collection = "busy_blocks"
	CollectionValidationResults Collection = "validation_results"
)

// Limit is the configured ceiling for one collection. Zero means unlimited
// along that axis.
type Limit struct {
	MaxCount int   `json:"max_count" yaml:"max_count"`
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`
}

// DefaultLimits returns the out-of-the-box ceilings per collection.
func DefaultLimits() map[Collection]Limit {
	return map[Collection]Limit{
		CollectionTasks:             {MaxCount: 2000},
		CollectionGaps:              {MaxCount: 5000},
		CollectionBusyBlocks:        {MaxCount: 1000},
		CollectionValidationResults: {MaxCount: 500},
	}
}

// Violation reports one collection's standing against its ceiling.
type Violation struct {
	Collection Collection `json:"collection"`
	Count      int        `json:"count"`
	Bytes      int64      `json:"bytes"`
	MaxCount   int        `json:"max_count,omitempty"`
	MaxBytes   int64      `json:"max_bytes,omitempty"`
	Percent    float64    `json:"percent"`
	Exceeded   bool       `json:"exceeded"`
	Hint       string     `json:"hint,omitempty"`
}

// RankedEntry is one cache entry's usage profile, supplied by the owning
// store when the guard is asked for an eviction recommendation.
type RankedEntry struct {
	Key         string
	AccessCount int
	LastAccess  time.Time
}

const (
	// DefaultCleanupThreshold is the fill fraction at which NeedsCleanup fires.
	DefaultCleanupThreshold = 0.80
	// DefaultEvictFraction is the share of entries recommended for eviction
	// per pass.
	DefaultEvictFraction = 0.10
)

// Guard tracks count/byte usage of every cached collection against configured
// ceilings. It never deletes anything itself; eviction is delegated to the
// owning store, the guard only signals need and recommends victims.
type Guard struct {
	mu               sync.RWMutex
	limits           map[Collection]Limit
	usage            map[Collection]usage
	cleanupThreshold float64
	evictFraction    float64
}

type usage struct {
	count int
	bytes int64
}

// NewGuard creates a guard with the given ceilings. Nil limits fall back to
// DefaultLimits. Threshold and fraction outside (0, 1] fall back to defaults.
func NewGuard(limits map[Collection]Limit, cleanupThreshold, evictFraction float64) *Guard {
	if limits == nil {
		limits = DefaultLimits()
	}
	if cleanupThreshold <= 0 || cleanupThreshold > 1 {
		cleanupThreshold = DefaultCleanupThreshold
	}
	if evictFraction <= 0 || evictFraction > 1 {
		evictFraction = DefaultEvictFraction
	}
	return &Guard{
		limits:           limits,
		usage:            make(map[Collection]usage),
		cleanupThreshold: cleanupThreshold,
		evictFraction:    evictFraction,
	}
}

// Observe records the current size of a collection. Owning stores call this
// after any bulk mutation.
func (g *Guard) Observe(c Collection, count int, bytes int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.usage[c] = usage{count: count, bytes: bytes}
}

// CheckViolations returns the standing of every tracked collection, exceeded
// or not, with a remediation hint on those over their ceiling.
func (g *Guard) CheckViolations() []Violation {
	g.mu.RLock()
	defer g.mu.RUnlock()

	collections := make([]Collection, 0, len(g.limits))
	for c := range g.limits {
		collections = append(collections, c)
	}
	sort.Slice(collections, func(i, j int) bool { return collections[i] < collections[j] })

	out := make([]Violation, 0, len(collections))
	for _, c := range collections {
		out = append(out, g.violationLocked(c))
	}
	return out
}

func (g *Guard) violationLocked(c Collection) Violation {
	limit := g.limits[c]
	u := g.usage[c]

	v := Violation{
		Collection: c,
		Count:      u.count,
		Bytes:      u.bytes,
		MaxCount:   limit.MaxCount,
		MaxBytes:   limit.MaxBytes,
	}

	v.Percent = fillPercent(u, limit)
	v.Exceeded = (limit.MaxCount > 0 && u.count > limit.MaxCount) ||
		(limit.MaxBytes > 0 && u.bytes > limit.MaxBytes)

	if v.Exceeded {
		v.Hint = fmt.Sprintf("evict least-recently-used %s entries or widen the %s ceiling", c, c)
	}
	return v
}

// NeedsCleanup reports whether any collection has crossed the cleanup
// threshold fraction of its ceiling.
func (g *Guard) NeedsCleanup() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for c := range g.limits {
		if fillPercent(g.usage[c], g.limits[c]) >= g.cleanupThreshold*100 {
			return true
		}
	}
	return false
}

// RecommendEviction ranks entries by (access count, recency) ascending and
// returns the keys of the lowest-ranked fraction. The caller owns the actual
// deletion.
func (g *Guard) RecommendEviction(entries []RankedEntry) []string {
	if len(entries) == 0 {
		return nil
	}

	g.mu.RLock()
	fraction := g.evictFraction
	g.mu.RUnlock()

	ranked := make([]RankedEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AccessCount != ranked[j].AccessCount {
			return ranked[i].AccessCount < ranked[j].AccessCount
		}
		return ranked[i].LastAccess.Before(ranked[j].LastAccess)
	})

	n := int(float64(len(ranked)) * fraction)
	if n < 1 {
		n = 1
	}

	keys := make([]string, 0, n)
	for _, e := range ranked[:n] {
		keys = append(keys, e.Key)
	}
	return keys
}

func fillPercent(u usage, limit Limit) float64 {
	var pct float64
	if limit.MaxCount > 0 {
		pct = float64(u.count) / float64(limit.MaxCount) * 100
	}
	if limit.MaxBytes > 0 {
		bytePct := float64(u.bytes) / float64(limit.MaxBytes) * 100
		if bytePct > pct {
			pct = bytePct
		}
	}
	return pct
}
