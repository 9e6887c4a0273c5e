package engine

import (
	"context"
	"time"

	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// Default provider fetch timeouts. Today's fetch is on the interactive path
// and gets a tighter bound than past/future dates.
const (
	DefaultTodayFetchTimeout = 4 * time.Second
	DefaultOtherFetchTimeout = 10 * time.Second
)

// DecisionSink receives dedupe decision records for auditing. Implementations
// must not block.
type DecisionSink interface {
	RecordDecisions(ctx context.Context, decisions []calendar.DedupeDecision)
}

// BusySource produces the normalized, deduplicated busy blocks for a date,
// caching results per date with a TTL and degrading to stale cached data (or
// an empty set) when every provider fails. Gap computation never stalls
// indefinitely on an unreachable calendar backend.
type BusySource struct {
	providers []calendar.Provider
	cache     *cache.BusyBlocks
	decisions DecisionSink

	todayTimeout time.Duration
	otherTimeout time.Duration

	now func() time.Time
}

// NewBusySource creates a busy-block source over the given providers.
// decisions may be nil when dedupe auditing is not wanted.
func NewBusySource(providers []calendar.Provider, blockCache *cache.BusyBlocks, decisions DecisionSink) *BusySource {
	return &BusySource{
		providers:    providers,
		cache:        blockCache,
		decisions:    decisions,
		todayTimeout: DefaultTodayFetchTimeout,
		otherTimeout: DefaultOtherFetchTimeout,
		now:          time.Now,
	}
}

// SetTimeouts overrides the per-fetch timeout bounds.
func (s *BusySource) SetTimeouts(today, other time.Duration) {
	if today > 0 {
		s.todayTimeout = today
	}
	if other > 0 {
		s.otherTimeout = other
	}
}

// BlocksFor returns the busy blocks for a date. The degraded return is true
// when the result came from stale cache or an empty fallback because the
// providers were unreachable.
func (s *BusySource) BlocksFor(ctx context.Context, date timeutil.Date, p prefs.WorkPreferences) (blocks []calendar.BusyBlock, degraded bool) {
	if cached, ok := s.cache.Get(date); ok {
		return cached, false
	}

	events, err := s.fetch(ctx, date)
	if err != nil {
		logger := logging.ForDate("busysource", date.String())
		logger.Warn().
			Err(err).
			Msg("provider fetch failed, degrading to cached busy blocks")

		if stale, ok := s.cache.GetStale(date); ok {
			return stale, true
		}
		return nil, true
	}

	normalized, decisions := calendar.Normalize(events, date, p, s.now())
	if len(decisions) > 0 && s.decisions != nil {
		s.decisions.RecordDecisions(ctx, decisions)
	}

	s.cache.Set(date, normalized)
	return normalized, false
}

// Invalidate drops the cached entry for a date, forcing the next read to hit
// the providers.
func (s *BusySource) Invalidate(date timeutil.Date) {
	s.cache.Invalidate(date)
}

// InvalidateAll drops every cached entry. Cached blocks embed the
// normalization policy they were built under, so a policy change must empty
// the cache rather than wait out the TTL.
func (s *BusySource) InvalidateAll() {
	s.cache.Clear()
}

// fetch gathers raw events from every provider under a bounded timeout. A
// provider error fails the whole fetch only if no provider succeeded;
// otherwise partial results are used.
func (s *BusySource) fetch(ctx context.Context, date timeutil.Date) ([]calendar.RawEvent, error) {
	timeout := s.otherTimeout
	if date == timeutil.DateOf(s.now()) {
		timeout = s.todayTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		events  []calendar.RawEvent
		lastErr error
		okCount int
	)

	for _, provider := range s.providers {
		got, err := provider.ListEvents(ctx, date, date, nil)
		if err != nil {
			lastErr = err
			continue
		}
		okCount++
		events = append(events, got...)
	}

	if okCount == 0 && lastErr != nil {
		return nil, lastErr
	}
	return events, nil
}
