package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/internal/core/eventbus"
	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/internal/core/window"
)

// TaskSource supplies the tasks due on a date. The engine only reads tasks.
type TaskSource interface {
	TasksForDate(ctx context.Context, date timeutil.Date) ([]task.Task, error)
}

// PrefsSource supplies the current preference snapshot.
type PrefsSource interface {
	Preferences(ctx context.Context) (prefs.WorkPreferences, error)
}

// Service orchestrates gap computation: it pulls tasks and busy blocks,
// runs the reconcile pipeline, persists the result, and emits gaps.updated
// events. All public methods are safe for concurrent use.
type Service struct {
	gaps  gap.Store
	tasks TaskSource
	prefs PrefsSource
	busy  *BusySource
	bus   *eventbus.EventBus
	guard *cache.Guard

	locks *dateLocks
	log   zerolog.Logger

	// windowFn returns the current rolling window; swappable for tests.
	windowFn func() window.Rolling
	now      func() time.Time
}

// NewService wires the gap engine. bus and guard may be nil when events or
// capacity tracking are not wanted.
func NewService(gaps gap.Store, tasks TaskSource, prefsSource PrefsSource, busy *BusySource, bus *eventbus.EventBus, guard *cache.Guard) *Service {
	return &Service{
		gaps:     gaps,
		tasks:    tasks,
		prefs:    prefsSource,
		busy:     busy,
		bus:      bus,
		guard:    guard,
		locks:    newDateLocks(),
		log:      logging.Component("engine"),
		windowFn: func() window.Rolling { return window.Around(timeutil.DateOf(time.Now())) },
		now:      time.Now,
	}
}

// SetWindowFunc overrides the rolling-window source. Intended for tests.
func (s *Service) SetWindowFunc(fn func() window.Rolling) {
	s.windowFn = fn
}

// Window returns the current rolling window.
func (s *Service) Window() window.Rolling {
	return s.windowFn()
}

// GapsForDate returns the stored gaps for a date, computing them on demand
// when none exist and the date is a working day inside the window.
func (s *Service) GapsForDate(ctx context.Context, date timeutil.Date) ([]gap.Gap, error) {
	existing, err := s.gaps.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list gaps: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}
	return s.RecomputeDate(ctx, date)
}

// RecomputeDate recomputes and replaces the gaps for one date. Recomputation
// is serialized per date; distinct dates may run concurrently.
func (s *Service) RecomputeDate(ctx context.Context, date timeutil.Date) ([]gap.Gap, error) {
	s.locks.lock(date)
	defer s.locks.unlock(date)

	ctx = logging.WithDate(ctx, date.String())
	win := s.windowFn()

	p, err := s.prefs.Preferences(ctx)
	if err != nil {
		// No usable preferences yields an empty result, never a failure.
		s.log.Warn().Ctx(ctx).Err(err).Msg("no usable preferences, returning empty gaps")
		return nil, nil
	}

	tasks, err := s.tasks.TasksForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	blocks, degraded := s.busy.BlocksFor(ctx, date, p)
	if degraded {
		s.log.Debug().Ctx(ctx).Msg("busy blocks degraded to cached or empty data")
	}

	result := Optimize(Reconcile(date, tasks, blocks, p, win, s.now()), p)

	if err := s.gaps.ReplaceDate(ctx, date, result); err != nil {
		return nil, fmt.Errorf("replace gaps: %w", err)
	}

	s.observeGapUsage(ctx)

	if s.bus != nil {
		s.bus.PublishGapsUpdated(eventbus.GapsUpdatedPayload{Date: date, Gaps: result})
	}

	return result, nil
}

// RecomputeWindow recomputes every date in the current rolling window.
// Dates run concurrently; per-date serialization still holds.
func (s *Service) RecomputeWindow(ctx context.Context) error {
	win := s.windowFn()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for _, date := range win.Dates() {
		wg.Add(1)
		go func(d timeutil.Date) {
			defer wg.Done()
			if _, err := s.RecomputeDate(ctx, d); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("recompute %s: %w", d, err)
				}
				mu.Unlock()
			}
		}(date)
	}

	wg.Wait()
	return firstErr
}

// ApplyPreferenceChange classifies a preference edit, applies the cheap
// in-place adjustment to every stored date, and reports the classification.
// The caller (normally the Scheduler) decides how urgently to run the full
// recomputation the classifier asks for.
func (s *Service) ApplyPreferenceChange(ctx context.Context, oldPrefs, newPrefs prefs.WorkPreferences) (prefs.ChangeResult, error) {
	win := s.windowFn()
	result := prefs.Classify(oldPrefs, newPrefs, win)

	if s.bus != nil {
		s.bus.PublishPreferenceChanged(eventbus.PreferenceChangedPayload{Result: result})
	}

	if !result.RequiresRecalculation {
		return result, nil
	}

	// Cached busy blocks were normalized under the old policy; drop them so
	// the recompute refetches instead of serving them until the TTL lapses.
	if s.busy != nil {
		s.busy.InvalidateAll()
	}

	// Cheap synchronous pass so stale gaps never show a window the user no
	// longer works; the full recompute follows asynchronously.
	for _, date := range win.Dates() {
		s.locks.lock(date)
		existing, err := s.gaps.ListByDate(ctx, date)
		if err == nil && len(existing) > 0 {
			adjusted := HandlePreferenceChange(date, existing, oldPrefs, newPrefs, win, s.now())
			err = s.gaps.ReplaceDate(ctx, date, adjusted)
		}
		s.locks.unlock(date)
		if err != nil {
			return result, fmt.Errorf("adjust gaps for %s: %w", date, err)
		}
	}

	return result, nil
}

// CleanupWindow deletes stored gaps and cached busy blocks for dates that
// have left the rolling window. Returns the number of gap dates removed.
func (s *Service) CleanupWindow(ctx context.Context) (int, error) {
	win := s.windowFn()

	dates, err := s.gaps.Dates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list gap dates: %w", err)
	}

	removed := 0
	for _, date := range dates {
		if win.Contains(date) {
			continue
		}
		s.locks.lock(date)
		err := s.gaps.DeleteDate(ctx, date)
		s.locks.unlock(date)
		if err != nil {
			return removed, fmt.Errorf("delete gaps for %s: %w", date, err)
		}
		removed++
	}

	s.observeGapUsage(ctx)
	return removed, nil
}

// CheckPressure re-reads gap-store usage and emits a cache.pressure event if
// any collection is near its limit.
func (s *Service) CheckPressure() {
	s.observeGapUsage(context.Background())
}

// observeGapUsage reports gap-store size to the limit guard and emits a
// cache.pressure event when the guard signals need.
func (s *Service) observeGapUsage(ctx context.Context) {
	if s.guard == nil {
		return
	}

	all, err := s.gaps.ListAll(ctx)
	if err != nil {
		return
	}
	count := 0
	for _, gs := range all {
		count += len(gs)
	}
	s.guard.Observe(cache.CollectionGaps, count, 0)

	if s.guard.NeedsCleanup() && s.bus != nil {
		s.bus.PublishCachePressure(eventbus.CachePressurePayload{
			Violations: s.guard.CheckViolations(),
		})
	}
}
