package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/eventbus"
	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/internal/core/window"
	"github.com/hay-kot/daygap/internal/engine"
)

type memGapStore struct {
	mu   sync.Mutex
	gaps map[timeutil.Date][]gap.Gap
}

func newMemGapStore() *memGapStore {
	return &memGapStore{gaps: make(map[timeutil.Date][]gap.Gap)}
}

func (s *memGapStore) ListByDate(_ context.Context, date timeutil.Date) ([]gap.Gap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gap.Gap, len(s.gaps[date]))
	copy(out, s.gaps[date])
	return out, nil
}

func (s *memGapStore) ListAll(context.Context) (map[timeutil.Date][]gap.Gap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[timeutil.Date][]gap.Gap, len(s.gaps))
	for d, gs := range s.gaps {
		out[d] = gs
	}
	return out, nil
}

func (s *memGapStore) ReplaceDate(_ context.Context, date timeutil.Date, gaps []gap.Gap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(gaps) == 0 {
		delete(s.gaps, date)
		return nil
	}
	s.gaps[date] = gaps
	return nil
}

func (s *memGapStore) DeleteDate(_ context.Context, date timeutil.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.gaps, date)
	return nil
}

func (s *memGapStore) Dates(context.Context) ([]timeutil.Date, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]timeutil.Date, 0, len(s.gaps))
	for d := range s.gaps {
		out = append(out, d)
	}
	return out, nil
}

var _ gap.Store = (*memGapStore)(nil)

type staticTasks struct {
	mu    sync.Mutex
	tasks []task.Task
	calls int
	err   error
}

func (s *staticTasks) TasksForDate(_ context.Context, date timeutil.Date) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []task.Task
	for _, t := range s.tasks {
		if t.DueDate == date {
			out = append(out, t)
		}
	}
	return out, nil
}

type staticPrefs struct {
	p   prefs.WorkPreferences
	err error
}

func (s *staticPrefs) Preferences(context.Context) (prefs.WorkPreferences, error) {
	return s.p, s.err
}

type fakeProvider struct {
	mu     sync.Mutex
	events []calendar.RawEvent
	err    error
	calls  int
}

func (p *fakeProvider) RequestPermission(context.Context) (bool, error) { return true, nil }

func (p *fakeProvider) ListCalendars(context.Context) ([]string, error) { return nil, nil }

func (p *fakeProvider) ListEvents(_ context.Context, _, _ timeutil.Date, _ []string) ([]calendar.RawEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.events, nil
}

var _ calendar.Provider = (*fakeProvider)(nil)

type svcFixture struct {
	service *engine.Service
	store   *memGapStore
	tasks   *staticTasks
	busy    *cache.BusyBlocks
}

func newFixture(t *testing.T, p prefs.WorkPreferences, providers ...calendar.Provider) *svcFixture {
	t.Helper()
	store := newMemGapStore()
	tasks := &staticTasks{}
	blockCache := cache.NewBusyBlocks(time.Hour)
	busy := engine.NewBusySource(providers, blockCache, nil)

	svc := engine.NewService(store, tasks, &staticPrefs{p: p}, busy, nil, nil)
	svc.SetWindowFunc(func() window.Rolling { return testWin })

	return &svcFixture{service: svc, store: store, tasks: tasks, busy: blockCache}
}

func TestService_GapsForDateComputesOnDemand(t *testing.T) {
	f := newFixture(t, prefs.Default())

	gaps, err := f.service.GapsForDate(context.Background(), monday)
	require.NoError(t, err)
	assert.Len(t, gaps, 8)

	// Second read serves the stored result without recomputing.
	again, err := f.service.GapsForDate(context.Background(), monday)
	require.NoError(t, err)
	assert.Equal(t, gap.Intervals(gaps), gap.Intervals(again))
	assert.Equal(t, 1, f.tasks.calls)
}

func TestService_RecomputeDateReplacesStored(t *testing.T) {
	f := newFixture(t, prefs.Default())

	_, err := f.service.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)

	due := timeutil.Minutes(600)
	f.tasks.tasks = []task.Task{{ID: "t-1", DueDate: monday, DueTime: &due, Duration: 60, Status: task.StatusPending}}

	gaps, err := f.service.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)
	assert.Len(t, gaps, 7)

	stored, err := f.store.ListByDate(context.Background(), monday)
	require.NoError(t, err)
	assert.Len(t, stored, 7)
}

func TestService_NoPreferencesYieldsEmpty(t *testing.T) {
	store := newMemGapStore()
	busy := engine.NewBusySource(nil, cache.NewBusyBlocks(time.Hour), nil)
	svc := engine.NewService(store, &staticTasks{}, &staticPrefs{err: errors.New("prefs unavailable")}, busy, nil, nil)
	svc.SetWindowFunc(func() window.Rolling { return testWin })

	gaps, err := svc.RecomputeDate(context.Background(), monday)
	assert.NoError(t, err, "missing preferences is not a failure")
	assert.Empty(t, gaps)
}

func TestService_TaskLoadErrorPropagates(t *testing.T) {
	f := newFixture(t, prefs.Default())
	f.tasks.err = errors.New("store broken")

	_, err := f.service.RecomputeDate(context.Background(), monday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load tasks")
}

func TestService_BusyBlocksSubtractedFromProvider(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true

	provider := &fakeProvider{events: []calendar.RawEvent{{
		ID:           "ev-1",
		CalendarID:   "primary",
		Start:        time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC),
		End:          time.Date(2026, time.March, 9, 11, 0, 0, 0, time.UTC),
		Transparency: calendar.TransparencyBusy,
		Status:       calendar.StatusConfirmed,
		Source:       calendar.SourceGoogle,
	}}}

	f := newFixture(t, p, provider)

	gaps, err := f.service.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)
	assert.Len(t, gaps, 7)
	for _, g := range gaps {
		assert.False(t, g.Overlaps(600, 660))
	}
}

func TestService_ProviderResultsCached(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true
	provider := &fakeProvider{}
	f := newFixture(t, p, provider)

	_, err := f.service.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)
	_, err = f.service.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls, "second recompute hits the busy-block cache")
}

func TestService_DegradesToStaleCacheOnProviderFailure(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true

	provider := &fakeProvider{err: errors.New("unreachable")}
	store := newMemGapStore()
	blockCache := cache.NewBusyBlocks(time.Millisecond)
	busy := engine.NewBusySource([]calendar.Provider{provider}, blockCache, nil)
	svc := engine.NewService(store, &staticTasks{}, &staticPrefs{p: p}, busy, nil, nil)
	svc.SetWindowFunc(func() window.Rolling { return testWin })

	// Seed the cache directly, then let the entry outlive its TTL.
	blockCache.Set(monday, []calendar.BusyBlock{{Date: monday, Start: 540, End: 720}})
	time.Sleep(5 * time.Millisecond)

	gaps, err := svc.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)
	require.NotEmpty(t, gaps)
	assert.Equal(t, timeutil.Minutes(720), gaps[0].Start, "stale blocks still subtracted")
}

func TestService_EmptyFallbackWhenNoCache(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true

	provider := &fakeProvider{err: errors.New("unreachable")}
	f := newFixture(t, p, provider)

	gaps, err := f.service.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)
	assert.Len(t, gaps, 8, "no cache means gaps reflect tasks only")
}

func TestService_RecomputeWindow(t *testing.T) {
	f := newFixture(t, prefs.Default())

	require.NoError(t, f.service.RecomputeWindow(context.Background()))

	all, err := f.store.ListAll(context.Background())
	require.NoError(t, err)

	// 15-day window over a Mon-Fri week contains 11 working days.
	assert.Len(t, all, 11)
	assert.NotContains(t, all, sunday)
}

func TestService_ApplyPreferenceChangeAdjustsStoredDates(t *testing.T) {
	f := newFixture(t, prefs.Default())
	require.NoError(t, f.service.RecomputeWindow(context.Background()))

	oldPrefs := prefs.Default()
	newPrefs := prefs.Default()
	newPrefs.WorkStart = 10 * 60

	result, err := f.service.ApplyPreferenceChange(context.Background(), oldPrefs, newPrefs)
	require.NoError(t, err)
	assert.True(t, result.RequiresRecalculation)
	assert.True(t, result.RequiresImmediateUpdate)

	stored, err := f.store.ListByDate(context.Background(), monday)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	assert.Equal(t, timeutil.Minutes(600), stored[0].Start, "stale 09:00 gap trimmed synchronously")
}

func TestService_ApplyPreferenceChangeInvalidatesBusyCache(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true

	provider := &fakeProvider{}
	f := newFixture(t, p, provider)

	_, err := f.service.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)

	// A normalization-policy edit drops cached blocks built under the old
	// policy, so the next recompute refetches.
	newPrefs := p
	newPrefs.BlockTentative = true
	_, err = f.service.ApplyPreferenceChange(context.Background(), p, newPrefs)
	require.NoError(t, err)

	_, err = f.service.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls, "policy change bypasses the TTL")
}

func TestService_ApplyPreferenceChangeNoop(t *testing.T) {
	f := newFixture(t, prefs.Default())

	result, err := f.service.ApplyPreferenceChange(context.Background(), prefs.Default(), prefs.Default())
	require.NoError(t, err)
	assert.False(t, result.HasChanges())
	assert.False(t, result.RequiresRecalculation)
}

func TestService_CleanupWindow(t *testing.T) {
	f := newFixture(t, prefs.Default())

	inside := monday
	outside := timeutil.Date{Year: 2026, Month: time.February, Day: 1}

	require.NoError(t, f.store.ReplaceDate(context.Background(), inside, []gap.Gap{gap.New(inside, 540, 600, gap.BySystem, testNow)}))
	require.NoError(t, f.store.ReplaceDate(context.Background(), outside, []gap.Gap{gap.New(outside, 540, 600, gap.BySystem, testNow)}))

	removed, err := f.service.CleanupWindow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	dates, err := f.store.Dates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []timeutil.Date{inside}, dates)
}

func TestService_PublishesGapsUpdated(t *testing.T) {
	bus := eventbus.New(8)
	published := make(chan eventbus.Event, 1)
	bus.OnPublish(func(e eventbus.Event, _ any) { published <- e })

	store := newMemGapStore()
	busy := engine.NewBusySource(nil, cache.NewBusyBlocks(time.Hour), nil)
	svc := engine.NewService(store, &staticTasks{}, &staticPrefs{p: prefs.Default()}, busy, bus, nil)
	svc.SetWindowFunc(func() window.Rolling { return testWin })

	_, err := svc.RecomputeDate(context.Background(), monday)
	require.NoError(t, err)

	select {
	case e := <-published:
		assert.Equal(t, eventbus.EventGapsUpdated, e)
	case <-time.After(time.Second):
		t.Fatal("gaps.updated never published")
	}
}
