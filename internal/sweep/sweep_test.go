package sweep

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/daygap/internal/cache"
	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/internal/core/window"
	"github.com/hay-kot/daygap/internal/engine"
	"github.com/hay-kot/daygap/internal/store/jsonfile"
)

func TestSweeper_Run(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	gaps := jsonfile.NewGapStore(filepath.Join(dir, "gaps.json"))
	tasks := jsonfile.NewTaskStore(filepath.Join(dir, "tasks.json"))
	prefStore := jsonfile.NewPrefStore(filepath.Join(dir, "prefs.json"))
	busy := cache.NewBusyBlocks(time.Hour)

	anchor := timeutil.Date{Year: 2026, Month: time.March, Day: 9}
	win := window.Around(anchor)

	service := engine.NewService(gaps, tasks, prefStore, engine.NewBusySource(nil, busy, nil), nil, nil)
	service.SetWindowFunc(func() window.Rolling { return win })

	now := time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)
	stale := timeutil.Date{Year: 2026, Month: time.February, Day: 1}
	require.NoError(t, gaps.ReplaceDate(ctx, anchor, []gap.Gap{gap.New(anchor, 540, 600, gap.BySystem, now)}))
	require.NoError(t, gaps.ReplaceDate(ctx, stale, []gap.Gap{gap.New(stale, 540, 600, gap.BySystem, now)}))
	busy.Set(anchor, []calendar.BusyBlock{{Date: anchor, Start: 600, End: 660}})
	busy.Set(stale, []calendar.BusyBlock{{Date: stale, Start: 600, End: 660}})

	New(service, busy, nil, nil).Run(ctx)

	dates, err := gaps.Dates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []timeutil.Date{anchor}, dates)
	assert.Equal(t, 1, busy.Len())
}

func TestSweeper_Run_ObservesCollections(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	gaps := jsonfile.NewGapStore(filepath.Join(dir, "gaps.json"))
	tasks := jsonfile.NewTaskStore(filepath.Join(dir, "tasks.json"))
	prefStore := jsonfile.NewPrefStore(filepath.Join(dir, "prefs.json"))
	busy := cache.NewBusyBlocks(time.Hour)
	guard := cache.NewGuard(nil, 0, 0)

	anchor := timeutil.Date{Year: 2026, Month: time.March, Day: 9}
	win := window.Around(anchor)

	service := engine.NewService(gaps, tasks, prefStore, engine.NewBusySource(nil, busy, nil), nil, guard)
	service.SetWindowFunc(func() window.Rolling { return win })

	require.NoError(t, tasks.Replace(ctx, []task.Task{
		{ID: "t-1", DueDate: anchor, Status: task.StatusPending},
		{ID: "t-2", DueDate: anchor, Status: task.StatusPending},
	}))
	busy.Set(anchor, []calendar.BusyBlock{
		{Date: anchor, Start: 600, End: 660},
		{Date: anchor, Start: 700, End: 730},
		{Date: anchor, Start: 800, End: 830},
	})

	New(service, busy, guard, tasks).Run(ctx)

	byCollection := make(map[cache.Collection]cache.Violation)
	for _, v := range guard.CheckViolations() {
		byCollection[v.Collection] = v
	}
	assert.Equal(t, 2, byCollection[cache.CollectionTasks].Count)
	assert.Equal(t, 3, byCollection[cache.CollectionBusyBlocks].Count)
}

func TestSweeper_Run_EvictsColdEntriesUnderPressure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	gaps := jsonfile.NewGapStore(filepath.Join(dir, "gaps.json"))
	tasks := jsonfile.NewTaskStore(filepath.Join(dir, "tasks.json"))
	prefStore := jsonfile.NewPrefStore(filepath.Join(dir, "prefs.json"))
	busy := cache.NewBusyBlocks(time.Hour)
	guard := cache.NewGuard(map[cache.Collection]cache.Limit{
		cache.CollectionBusyBlocks: {MaxCount: 3},
	}, 0.80, 0.40)

	anchor := timeutil.Date{Year: 2026, Month: time.March, Day: 9}
	win := window.Around(anchor)

	service := engine.NewService(gaps, tasks, prefStore, engine.NewBusySource(nil, busy, nil), nil, guard)
	service.SetWindowFunc(func() window.Rolling { return win })

	cold := timeutil.Date{Year: 2026, Month: time.March, Day: 10}
	hot := anchor
	busy.Set(cold, []calendar.BusyBlock{{Date: cold, Start: 600, End: 660}})
	busy.Set(hot, []calendar.BusyBlock{
		{Date: hot, Start: 600, End: 660},
		{Date: hot, Start: 700, End: 730},
	})
	busy.Get(hot)
	busy.Get(hot)

	New(service, busy, guard, tasks).Run(ctx)

	// 3 blocks against a ceiling of 3 crosses the 80% threshold; the least
	// accessed date is sacrificed.
	_, ok := busy.Get(cold)
	assert.False(t, ok, "cold entry evicted")
	_, ok = busy.Get(hot)
	assert.True(t, ok, "hot entry survives")
}

func TestSweeper_StartRejectsBadSchedule(t *testing.T) {
	busy := cache.NewBusyBlocks(time.Hour)
	dir := t.TempDir()
	service := engine.NewService(
		jsonfile.NewGapStore(filepath.Join(dir, "gaps.json")),
		jsonfile.NewTaskStore(filepath.Join(dir, "tasks.json")),
		jsonfile.NewPrefStore(filepath.Join(dir, "prefs.json")),
		engine.NewBusySource(nil, busy, nil),
		nil, nil,
	)

	s := New(service, busy, nil, nil)
	assert.Error(t, s.Start(context.Background(), "not a schedule"))
}
