package engine_test

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/internal/core/window"
	"github.com/hay-kot/daygap/internal/engine"
)

var (
	monday  = timeutil.Date{Year: 2026, Month: time.March, Day: 9}
	sunday  = timeutil.Date{Year: 2026, Month: time.March, Day: 8}
	testWin = window.Around(monday)
	testNow = time.Date(2026, time.March, 9, 8, 0, 0, 0, time.UTC)
)

func minutesPtr(m timeutil.Minutes) *timeutil.Minutes { return &m }

func TestComputeBaseGaps_StandardDay(t *testing.T) {
	gaps := engine.ComputeBaseGaps(monday, prefs.Default(), testWin, testNow)

	require.Len(t, gaps, 8)
	assert.Equal(t, timeutil.Minutes(540), gaps[0].Start)
	assert.Equal(t, timeutil.Minutes(600), gaps[0].End)
	assert.Equal(t, timeutil.Minutes(1020), gaps[7].End)

	for _, g := range gaps {
		assert.Equal(t, timeutil.Minutes(60), g.DurationMinutes)
		assert.Equal(t, g.ID, g.OriginGapID, "baseline gaps are their own origin")
		assert.Equal(t, gap.BySystem, g.ModifiedBy)
	}
}

func TestComputeBaseGaps_PartialFinalHour(t *testing.T) {
	p := prefs.Default()
	p.WorkEnd = 17*60 + 30

	gaps := engine.ComputeBaseGaps(monday, p, testWin, testNow)

	require.Len(t, gaps, 9)
	last := gaps[8]
	assert.Equal(t, timeutil.Minutes(1020), last.Start)
	assert.Equal(t, timeutil.Minutes(1050), last.End)
	assert.Equal(t, timeutil.Minutes(30), last.DurationMinutes)
}

func TestComputeBaseGaps_NonWorkingDay(t *testing.T) {
	gaps := engine.ComputeBaseGaps(sunday, prefs.Default(), testWin, testNow)
	assert.Empty(t, gaps)
}

func TestComputeBaseGaps_OutsideWindow(t *testing.T) {
	outside := timeutil.Date{Year: 2026, Month: time.April, Day: 9}
	gaps := engine.ComputeBaseGaps(outside, prefs.Default(), testWin, testNow)
	assert.Empty(t, gaps)
}

func TestComputeBaseGaps_ReversedWindowClampsToMidnight(t *testing.T) {
	p := prefs.Default()
	p.WorkStart = 22 * 60
	p.WorkEnd = 6 * 60

	gaps := engine.ComputeBaseGaps(monday, p, testWin, testNow)

	require.Len(t, gaps, 2)
	assert.Equal(t, timeutil.Minutes(1440), gaps[1].End)
}

func TestReconcile_TaskRemovesCoveredGap(t *testing.T) {
	tasks := []task.Task{{
		ID:      "t-1",
		DueDate: monday,
		DueTime: minutesPtr(600),
		Duration: 60,
		Status:  task.StatusPending,
	}}

	gaps := engine.Reconcile(monday, tasks, nil, prefs.Default(), testWin, testNow)

	require.Len(t, gaps, 7)
	for _, g := range gaps {
		assert.False(t, g.Overlaps(600, 660))
	}
}

func TestReconcile_TaskSplitsGaps(t *testing.T) {
	// 10:30-11:30 straddles the 10:00 and 11:00 hourly gaps.
	tasks := []task.Task{{
		ID:      "t-1",
		DueDate: monday,
		DueTime: minutesPtr(630),
		Duration: 60,
		Status:  task.StatusPending,
	}}

	gaps := engine.Reconcile(monday, tasks, nil, prefs.Default(), testWin, testNow)

	intervals := gap.Intervals(gaps)
	assert.Contains(t, intervals, gap.Interval{Start: 600, End: 630})
	assert.Contains(t, intervals, gap.Interval{Start: 690, End: 720})

	for _, g := range gaps {
		if g.Start == 600 && g.End == 630 {
			assert.NotEmpty(t, g.ParentGapID)
			assert.NotEqual(t, g.ID, g.OriginGapID)
		}
	}
}

func TestReconcile_DayOnlyTaskOccupiesNothing(t *testing.T) {
	tasks := []task.Task{{ID: "t-1", DueDate: monday, Duration: 60, Status: task.StatusPending}}

	gaps := engine.Reconcile(monday, tasks, nil, prefs.Default(), testWin, testNow)
	assert.Len(t, gaps, 8)
}

func TestReconcile_CancelledTaskIgnored(t *testing.T) {
	tasks := []task.Task{{
		ID:      "t-1",
		DueDate: monday,
		DueTime: minutesPtr(600),
		Duration: 60,
		Status:  task.StatusCancelled,
	}}

	gaps := engine.Reconcile(monday, tasks, nil, prefs.Default(), testWin, testNow)
	assert.Len(t, gaps, 8)
}

func TestReconcile_BusyBlockSubtraction(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true

	busy := []calendar.BusyBlock{{Date: monday, Start: 540, End: 720}}

	gaps := engine.Reconcile(monday, nil, busy, p, testWin, testNow)

	require.Len(t, gaps, 5)
	assert.Equal(t, timeutil.Minutes(720), gaps[0].Start)
	for _, g := range gaps {
		if g.ParentGapID != "" {
			assert.Equal(t, gap.ByCalendarSync, g.ModifiedBy)
		}
	}
}

func TestReconcile_BusyBlocksIgnoredWhenDisabled(t *testing.T) {
	busy := []calendar.BusyBlock{{Date: monday, Start: 540, End: 1020}}

	gaps := engine.Reconcile(monday, nil, busy, prefs.Default(), testWin, testNow)
	assert.Len(t, gaps, 8, "subtraction is off by default")
}

func TestReconcile_MalformedBusyBlockSkipped(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true

	busy := []calendar.BusyBlock{{Date: monday, Start: 700, End: 600, UID: "bad"}}

	gaps := engine.Reconcile(monday, nil, busy, p, testWin, testNow)
	assert.Len(t, gaps, 8)
}

func TestReconcile_Idempotent(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true

	tasks := []task.Task{{ID: "t-1", DueDate: monday, DueTime: minutesPtr(630), Duration: 45, Status: task.StatusPending}}
	busy := []calendar.BusyBlock{{Date: monday, Start: 840, End: 900, UID: "b-1"}}

	first := engine.Reconcile(monday, tasks, busy, p, testWin, testNow)
	second := engine.Reconcile(monday, tasks, busy, p, testWin, testNow)

	assert.Equal(t, gap.Intervals(first), gap.Intervals(second), "same inputs produce the same geometry")
}

func TestReconcile_PartitionsWorkWindow(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true

	tasks := []task.Task{{ID: "t-1", DueDate: monday, DueTime: minutesPtr(600), Duration: 60, Status: task.StatusPending}}
	busy := []calendar.BusyBlock{{Date: monday, Start: 810, End: 855, UID: "b-1"}}

	gaps := engine.Reconcile(monday, tasks, busy, p, testWin, testNow)

	// Gap intervals plus the occupied ones must tile the work window exactly,
	// with no hole and no overlap.
	intervals := gap.Intervals(gaps)
	intervals = append(intervals,
		gap.Interval{Start: 600, End: 660},
		gap.Interval{Start: 810, End: 855},
	)
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })

	cursor := p.WorkStart
	for _, iv := range intervals {
		require.Equal(t, cursor, iv.Start, "coverage breaks at %s", cursor.Clock())
		require.Less(t, iv.Start, iv.End)
		cursor = iv.End
	}
	assert.Equal(t, p.WorkEnd, cursor)
}

func TestReconcile_BufferPadsSubtractedIntervals(t *testing.T) {
	p := prefs.Default()
	p.SubtractBusyBlocks = true
	p.BufferMinutes = 10

	tasks := []task.Task{{ID: "t-1", DueDate: monday, DueTime: minutesPtr(600), Duration: 60, Status: task.StatusPending}}
	busy := []calendar.BusyBlock{{Date: monday, Start: 840, End: 900, UID: "b-1"}}

	gaps := engine.Reconcile(monday, tasks, busy, p, testWin, testNow)

	// The 10:00-11:00 task occupies [09:50, 11:10); the 14:00-15:00 block
	// occupies [13:50, 15:10).
	for _, g := range gaps {
		assert.False(t, g.Overlaps(590, 670), "gap %s-%s inside the task buffer", g.Start.Clock(), g.End.Clock())
		assert.False(t, g.Overlaps(830, 910), "gap %s-%s inside the busy buffer", g.Start.Clock(), g.End.Clock())
	}
}

func TestOptimize_DropsShortGaps(t *testing.T) {
	p := prefs.Default()
	p.MinGapMinutes = 30

	gaps := []gap.Gap{
		gap.New(monday, 540, 600, gap.BySystem, testNow),
		gap.New(monday, 600, 620, gap.BySystem, testNow),
		gap.New(monday, 700, 730, gap.BySystem, testNow),
	}

	kept := engine.Optimize(gaps, p)

	require.Len(t, kept, 2)
	assert.Equal(t, timeutil.Minutes(540), kept[0].Start)
	assert.Equal(t, timeutil.Minutes(700), kept[1].Start)
}

func TestHandlePreferenceChange_WeekdayRemoved(t *testing.T) {
	oldPrefs := prefs.Default()
	newPrefs := prefs.Default()
	newPrefs.WorkingDays = prefs.Weekdays(time.Tuesday, time.Wednesday, time.Thursday, time.Friday)

	existing := engine.ComputeBaseGaps(monday, oldPrefs, testWin, testNow)
	got := engine.HandlePreferenceChange(monday, existing, oldPrefs, newPrefs, testWin, testNow)

	assert.Empty(t, got)
}

func TestHandlePreferenceChange_WeekdayAdded(t *testing.T) {
	oldPrefs := prefs.Default()
	oldPrefs.WorkingDays = prefs.Weekdays(time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
	newPrefs := prefs.Default()

	got := engine.HandlePreferenceChange(monday, nil, oldPrefs, newPrefs, testWin, testNow)

	assert.Len(t, got, 8, "regenerated baseline for the newly-working day")
}

func TestHandlePreferenceChange_WindowNarrowed(t *testing.T) {
	oldPrefs := prefs.Default()
	newPrefs := prefs.Default()
	newPrefs.WorkStart = 10 * 60
	newPrefs.WorkEnd = 16 * 60

	existing := engine.ComputeBaseGaps(monday, oldPrefs, testWin, testNow)
	got := engine.HandlePreferenceChange(monday, existing, oldPrefs, newPrefs, testWin, testNow)

	require.Len(t, got, 6)
	assert.Equal(t, timeutil.Minutes(600), got[0].Start)
	assert.Equal(t, timeutil.Minutes(960), got[5].End)
}

func TestHandlePreferenceChange_NarrowingDropsSlivers(t *testing.T) {
	oldPrefs := prefs.Default()
	newPrefs := prefs.Default()
	// Leaves a 10-minute sliver of the 09:00 gap, under the 15-minute floor.
	newPrefs.WorkStart = 590
	newPrefs.WorkEnd = 17 * 60

	existing := engine.ComputeBaseGaps(monday, oldPrefs, testWin, testNow)
	got := engine.HandlePreferenceChange(monday, existing, oldPrefs, newPrefs, testWin, testNow)

	require.Len(t, got, 7)
	assert.Equal(t, timeutil.Minutes(600), got[0].Start)
}

func TestHandlePreferenceChange_WindowWidened(t *testing.T) {
	oldPrefs := prefs.Default()
	newPrefs := prefs.Default()
	newPrefs.WorkStart = 8 * 60
	newPrefs.WorkEnd = 18 * 60

	existing := engine.ComputeBaseGaps(monday, oldPrefs, testWin, testNow)
	got := engine.HandlePreferenceChange(monday, existing, oldPrefs, newPrefs, testWin, testNow)

	require.Len(t, got, 10)
	assert.Equal(t, timeutil.Minutes(480), got[0].Start)
	assert.Equal(t, timeutil.Minutes(1080), got[9].End)
}
