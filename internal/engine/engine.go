// Package engine computes gaps: free intervals of the working day left over
// after scheduled tasks and calendar busy blocks are subtracted.
//
// The functions in this file are pure interval algebra over minutes since
// midnight. Orchestration (stores, caches, providers, events) lives in the
// Service.
package engine

import (
	"time"

	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/gap"
	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/task"
	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/internal/core/window"
)

// ComputeBaseGaps produces the baseline hourly availability for a working
// day: one gap per clock-hour in [work_start, work_end), with the final
// partial hour carrying the true remainder. Returns empty when the date falls
// outside the rolling window, the weekday is not a working day, or the
// preferences carry no usable work window. A work_end at or before work_start
// is clamped to end-of-day rather than rejected.
func ComputeBaseGaps(date timeutil.Date, p prefs.WorkPreferences, win window.Rolling, now time.Time) []gap.Gap {
	if !win.Contains(date) {
		return nil
	}

	p = p.Normalized()
	if !p.IsWorkingDay(date.Weekday()) {
		return nil
	}
	if !p.WorkStart.Valid() || !p.WorkEnd.Valid() {
		return nil
	}

	start := p.WorkStart
	end := p.ClampedWorkEnd()

	var gaps []gap.Gap
	for cur := start; cur < end; cur += 60 {
		gapEnd := cur + 60
		if gapEnd > end {
			gapEnd = end
		}
		gaps = append(gaps, gap.New(date, cur, gapEnd, gap.BySystem, now))
	}
	return gaps
}

// Reconcile computes the final gap list for a date: baseline gaps minus task
// intervals, minus merged busy blocks when calendar subtraction is enabled.
// Every subtracted interval is widened by the preference buffer first.
// Malformed records are skipped with a warning and never abort the whole
// computation.
func Reconcile(date timeutil.Date, tasks []task.Task, busy []calendar.BusyBlock, p prefs.WorkPreferences, win window.Rolling, now time.Time) []gap.Gap {
	log := logging.ForDate("engine", date.String())
	p = p.Normalized()

	gaps := ComputeBaseGaps(date, p, win, now)
	if len(gaps) == 0 {
		return gaps
	}

	for _, t := range tasks {
		if t.DueDate != date || !t.Blocks() {
			continue
		}
		start, end, ok := t.Interval()
		if !ok {
			if t.DueTime != nil {
				log.Warn().Str("task_id", t.ID).Msg("skipping task with malformed interval")
			}
			continue
		}
		start, end = buffered(start, end, p.BufferMinutes)
		gaps = subtract(gaps, start, end, gap.BySystem, now)
	}

	if p.SubtractBusyBlocks {
		for _, b := range busy {
			if b.Date != date {
				continue
			}
			if b.Start >= b.End || !b.Start.Valid() || !b.End.Valid() {
				log.Warn().Str("uid", b.UID).Msg("skipping busy block with malformed interval")
				continue
			}
			start, end := buffered(b.Start, b.End, p.BufferMinutes)
			gaps = subtract(gaps, start, end, gap.ByCalendarSync, now)
		}
	}

	return gaps
}

// buffered widens [start, end) by the preference buffer on both sides,
// clamped to the day, so gaps keep transition time clear of adjacent
// commitments.
func buffered(start, end, buffer timeutil.Minutes) (timeutil.Minutes, timeutil.Minutes) {
	if buffer <= 0 {
		return start, end
	}
	start -= buffer
	if start < 0 {
		start = 0
	}
	end += buffer
	if end > timeutil.MinutesPerDay {
		end = timeutil.MinutesPerDay
	}
	return start, end
}

// subtract removes the half-open interval [start, end) from every overlapping
// gap, replacing each with zero, one, or two remainder sub-gaps that inherit
// the parent's lineage. Gaps fully covered by the interval are dropped.
func subtract(gaps []gap.Gap, start, end timeutil.Minutes, by gap.ModifiedBy, now time.Time) []gap.Gap {
	out := make([]gap.Gap, 0, len(gaps))
	for _, g := range gaps {
		if !g.Overlaps(start, end) {
			out = append(out, g)
			continue
		}
		if start > g.Start {
			out = append(out, g.Child(g.Start, start, by, now))
		}
		if end < g.End {
			out = append(out, g.Child(end, g.End, by, now))
		}
	}
	return out
}

// Optimize drops gaps shorter than the minimum useful length. This is a
// policy filter, not an error path.
func Optimize(gaps []gap.Gap, p prefs.WorkPreferences) []gap.Gap {
	p = p.Normalized()
	out := make([]gap.Gap, 0, len(gaps))
	for _, g := range gaps {
		if g.DurationMinutes < p.MinGapMinutes {
			continue
		}
		out = append(out, g)
	}
	return out
}

// HandlePreferenceChange adjusts a single date's existing gaps to a new
// preference snapshot without a full provider round trip:
//
//   - weekday removed from the working set: all gaps deleted
//   - weekday added: baseline gaps regenerated
//   - window widened: new gaps created for the newly-included range
//   - window narrowed: gaps outside the new range trimmed or deleted, and
//     trimmed gaps that fall under min_gap_minutes dropped
func HandlePreferenceChange(date timeutil.Date, existing []gap.Gap, oldPrefs, newPrefs prefs.WorkPreferences, win window.Rolling, now time.Time) []gap.Gap {
	o := oldPrefs.Normalized()
	n := newPrefs.Normalized()

	wasWorking := o.IsWorkingDay(date.Weekday())
	isWorking := n.IsWorkingDay(date.Weekday())

	switch {
	case wasWorking && !isWorking:
		return nil
	case !wasWorking && isWorking:
		return ComputeBaseGaps(date, n, win, now)
	case !isWorking:
		return nil
	}

	oldStart, oldEnd := o.WorkStart, o.ClampedWorkEnd()
	newStart, newEnd := n.WorkStart, n.ClampedWorkEnd()

	out := make([]gap.Gap, 0, len(existing))

	// Trim or drop gaps that fall outside the new window.
	for _, g := range existing {
		if g.End <= newStart || g.Start >= newEnd {
			continue
		}
		if g.Start < newStart {
			g.Start = newStart
		}
		if g.End > newEnd {
			g.End = newEnd
		}
		g.DurationMinutes = g.End - g.Start
		g.UpdatedAt = now
		if g.DurationMinutes < n.MinGapMinutes {
			continue
		}
		out = append(out, g)
	}

	// Fill ranges the widened window newly includes.
	if newStart < oldStart {
		out = append(fillRange(date, newStart, min(oldStart, newEnd), now), out...)
	}
	if newEnd > oldEnd {
		out = append(out, fillRange(date, max(oldEnd, newStart), newEnd, now)...)
	}

	return out
}

// fillRange produces baseline hourly gaps over [start, end).
func fillRange(date timeutil.Date, start, end timeutil.Minutes, now time.Time) []gap.Gap {
	var gaps []gap.Gap
	for cur := start; cur < end; cur += 60 {
		gapEnd := cur + 60
		if gapEnd > end {
			gapEnd = end
		}
		gaps = append(gaps, gap.New(date, cur, gapEnd, gap.BySystem, now))
	}
	return gaps
}
