package prefs

import (
	"fmt"
	"strings"

	"github.com/hay-kot/daygap/internal/core/timeutil"
	"github.com/hay-kot/daygap/internal/core/window"
)

// Impact grades how disruptive a preference change is to already-computed
// gaps.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// ChangeEvent describes one changed preference field.
type ChangeEvent struct {
	Field                   string          `json:"field"`
	Old                     string          `json:"old"`
	New                     string          `json:"new"`
	Impact                  Impact          `json:"impact"`
	RequiresRecalculation   bool            `json:"requires_recalculation"`
	RequiresImmediateUpdate bool            `json:"requires_immediate_update"`
	AffectedDates           []timeutil.Date `json:"affected_dates,omitempty"`
}

// ChangeResult is the outcome of classifying a preference edit.
type ChangeResult struct {
	Events                  []ChangeEvent   `json:"events"`
	RequiresRecalculation   bool            `json:"requires_recalculation"`
	RequiresImmediateUpdate bool            `json:"requires_immediate_update"`
	Summary                 string          `json:"summary"`
	AffectedDates           []timeutil.Date `json:"affected_dates,omitempty"`
}

// HasChanges reports whether any field differed.
func (r ChangeResult) HasChanges() bool {
	return len(r.Events) > 0
}

// impactOf is the fixed impact table. Work-window geometry is high impact and
// forces an immediate whole-window recalculation; reconciliation policy knobs
// are medium; everything else is cosmetic.
func impactOf(field string) Impact {
	switch field {
	case "work_start", "work_end", "working_days":
		return ImpactHigh
	case "min_gap_minutes", "buffer_minutes", "subtract_busy_blocks",
		"included_calendars", "block_tentative", "dedupe_strategy":
		return ImpactMedium
	}
	return ImpactLow
}

// Classify compares two preference snapshots and grades each changed field.
// Both snapshots are normalized first, so an unset field and an explicitly
// configured default never register as a change. The working-day set compares
// as a set: order of the raw input is irrelevant.
func Classify(oldPrefs, newPrefs WorkPreferences, win window.Rolling) ChangeResult {
	o := oldPrefs.Normalized()
	n := newPrefs.Normalized()

	var events []ChangeEvent

	add := func(field, oldVal, newVal string) {
		impact := impactOf(field)
		events = append(events, ChangeEvent{
			Field:                   field,
			Old:                     oldVal,
			New:                     newVal,
			Impact:                  impact,
			RequiresRecalculation:   impact != ImpactLow,
			RequiresImmediateUpdate: impact == ImpactHigh,
		})
	}

	if o.WorkStart != n.WorkStart {
		add("work_start", o.WorkStart.Clock(), n.WorkStart.Clock())
	}
	if o.WorkEnd != n.WorkEnd {
		add("work_end", o.WorkEnd.Clock(), n.WorkEnd.Clock())
	}
	if o.WorkingDays != n.WorkingDays {
		add("working_days", o.WorkingDays.String(), n.WorkingDays.String())
	}
	if o.MinGapMinutes != n.MinGapMinutes {
		add("min_gap_minutes", fmt.Sprint(int(o.MinGapMinutes)), fmt.Sprint(int(n.MinGapMinutes)))
	}
	if o.BufferMinutes != n.BufferMinutes {
		add("buffer_minutes", fmt.Sprint(int(o.BufferMinutes)), fmt.Sprint(int(n.BufferMinutes)))
	}
	if o.SubtractBusyBlocks != n.SubtractBusyBlocks {
		add("subtract_busy_blocks", fmt.Sprint(o.SubtractBusyBlocks), fmt.Sprint(n.SubtractBusyBlocks))
	}
	if !calendarListEqual(o.IncludedCalendars, n.IncludedCalendars) {
		add("included_calendars", strings.Join(o.IncludedCalendars, ","), strings.Join(n.IncludedCalendars, ","))
	}
	if o.BlockTentative != n.BlockTentative {
		add("block_tentative", fmt.Sprint(o.BlockTentative), fmt.Sprint(n.BlockTentative))
	}
	if o.DedupeStrategy != n.DedupeStrategy {
		add("dedupe_strategy", string(o.DedupeStrategy), string(n.DedupeStrategy))
	}
	if o.AllDayBlockMode != n.AllDayBlockMode {
		add("all_day_block_mode", string(o.AllDayBlockMode), string(n.AllDayBlockMode))
	}
	if o.AllDayBlockMinutes != n.AllDayBlockMinutes {
		add("all_day_block_minutes", fmt.Sprint(int(o.AllDayBlockMinutes)), fmt.Sprint(int(n.AllDayBlockMinutes)))
	}
	if o.AllDayBlockPosition != n.AllDayBlockPosition {
		add("all_day_block_position", string(o.AllDayBlockPosition), string(n.AllDayBlockPosition))
	}

	result := ChangeResult{Events: events}

	for i := range result.Events {
		ev := &result.Events[i]
		if ev.RequiresRecalculation {
			ev.AffectedDates = win.Dates()
			result.RequiresRecalculation = true
		}
		if ev.RequiresImmediateUpdate {
			result.RequiresImmediateUpdate = true
		}
	}
	if result.RequiresRecalculation {
		result.AffectedDates = win.Dates()
	}

	result.Summary = summarize(result)
	return result
}

func summarize(r ChangeResult) string {
	if len(r.Events) == 0 {
		return "no preference changes"
	}

	parts := make([]string, 0, len(r.Events))
	for _, ev := range r.Events {
		parts = append(parts, fmt.Sprintf("%s (%s)", ev.Field, ev.Impact))
	}

	verdict := "no recalculation needed"
	if r.RequiresImmediateUpdate {
		verdict = "immediate recalculation required"
	} else if r.RequiresRecalculation {
		verdict = "recalculation required"
	}

	return fmt.Sprintf("%d change(s): %s; %s", len(r.Events), strings.Join(parts, ", "), verdict)
}

// calendarListEqual compares included-calendar pattern lists as sets.
func calendarListEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, p := range a {
		seen[p]++
	}
	for _, p := range b {
		seen[p]--
		if seen[p] < 0 {
			return false
		}
	}
	return true
}
