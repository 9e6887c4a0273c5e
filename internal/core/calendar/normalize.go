package calendar

import (
	"sort"
	"time"

	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/core/prefs"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// BlocksForDate converts raw provider events into un-normalized busy blocks
// for a single date. Timed events are clamped to the date's bounds; all-day
// events become a full-day block carrying IsAllDay for later expansion.
// Malformed records are skipped with a warning, never aborting the batch.
func BlocksForDate(events []RawEvent, date timeutil.Date, p prefs.WorkPreferences, now time.Time) []BusyBlock {
	log := logging.Component("calendar")

	out := make([]BusyBlock, 0, len(events))
	for _, ev := range events {
		if !p.IncludesCalendar(ev.CalendarID) {
			continue
		}

		block, ok := blockForDate(ev, date, now)
		if !ok {
			continue
		}
		if block.Start >= block.End {
			log.Warn().
				Str("uid", ev.ID).
				Str("calendar_id", ev.CalendarID).
				Msg("skipping event with empty or reversed interval")
			continue
		}
		out = append(out, block)
	}
	return out
}

func blockForDate(ev RawEvent, date timeutil.Date, now time.Time) (BusyBlock, bool) {
	block := BusyBlock{
		Date:         date,
		Source:       ev.Source,
		CalendarID:   ev.CalendarID,
		Transparency: ev.Transparency,
		Status:       ev.Status,
		IsAllDay:     ev.IsAllDay,
		UID:          ev.ID,
		LastSyncedAt: now,
	}

	if ev.IsAllDay {
		// All-day events cover the whole civil day until policy expansion.
		if !coversDate(ev, date) {
			return BusyBlock{}, false
		}
		block.Start = 0
		block.End = timeutil.MinutesPerDay
		return block, true
	}

	if ev.Start.IsZero() || ev.End.IsZero() {
		return BusyBlock{}, false
	}
	if !coversDate(ev, date) {
		return BusyBlock{}, false
	}

	block.Start = 0
	if timeutil.DateOf(ev.Start) == date {
		block.Start = timeutil.FromTime(ev.Start)
	}
	block.End = timeutil.MinutesPerDay
	if timeutil.DateOf(ev.End) == date {
		block.End = timeutil.FromTime(ev.End)
	}
	return block, true
}

// coversDate reports whether the event's [Start, End) span intersects the
// given civil date.
func coversDate(ev RawEvent, date timeutil.Date) bool {
	if ev.Start.IsZero() || ev.End.IsZero() {
		return false
	}
	startDate := timeutil.DateOf(ev.Start)
	endDate := timeutil.DateOf(ev.End)
	// An event ending exactly at midnight does not spill into the next day.
	if timeutil.FromTime(ev.End) == 0 && ev.End.After(ev.Start) {
		endDate = endDate.AddDays(-1)
	}
	return !date.Before(startDate) && !date.After(endDate)
}

// ExpandAllDay applies the all-day-event policy to a single block. Non-all-day
// blocks pass through unchanged. The returned bool is false when the policy
// drops the event. Identity fields are retained on derived blocks so
// deduplication can still match siblings of the same origin event.
func ExpandAllDay(block BusyBlock, p prefs.WorkPreferences) (BusyBlock, bool) {
	if !block.IsAllDay {
		return block, true
	}

	switch p.AllDayBlockMode {
	case prefs.AllDayIgnore, "":
		return BusyBlock{}, false

	case prefs.AllDayWorkday:
		block.Start = p.WorkStart
		block.End = p.ClampedWorkEnd()
		return block, true

	case prefs.AllDayWindow:
		windowLen := p.WorkWindowLength()
		blockLen := p.AllDayBlockMinutes
		if blockLen > windowLen {
			blockLen = windowLen
		}

		switch p.AllDayBlockPosition {
		case prefs.PositionStart:
			block.Start = p.WorkStart
		case prefs.PositionEnd:
			block.Start = p.ClampedWorkEnd() - blockLen
		default: // middle
			block.Start = p.WorkStart + (windowLen-blockLen)/2
		}
		block.End = block.Start + blockLen
		return block, true
	}

	return BusyBlock{}, false
}

// FilterByTransparency drops blocks that do not occupy time: cancelled
// events, transparency=free events, and tentative events unless the user has
// opted to treat tentative as busy. Relative order is preserved.
func FilterByTransparency(blocks []BusyBlock, p prefs.WorkPreferences) []BusyBlock {
	out := make([]BusyBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Status == StatusCancelled {
			continue
		}
		if b.Transparency == TransparencyFree {
			continue
		}
		if b.Transparency == TransparencyTentative && !p.BlockTentative {
			continue
		}
		out = append(out, b)
	}
	return out
}

// MergeOverlaps collapses overlapping or touching blocks per date with a
// left-to-right sweep. The earlier block's provenance is retained; the end is
// extended to the max of the two. O(n log n) per date.
func MergeOverlaps(blocks []BusyBlock) []BusyBlock {
	byDate := make(map[timeutil.Date][]BusyBlock)
	var dates []timeutil.Date
	for _, b := range blocks {
		if _, ok := byDate[b.Date]; !ok {
			dates = append(dates, b.Date)
		}
		byDate[b.Date] = append(byDate[b.Date], b)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]BusyBlock, 0, len(blocks))
	for _, date := range dates {
		day := byDate[date]
		sort.SliceStable(day, func(i, j int) bool {
			if day[i].Start != day[j].Start {
				return day[i].Start < day[j].Start
			}
			return day[i].End < day[j].End
		})

		var merged []BusyBlock
		for _, b := range day {
			if len(merged) > 0 && b.Start <= merged[len(merged)-1].End {
				cur := &merged[len(merged)-1]
				if b.End > cur.End {
					cur.End = b.End
				}
				continue
			}
			merged = append(merged, b)
		}
		out = append(out, merged...)
	}
	return out
}

// Normalize runs the full per-date pipeline: boundary conversion, all-day
// expansion, transparency filtering, multi-source deduplication, and overlap
// merging. Dedupe decisions are returned for the audit log.
func Normalize(events []RawEvent, date timeutil.Date, p prefs.WorkPreferences, now time.Time) ([]BusyBlock, []DedupeDecision) {
	blocks := BlocksForDate(events, date, p, now)

	expanded := make([]BusyBlock, 0, len(blocks))
	for _, b := range blocks {
		if derived, keep := ExpandAllDay(b, p); keep {
			expanded = append(expanded, derived)
		}
	}

	filtered := FilterByTransparency(expanded, p)
	deduped, decisions := DeduplicateEvents(filtered, p.DedupeStrategy)
	return MergeOverlaps(deduped), decisions
}
