// Package prefs defines the user's working-hour preferences and the policies
// that govern calendar reconciliation.
package prefs

import (
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// AllDayMode controls how an all-day calendar event is expanded into a timed
// busy block.
type AllDayMode string

const (
	// AllDayIgnore drops all-day events entirely.
	AllDayIgnore AllDayMode = "ignore"
	// AllDayWorkday blocks the full work window.
	AllDayWorkday AllDayMode = "workday"
	// AllDayWindow blocks a fixed-length slice of the work window.
	AllDayWindow AllDayMode = "window"
)

// AllDayPosition places the fixed-length block within the work window when
// AllDayWindow is active.
type AllDayPosition string

const (
	PositionStart  AllDayPosition = "start"
	PositionMiddle AllDayPosition = "middle"
	PositionEnd    AllDayPosition = "end"
)

// DedupeStrategy selects which mirrored busy block survives when the same
// event appears in more than one calendar source.
type DedupeStrategy string

const (
	DedupeAuto         DedupeStrategy = "auto"
	DedupePreferGoogle DedupeStrategy = "prefer_google"
	DedupePreferDevice DedupeStrategy = "prefer_device"
	DedupeNone         DedupeStrategy = "none"
)

// Default preference values. An unset field is treated as its default so that
// toggling a feature off and never setting it are indistinguishable.
const (
	DefaultWorkStart          = timeutil.Minutes(9 * 60)
	DefaultWorkEnd            = timeutil.Minutes(17 * 60)
	DefaultMinGapMinutes      = timeutil.Minutes(15)
	DefaultBufferMinutes      = timeutil.Minutes(0)
	DefaultAllDayBlockMinutes = timeutil.Minutes(60)
)

// WorkPreferences holds everything the gap engine needs to know about the
// user's working day and calendar policies. Times are minutes since midnight.
type WorkPreferences struct {
	WorkStart   timeutil.Minutes `json:"work_start" yaml:"work_start"`
	WorkEnd     timeutil.Minutes `json:"work_end" yaml:"work_end"`
	WorkingDays WeekdaySet       `json:"working_days" yaml:"working_days"`

	MinGapMinutes timeutil.Minutes `json:"min_gap_minutes" yaml:"min_gap_minutes"`

	// BufferMinutes widens every subtracted task and busy interval on both
	// sides, keeping transition time clear around commitments.
	BufferMinutes timeutil.Minutes `json:"buffer_minutes" yaml:"buffer_minutes"`

	// SubtractBusyBlocks enables subtraction of calendar busy blocks from
	// computed gaps. Off means gaps reflect tasks only.
	SubtractBusyBlocks bool `json:"subtract_busy_blocks" yaml:"subtract_busy_blocks"`

	AllDayBlockMode     AllDayMode       `json:"all_day_block_mode" yaml:"all_day_block_mode"`
	AllDayBlockMinutes  timeutil.Minutes `json:"all_day_block_minutes" yaml:"all_day_block_minutes"`
	AllDayBlockPosition AllDayPosition   `json:"all_day_block_position" yaml:"all_day_block_position"`

	// BlockTentative treats tentative calendar events as busy.
	BlockTentative bool `json:"block_tentative" yaml:"block_tentative"`

	DedupeStrategy DedupeStrategy `json:"dedupe_strategy" yaml:"dedupe_strategy"`

	// IncludedCalendars is a list of glob patterns matched against calendar
	// IDs. Empty means all calendars are included.
	IncludedCalendars []string `json:"included_calendars" yaml:"included_calendars"`

	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// Default returns the preference set used when the user has configured
// nothing: a 09:00-17:00 Monday-Friday work week.
func Default() WorkPreferences {
	return WorkPreferences{
		WorkStart:           DefaultWorkStart,
		WorkEnd:             DefaultWorkEnd,
		WorkingDays:         Weekdays(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday),
		MinGapMinutes:       DefaultMinGapMinutes,
		BufferMinutes:       DefaultBufferMinutes,
		AllDayBlockMode:     AllDayIgnore,
		AllDayBlockMinutes:  DefaultAllDayBlockMinutes,
		AllDayBlockPosition: PositionMiddle,
		DedupeStrategy:      DedupeAuto,
	}
}

// Normalized returns a copy of p with every unset field replaced by its
// default. Comparison and computation always operate on normalized values so
// an explicit default and an absent field never register as different.
func (p WorkPreferences) Normalized() WorkPreferences {
	out := p
	if out.WorkStart == 0 && out.WorkEnd == 0 {
		out.WorkStart = DefaultWorkStart
		out.WorkEnd = DefaultWorkEnd
	}
	if out.WorkingDays.IsEmpty() {
		out.WorkingDays = Default().WorkingDays
	}
	if out.MinGapMinutes == 0 {
		out.MinGapMinutes = DefaultMinGapMinutes
	}
	if out.AllDayBlockMode == "" {
		out.AllDayBlockMode = AllDayIgnore
	}
	if out.AllDayBlockMinutes == 0 {
		out.AllDayBlockMinutes = DefaultAllDayBlockMinutes
	}
	if out.AllDayBlockPosition == "" {
		out.AllDayBlockPosition = PositionMiddle
	}
	if out.DedupeStrategy == "" {
		out.DedupeStrategy = DedupeAuto
	}
	return out
}

// WorkWindowLength returns the length of the working window in minutes, after
// defensive clamping of WorkEnd (see ClampedWorkEnd).
func (p WorkPreferences) WorkWindowLength() timeutil.Minutes {
	return p.ClampedWorkEnd() - p.WorkStart
}

// ClampedWorkEnd returns WorkEnd, clamped to end-of-day when it does not sit
// strictly after WorkStart. A reversed window is treated as "works until
// midnight" rather than an error.
func (p WorkPreferences) ClampedWorkEnd() timeutil.Minutes {
	if p.WorkEnd <= p.WorkStart {
		return timeutil.MinutesPerDay
	}
	return p.WorkEnd
}

// IncludesCalendar reports whether the given calendar ID passes the
// IncludedCalendars patterns. An empty pattern list includes everything.
// Patterns use doublestar glob syntax, so "work-*" and "**" behave as
// expected.
func (p WorkPreferences) IncludesCalendar(calendarID string) bool {
	if len(p.IncludedCalendars) == 0 {
		return true
	}
	for _, pattern := range p.IncludedCalendars {
		if ok, err := doublestar.Match(pattern, calendarID); err == nil && ok {
			return true
		}
	}
	return false
}

// IsWorkingDay reports whether the given weekday is part of the user's work
// week.
func (p WorkPreferences) IsWorkingDay(day time.Weekday) bool {
	return p.WorkingDays.Contains(day)
}
