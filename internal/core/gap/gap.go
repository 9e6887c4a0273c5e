// Package gap defines the free-interval domain type and its store interface.
//
// A gap is a contiguous, currently-unscheduled sub-interval of the user's
// working day. Gaps are generated from work preferences and then carved up by
// tasks and calendar busy blocks; the lineage fields record which baseline
// gap a fragment descends from.
package gap

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// ErrNotFound is returned when no gaps exist for a requested date.
var ErrNotFound = errors.New("gaps not found for date")

// ModifiedBy tags the provenance of a gap's most recent mutation.
type ModifiedBy string

const (
	// BySystem marks baseline generation and task subtraction.
	BySystem ModifiedBy = "system"
	// ByUser marks direct user edits.
	ByUser ModifiedBy = "user"
	// ByCalendarSync marks fragments produced by busy-block subtraction.
	ByCalendarSync ModifiedBy = "calendar_sync"
)

// Gap is a free interval within a working day. Invariants: Start < End,
// DurationMinutes == End-Start, and no two gaps for the same date overlap.
type Gap struct {
	ID              string           `json:"id"`
	Date            timeutil.Date    `json:"date"`
	Start           timeutil.Minutes `json:"start"`
	End             timeutil.Minutes `json:"end"`
	DurationMinutes timeutil.Minutes `json:"duration_minutes"`
	ParentGapID     string           `json:"parent_gap_id,omitempty"`
	OriginGapID     string           `json:"origin_gap_id,omitempty"`
	ModifiedBy      ModifiedBy       `json:"modified_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// New creates a baseline gap for the given interval.
func New(date timeutil.Date, start, end timeutil.Minutes, by ModifiedBy, now time.Time) Gap {
	id := uuid.NewString()
	return Gap{
		ID:              id,
		Date:            date,
		Start:           start,
		End:             end,
		DurationMinutes: end - start,
		OriginGapID:     id,
		ModifiedBy:      by,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Child creates a remainder sub-gap of g covering [start, end), inheriting
// g's origin lineage.
func (g Gap) Child(start, end timeutil.Minutes, by ModifiedBy, now time.Time) Gap {
	origin := g.OriginGapID
	if origin == "" {
		origin = g.ID
	}
	return Gap{
		ID:              uuid.NewString(),
		Date:            g.Date,
		Start:           start,
		End:             end,
		DurationMinutes: end - start,
		ParentGapID:     g.ID,
		OriginGapID:     origin,
		ModifiedBy:      by,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       now,
	}
}

// Overlaps reports whether the half-open interval [start, end) intersects g.
func (g Gap) Overlaps(start, end timeutil.Minutes) bool {
	return start < g.End && end > g.Start
}

// Interval is a bare [Start, End) pair, used when comparing gap geometry
// independent of identity.
type Interval struct {
	Start timeutil.Minutes
	End   timeutil.Minutes
}

// Intervals projects gaps onto their geometry in input order.
func Intervals(gaps []Gap) []Interval {
	out := make([]Interval, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, Interval{Start: g.Start, End: g.End})
	}
	return out
}
