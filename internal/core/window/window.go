// Package window defines the rolling date horizon within which gaps and
// caches are maintained.
package window

import (
	"fmt"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// Default horizon: 7 days back, today, 7 days forward.
const (
	DaysPast   = 7
	DaysFuture = 7
)

// Rolling is an inclusive date range centered on an anchor day. Gaps and
// cached calendar data outside the window are eligible for deletion.
type Rolling struct {
	Start  timeutil.Date `json:"start"`
	End    timeutil.Date `json:"end"`
	Anchor timeutil.Date `json:"anchor"`
}

// Around returns the rolling window centered on the given anchor date.
func Around(anchor timeutil.Date) Rolling {
	return Rolling{
		Start:  anchor.AddDays(-DaysPast),
		End:    anchor.AddDays(DaysFuture),
		Anchor: anchor,
	}
}

// Contains reports whether d falls inside the window (inclusive bounds).
func (w Rolling) Contains(d timeutil.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Dates returns every date in the window in ascending order.
func (w Rolling) Dates() []timeutil.Date {
	n := w.Start.DaysUntil(w.End) + 1
	if n <= 0 {
		return nil
	}
	out := make([]timeutil.Date, 0, n)
	for d := w.Start; !d.After(w.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Len returns the number of days in the window.
func (w Rolling) Len() int {
	return w.Start.DaysUntil(w.End) + 1
}

// String formats the window bounds for logs.
func (w Rolling) String() string {
	return fmt.Sprintf("[%s .. %s]", w.Start, w.End)
}
