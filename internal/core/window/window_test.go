package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

func date(y int, m time.Month, d int) timeutil.Date {
	return timeutil.Date{Year: y, Month: m, Day: d}
}

func TestAround(t *testing.T) {
	w := Around(date(2026, 3, 15))

	assert.Equal(t, date(2026, 3, 8), w.Start)
	assert.Equal(t, date(2026, 3, 22), w.End)
	assert.Equal(t, date(2026, 3, 15), w.Anchor)
	assert.Equal(t, 15, w.Len())
}

func TestAround_MonthBoundary(t *testing.T) {
	w := Around(date(2026, 3, 2))

	assert.Equal(t, date(2026, 2, 23), w.Start)
	assert.Equal(t, date(2026, 3, 9), w.End)
}

func TestRolling_Contains(t *testing.T) {
	w := Around(date(2026, 3, 15))

	assert.True(t, w.Contains(date(2026, 3, 8)), "start is inclusive")
	assert.True(t, w.Contains(date(2026, 3, 22)), "end is inclusive")
	assert.True(t, w.Contains(date(2026, 3, 15)))
	assert.False(t, w.Contains(date(2026, 3, 7)))
	assert.False(t, w.Contains(date(2026, 3, 23)))
}

func TestRolling_Dates(t *testing.T) {
	w := Around(date(2026, 3, 15))

	dates := w.Dates()
	require.Len(t, dates, 15)
	assert.Equal(t, w.Start, dates[0])
	assert.Equal(t, w.End, dates[len(dates)-1])

	for i := 1; i < len(dates); i++ {
		assert.Equal(t, 1, dates[i-1].DaysUntil(dates[i]))
	}
}
