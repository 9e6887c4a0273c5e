package gap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

var testDate = timeutil.Date{Year: 2026, Month: time.March, Day: 9}

func TestNew(t *testing.T) {
	now := time.Now()
	g := New(testDate, 540, 600, BySystem, now)

	require.NotEmpty(t, g.ID)
	assert.Equal(t, g.ID, g.OriginGapID, "baseline gaps are their own origin")
	assert.Empty(t, g.ParentGapID)
	assert.Equal(t, timeutil.Minutes(60), g.DurationMinutes)
	assert.Equal(t, BySystem, g.ModifiedBy)
	assert.Equal(t, now, g.CreatedAt)
}

func TestChild(t *testing.T) {
	now := time.Now()
	parent := New(testDate, 540, 600, BySystem, now)

	later := now.Add(time.Minute)
	child := parent.Child(540, 555, ByCalendarSync, later)

	assert.NotEqual(t, parent.ID, child.ID)
	assert.Equal(t, parent.ID, child.ParentGapID)
	assert.Equal(t, parent.OriginGapID, child.OriginGapID, "origin survives fragmentation")
	assert.Equal(t, timeutil.Minutes(15), child.DurationMinutes)
	assert.Equal(t, parent.CreatedAt, child.CreatedAt, "creation time is inherited")
	assert.Equal(t, later, child.UpdatedAt)

	// A grandchild still points at the original baseline gap.
	grandchild := child.Child(545, 555, ByCalendarSync, later)
	assert.Equal(t, parent.ID, grandchild.OriginGapID)
}

func TestOverlaps(t *testing.T) {
	g := New(testDate, 540, 600, BySystem, time.Now())

	assert.True(t, g.Overlaps(550, 560))
	assert.True(t, g.Overlaps(500, 550))
	assert.True(t, g.Overlaps(590, 700))

	// Half-open intervals: touching endpoints do not overlap.
	assert.False(t, g.Overlaps(600, 660))
	assert.False(t, g.Overlaps(480, 540))
}

func TestIntervals(t *testing.T) {
	now := time.Now()
	gaps := []Gap{
		New(testDate, 540, 600, BySystem, now),
		New(testDate, 660, 720, BySystem, now),
	}

	got := Intervals(gaps)
	assert.Equal(t, []Interval{{Start: 540, End: 600}, {Start: 660, End: 720}}, got)
}
