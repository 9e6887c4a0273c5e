package task

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

func minutes(m int) *timeutil.Minutes {
	v := timeutil.Minutes(m)
	return &v
}

func TestTask_Interval(t *testing.T) {
	tests := []struct {
		name      string
		task      Task
		wantStart timeutil.Minutes
		wantEnd   timeutil.Minutes
		wantOK    bool
	}{
		{
			name:      "timed task",
			task:      Task{DueTime: minutes(600), Duration: 60},
			wantStart: 600,
			wantEnd:   660,
			wantOK:    true,
		},
		{
			name:   "no due time",
			task:   Task{Duration: 60},
			wantOK: false,
		},
		{
			name:   "zero duration",
			task:   Task{DueTime: minutes(600)},
			wantOK: false,
		},
		{
			name:      "clamped to end of day",
			task:      Task{DueTime: minutes(1410), Duration: 120},
			wantStart: 1410,
			wantEnd:   timeutil.MinutesPerDay,
			wantOK:    true,
		},
		{
			name:   "negative start",
			task:   Task{DueTime: minutes(-10), Duration: 30},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := tt.task.Interval()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantStart, start)
				assert.Equal(t, tt.wantEnd, end)
			}
		})
	}
}

func TestTask_Blocks(t *testing.T) {
	assert.True(t, Task{Status: StatusPending}.Blocks())
	assert.True(t, Task{Status: StatusCompleted}.Blocks(), "completed tasks still hold their slot")
	assert.False(t, Task{Status: StatusCancelled}.Blocks())
}
