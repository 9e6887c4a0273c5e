// Package task defines the scheduled-task domain type. Tasks are owned and
// mutated elsewhere; the gap engine only reads them.
package task

import (
	"time"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Task is a scheduled item with a due date and optional due time. DueTime and
// Duration are parsed into minutes at ingestion; a nil DueTime means the task
// is due "sometime that day" and occupies no interval.
type Task struct {
	ID        string            `json:"id"`
	Title     string            `json:"title,omitempty"`
	DueDate   timeutil.Date     `json:"due_date"`
	DueTime   *timeutil.Minutes `json:"due_time,omitempty"`
	Duration  timeutil.Minutes  `json:"duration"`
	Status    Status            `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Interval returns the task's occupied [start, end) interval in minutes since
// midnight. ok is false when the task has no due time or no positive
// duration and therefore occupies nothing.
func (t Task) Interval() (start, end timeutil.Minutes, ok bool) {
	if t.DueTime == nil || t.Duration <= 0 {
		return 0, 0, false
	}
	start = *t.DueTime
	end = start + t.Duration
	if end > timeutil.MinutesPerDay {
		end = timeutil.MinutesPerDay
	}
	if start < 0 || start >= end {
		return 0, 0, false
	}
	return start, end, true
}

// Blocks reports whether the task should be subtracted from gaps. Cancelled
// tasks no longer occupy their slot.
func (t Task) Blocks() bool {
	return t.Status != StatusCancelled
}
