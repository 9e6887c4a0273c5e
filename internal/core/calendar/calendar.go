// Package calendar defines externally-sourced calendar data and the pure
// functions that normalize it into busy blocks: all-day expansion,
// transparency filtering, overlap merging, and multi-source deduplication.
package calendar

import (
	"context"
	"time"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// Source identifies which calendar backend produced an event.
type Source string

const (
	SourceDevice Source = "device"
	SourceGoogle Source = "google"
)

// Transparency describes how an event affects availability.
type Transparency string

const (
	TransparencyBusy      Transparency = "busy"
	TransparencyFree      Transparency = "free"
	TransparencyOOF       Transparency = "oof"
	TransparencyTentative Transparency = "tentative"
)

// Status is the confirmation state of an event.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusTentative Status = "tentative"
	StatusCancelled Status = "cancelled"
)

// RawEvent is the provider-level event record, before normalization.
type RawEvent struct {
	ID           string       `json:"id"`
	CalendarID   string       `json:"calendar_id"`
	Title        string       `json:"title,omitempty"`
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
	IsAllDay     bool         `json:"is_all_day"`
	Transparency Transparency `json:"transparency"`
	Status       Status       `json:"status"`
	Location     string       `json:"location,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	URL          string       `json:"url,omitempty"`
	Source       Source       `json:"source"`
}

// BusyBlock is a normalized interval of calendar occupancy on a single date.
// Invariant: Start < End. After overlap merging, no two kept blocks for the
// same date overlap.
type BusyBlock struct {
	Date         timeutil.Date    `json:"date"`
	Start        timeutil.Minutes `json:"start"`
	End          timeutil.Minutes `json:"end"`
	Source       Source           `json:"source"`
	CalendarID   string           `json:"calendar_id"`
	Transparency Transparency     `json:"transparency"`
	Status       Status           `json:"status"`
	IsAllDay     bool             `json:"is_all_day"`
	UID          string           `json:"uid"`
	LastSyncedAt time.Time        `json:"last_synced_at"`
}

// Overlaps reports whether the half-open interval [start, end) intersects b.
func (b BusyBlock) Overlaps(start, end timeutil.Minutes) bool {
	return start < b.End && end > b.Start
}

// Provider is the capability boundary to a calendar backend. Implementations
// must honor ctx cancellation; ListEvents is the only call expected to block
// on the network.
type Provider interface {
	// RequestPermission asks the backend for read access.
	RequestPermission(ctx context.Context) (bool, error)

	// ListCalendars returns the IDs of calendars visible to the user.
	ListCalendars(ctx context.Context) ([]string, error)

	// ListEvents returns raw events intersecting the inclusive date range,
	// restricted to the given calendar IDs (nil means all).
	ListEvents(ctx context.Context, start, end timeutil.Date, calendarIDs []string) ([]RawEvent, error)
}
