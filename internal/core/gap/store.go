package gap

import (
	"context"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

// Store defines the interface for gap persistence. Recomputation replaces a
// date's gaps wholesale, so the store is keyed by date rather than by gap ID.
type Store interface {
	// ListByDate returns the gaps for a date ordered by start time.
	// Returns an empty slice, not ErrNotFound, when the date has no gaps.
	ListByDate(ctx context.Context, date timeutil.Date) ([]Gap, error)

	// ListAll returns every stored gap grouped by date.
	ListAll(ctx context.Context) (map[timeutil.Date][]Gap, error)

	// ReplaceDate atomically replaces all gaps for a date.
	ReplaceDate(ctx context.Context, date timeutil.Date, gaps []Gap) error

	// DeleteDate removes all gaps for a date.
	DeleteDate(ctx context.Context, date timeutil.Date) error

	// Dates returns every date that currently has stored gaps.
	Dates(ctx context.Context) ([]timeutil.Date, error)
}
