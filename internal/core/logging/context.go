package logging

import "context"

type contextKey string

const (
	dateKey      contextKey = "date"
	syncRunIDKey contextKey = "sync_run_id"
)

// WithDate adds the date being recomputed to the context.
func WithDate(ctx context.Context, date string) context.Context {
	return context.WithValue(ctx, dateKey, date)
}

// WithSyncRunID adds a sync run ID to the context.
func WithSyncRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, syncRunIDKey, runID)
}

// GetDate retrieves the date from the context.
// Returns empty string if not present.
func GetDate(ctx context.Context) string {
	if d, ok := ctx.Value(dateKey).(string); ok {
		return d
	}
	return ""
}

// GetSyncRunID retrieves the sync run ID from the context.
// Returns empty string if not present.
func GetSyncRunID(ctx context.Context) string {
	if id, ok := ctx.Value(syncRunIDKey).(string); ok {
		return id
	}
	return ""
}
