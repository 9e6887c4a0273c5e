package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts the date and sync run ID from context and adds them to
// log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if date := GetDate(ctx); date != "" {
		e.Str("date", date)
	}

	if runID := GetSyncRunID(ctx); runID != "" {
		e.Str("sync_run_id", runID)
	}
}
