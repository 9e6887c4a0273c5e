package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component creates a new logger with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}

// ForDate creates a component logger bound to a specific date, for code paths
// that recompute a single day.
func ForDate(name, date string) zerolog.Logger {
	return log.With().Str("cmp", name).Str("date", date).Logger()
}
