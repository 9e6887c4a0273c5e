// Package timeutil defines the minute-resolution time values used across the
// planner. Clock times and durations are parsed once, at the system boundary,
// into integer minutes; downstream code never re-parses raw strings.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the number of minutes in a civil day.
const MinutesPerDay = 24 * 60

// Minutes is a clock time or duration expressed as whole minutes.
// As a clock time it counts from midnight, so 09:30 is 570.
type Minutes int

// Valid reports whether m is a representable time of day.
func (m Minutes) Valid() bool {
	return m >= 0 && m <= MinutesPerDay
}

// Clock formats m as an HH:MM clock string.
func (m Minutes) Clock() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// Duration converts m to a time.Duration.
func (m Minutes) Duration() time.Duration {
	return time.Duration(m) * time.Minute
}

// ParseClock parses an HH:MM or HH:MM:SS clock string into minutes since
// midnight. Seconds, when present, are discarded.
func ParseClock(s string) (Minutes, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("parse clock %q: expected HH:MM or HH:MM:SS", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: bad hour: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: bad minute: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}

	return Minutes(h*60 + m), nil
}

// ParseDurationMinutes parses a human duration into whole minutes. Accepted
// forms: a bare integer ("45"), "45 min", "45m", "1h", "1h30m", and HH:MM.
func ParseDurationMinutes(s string) (Minutes, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("parse duration: empty string")
	}

	if strings.Contains(s, ":") {
		return ParseClock(s)
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("parse duration %q: negative", s)
		}
		return Minutes(n), nil
	}

	// "45 min" / "45 mins" / "45 minutes"
	if fields := strings.Fields(s); len(fields) == 2 {
		if n, err := strconv.Atoi(fields[0]); err == nil && strings.HasPrefix(fields[1], "min") {
			if n < 0 {
				return 0, fmt.Errorf("parse duration %q: negative", s)
			}
			return Minutes(n), nil
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse duration %q: negative", s)
	}

	return Minutes(d / time.Minute), nil
}

// FromTime returns the minutes since midnight of t in its own location.
func FromTime(t time.Time) Minutes {
	return Minutes(t.Hour()*60 + t.Minute())
}
