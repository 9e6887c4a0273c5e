package prefs

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeekdaySet is a canonical fixed-cardinality set over the seven weekdays,
// stored as a bitmask indexed by time.Weekday (Sunday = bit 0). Loosely-typed
// inputs (names, abbreviations, numbers) are normalized into a WeekdaySet
// once, at the boundary, via ParseWeekdaySet; downstream code never re-parses
// raw input.
type WeekdaySet uint8

// Weekdays builds a set from the given days.
func Weekdays(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// weekdayNames maps accepted spellings to weekdays. Lookups are done on the
// lowercased input.
var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekday parses one weekday token: a name ("monday"), an abbreviation
// ("mon"), or a number 0-6 with Sunday as 0.
func ParseWeekday(s string) (time.Weekday, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	if d, ok := weekdayNames[token]; ok {
		return d, nil
	}
	if n, err := strconv.Atoi(token); err == nil && n >= 0 && n <= 6 {
		return time.Weekday(n), nil
	}
	return 0, fmt.Errorf("parse weekday %q: unrecognized", s)
}

// ParseWeekdaySet normalizes a loosely-typed list of weekday tokens into a
// WeekdaySet. Duplicate tokens are harmless; order is irrelevant.
func ParseWeekdaySet(tokens []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, tok := range tokens {
		d, err := ParseWeekday(tok)
		if err != nil {
			return 0, err
		}
		s = s.With(d)
	}
	return s, nil
}

// Contains reports whether d is in the set.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// With returns the set with d added.
func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	return s | 1<<uint(d)
}

// Without returns the set with d removed.
func (s WeekdaySet) Without(d time.Weekday) WeekdaySet {
	return s &^ (1 << uint(d))
}

// IsEmpty reports whether no weekday is set.
func (s WeekdaySet) IsEmpty() bool {
	return s == 0
}

// Len returns the number of weekdays in the set.
func (s WeekdaySet) Len() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			n++
		}
	}
	return n
}

// Days returns the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	var out []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// String renders the set as comma-joined short names, e.g. "mon,tue,fri".
func (s WeekdaySet) String() string {
	var parts []string
	for _, d := range s.Days() {
		parts = append(parts, strings.ToLower(d.String()[:3]))
	}
	return strings.Join(parts, ",")
}

// MarshalJSON renders the set as an array of short day names in Sunday-first
// order.
func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	days := s.Days()
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strings.ToLower(d.String()[:3]))
	}
	return json.Marshal(parts)
}

// UnmarshalJSON accepts an array of weekday tokens in any supported spelling.
func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		return fmt.Errorf("unmarshal weekday set: %w", err)
	}

	parsed, err := ParseWeekdaySet(tokens)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalYAML accepts a YAML sequence of weekday tokens.
func (s *WeekdaySet) UnmarshalYAML(unmarshal func(any) error) error {
	var tokens []string
	if err := unmarshal(&tokens); err != nil {
		return err
	}
	parsed, err := ParseWeekdaySet(tokens)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML renders the set as a sequence of short day names.
func (s WeekdaySet) MarshalYAML() (any, error) {
	days := s.Days()
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strings.ToLower(d.String()[:3]))
	}
	return parts, nil
}
