package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/hay-kot/daygap/internal/core/calendar"
)

// maxOccurrences caps recurrence expansion per event so a malformed rule
// cannot produce an unbounded instance list.
const maxOccurrences = 1000

// expand turns one VEVENT into zero or more concrete events within
// [rangeStart, rangeEnd). Recurring events are expanded through their RRULE
// with EXDATEs removed.
func (p *Provider) expand(feed Feed, ve *ical.VEvent, rangeStart, rangeEnd time.Time) ([]calendar.RawEvent, error) {
	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return nil, fmt.Errorf("missing UID")
	}

	allDay := isAllDay(ve)

	var start, end time.Time
	var err error
	if allDay {
		start, err = ve.GetAllDayStartAt()
		if err != nil {
			return nil, fmt.Errorf("dtstart: %w", err)
		}
		end, err = ve.GetAllDayEndAt()
		if err != nil {
			end = start.Add(24 * time.Hour)
		}
	} else {
		start, err = ve.GetStartAt()
		if err != nil {
			return nil, fmt.Errorf("dtstart: %w", err)
		}
		end, err = ve.GetEndAt()
		if err != nil {
			end = start
		}
	}

	base := calendar.RawEvent{
		ID:           uid,
		CalendarID:   feed.ID,
		Title:        propValue(ve, ical.ComponentPropertySummary),
		IsAllDay:     allDay,
		Transparency: transparencyOf(ve),
		Status:       statusOf(ve),
		Location:     propValue(ve, ical.ComponentPropertyLocation),
		Notes:        propValue(ve, ical.ComponentPropertyDescription),
		URL:          propValue(ve, ical.ComponentPropertyUrl),
		Source:       calendar.SourceDevice,
	}

	rawRule := propValue(ve, ical.ComponentPropertyRrule)
	if rawRule == "" {
		if end.Before(rangeStart) || !start.Before(rangeEnd) {
			return nil, nil
		}
		base.Start = start.In(p.loc)
		base.End = end.In(p.loc)
		return []calendar.RawEvent{base}, nil
	}

	rule, err := rrule.StrToRRule(rawRule)
	if err != nil {
		return nil, fmt.Errorf("parse rrule: %w", err)
	}
	rule.DTStart(start)

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range exDates(ve, start.Location()) {
		set.ExDate(ex)
	}

	duration := end.Sub(start)
	occurrences := set.Between(rangeStart.In(start.Location()), rangeEnd.In(start.Location()), true)
	if len(occurrences) > maxOccurrences {
		p.log.Warn().Str("uid", uid).Int("cap", maxOccurrences).Msg("recurrence expansion capped")
		occurrences = occurrences[:maxOccurrences]
	}

	events := make([]calendar.RawEvent, 0, len(occurrences))
	for _, occStart := range occurrences {
		ev := base
		ev.Start = occStart.In(p.loc)
		ev.End = occStart.Add(duration).In(p.loc)
		events = append(events, ev)
	}
	return events, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if prop := ve.GetProperty(name); prop != nil {
		return prop.Value
	}
	return ""
}

// isAllDay reports whether DTSTART carries VALUE=DATE or a date-only value.
func isAllDay(ve *ical.VEvent) bool {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return false
	}
	if params := prop.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(prop.Value, "T")
}

// exDates collects EXDATE values, best effort. Values that fail to parse are
// dropped.
func exDates(ve *ical.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for _, prop := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(prop.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseTimestamp(part, loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

func parseTimestamp(v string, loc *time.Location) (time.Time, error) {
	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

// transparencyOf maps the TRANSP property onto the engine's transparency
// model. OOF has no ICS equivalent so busy covers it.
func transparencyOf(ve *ical.VEvent) calendar.Transparency {
	transp := strings.ToUpper(propValue(ve, ical.ComponentPropertyTransp))
	if transp == "TRANSPARENT" {
		return calendar.TransparencyFree
	}
	if strings.EqualFold(propValue(ve, ical.ComponentPropertyStatus), "TENTATIVE") {
		return calendar.TransparencyTentative
	}
	return calendar.TransparencyBusy
}

func statusOf(ve *ical.VEvent) calendar.Status {
	switch strings.ToUpper(propValue(ve, ical.ComponentPropertyStatus)) {
	case "TENTATIVE":
		return calendar.StatusTentative
	case "CANCELLED":
		return calendar.StatusCancelled
	default:
		return calendar.StatusConfirmed
	}
}
