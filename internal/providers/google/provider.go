// Package google adapts the Google Calendar API to the provider interface
// used by the gap engine.
package google

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

var _ calendar.Provider = (*Provider)(nil)

// Provider reads events from the Google Calendar API.
type Provider struct {
	svc *gcal.Service
	loc *time.Location
}

// New builds a Provider from an authenticated HTTP client.
func New(ctx context.Context, client *http.Client, loc *time.Location) (*Provider, error) {
	svc, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Provider{svc: svc, loc: loc}, nil
}

// RequestPermission verifies the stored credentials by issuing a minimal
// calendar list call.
func (p *Provider) RequestPermission(ctx context.Context) (bool, error) {
	_, err := p.svc.CalendarList.List().MaxResults(1).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("calendar access check: %w", err)
	}
	return true, nil
}

// ListCalendars returns the IDs of all calendars visible to the account.
func (p *Provider) ListCalendars(ctx context.Context) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		call := p.svc.CalendarList.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list calendars: %w", err)
		}
		for _, item := range list.Items {
			ids = append(ids, item.Id)
		}
		if list.NextPageToken == "" {
			return ids, nil
		}
		pageToken = list.NextPageToken
	}
}

// ListEvents fetches events in [start, end] from the given calendars. An
// empty calendarIDs list means every visible calendar.
func (p *Provider) ListEvents(ctx context.Context, start, end timeutil.Date, calendarIDs []string) ([]calendar.RawEvent, error) {
	if len(calendarIDs) == 0 {
		var err error
		calendarIDs, err = p.ListCalendars(ctx)
		if err != nil {
			return nil, err
		}
	}

	timeMin := start.Time(p.loc)
	timeMax := end.AddDays(1).Time(p.loc)

	var events []calendar.RawEvent
	for _, calID := range calendarIDs {
		items, err := p.eventsForCalendar(ctx, calID, timeMin, timeMax)
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", calID, err)
		}
		events = append(events, items...)
	}
	return events, nil
}

func (p *Provider) eventsForCalendar(ctx context.Context, calID string, timeMin, timeMax time.Time) ([]calendar.RawEvent, error) {
	var events []calendar.RawEvent
	pageToken := ""
	for {
		call := p.svc.Events.List(calID).
			TimeMin(timeMin.Format(time.RFC3339)).
			TimeMax(timeMax.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, err
		}
		for _, item := range list.Items {
			ev, ok := p.convert(calID, item)
			if !ok {
				continue
			}
			events = append(events, ev)
		}
		if list.NextPageToken == "" {
			return events, nil
		}
		pageToken = list.NextPageToken
	}
}

// convert maps an API event to a RawEvent. Events without usable start and
// end data are skipped.
func (p *Provider) convert(calID string, item *gcal.Event) (calendar.RawEvent, bool) {
	ev := calendar.RawEvent{
		ID:           item.Id,
		CalendarID:   calID,
		Title:        item.Summary,
		Transparency: transparencyOf(item),
		Status:       statusOf(item),
		Location:     item.Location,
		Notes:        item.Description,
		URL:          item.HtmlLink,
		Source:       calendar.SourceGoogle,
	}

	switch {
	case item.Start == nil || item.End == nil:
		return calendar.RawEvent{}, false
	case item.Start.Date != "":
		startDay, err := time.ParseInLocation("2006-01-02", item.Start.Date, p.loc)
		if err != nil {
			return calendar.RawEvent{}, false
		}
		endDay, err := time.ParseInLocation("2006-01-02", item.End.Date, p.loc)
		if err != nil {
			return calendar.RawEvent{}, false
		}
		ev.IsAllDay = true
		ev.Start = startDay
		ev.End = endDay
	default:
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			return calendar.RawEvent{}, false
		}
		end, err := time.Parse(time.RFC3339, item.End.DateTime)
		if err != nil {
			return calendar.RawEvent{}, false
		}
		ev.Start = start.In(p.loc)
		ev.End = end.In(p.loc)
	}
	return ev, true
}

func transparencyOf(item *gcal.Event) calendar.Transparency {
	switch item.Transparency {
	case "transparent":
		return calendar.TransparencyFree
	default:
		if item.Status == "tentative" {
			return calendar.TransparencyTentative
		}
		return calendar.TransparencyBusy
	}
}

func statusOf(item *gcal.Event) calendar.Status {
	switch item.Status {
	case "tentative":
		return calendar.StatusTentative
	case "cancelled":
		return calendar.StatusCancelled
	default:
		return calendar.StatusConfirmed
	}
}
