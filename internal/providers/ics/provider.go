// Package ics reads device calendars from ICS feeds or local files and
// adapts them to the provider interface used by the gap engine.
package ics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"

	"github.com/hay-kot/daygap/internal/core/calendar"
	"github.com/hay-kot/daygap/internal/core/logging"
	"github.com/hay-kot/daygap/internal/core/timeutil"
)

var _ calendar.Provider = (*Provider)(nil)

// Feed names one ICS calendar. URL may be an http(s) address or a local
// file path.
type Feed struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// Provider serves events from a fixed set of ICS feeds.
type Provider struct {
	feeds  []Feed
	client *http.Client
	loc    *time.Location
	log    zerolog.Logger
}

// New builds a Provider for the given feeds.
func New(feeds []Feed, loc *time.Location) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{
		feeds:  feeds,
		client: &http.Client{Timeout: 15 * time.Second},
		loc:    loc,
		log:    logging.Component("ics"),
	}
}

// RequestPermission verifies that every feed is reachable.
func (p *Provider) RequestPermission(ctx context.Context) (bool, error) {
	for _, feed := range p.feeds {
		if _, err := p.fetch(ctx, feed); err != nil {
			return false, fmt.Errorf("feed %s: %w", feed.ID, err)
		}
	}
	return true, nil
}

// ListCalendars returns the configured feed IDs.
func (p *Provider) ListCalendars(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(p.feeds))
	for _, feed := range p.feeds {
		ids = append(ids, feed.ID)
	}
	return ids, nil
}

// ListEvents fetches and parses every requested feed, expanding recurring
// events into concrete instances within [start, end]. An empty calendarIDs
// list means every configured feed.
func (p *Provider) ListEvents(ctx context.Context, start, end timeutil.Date, calendarIDs []string) ([]calendar.RawEvent, error) {
	wanted := make(map[string]bool, len(calendarIDs))
	for _, id := range calendarIDs {
		wanted[id] = true
	}

	rangeStart := start.Time(p.loc)
	rangeEnd := end.AddDays(1).Time(p.loc)

	var events []calendar.RawEvent
	var lastErr error
	fetched := 0
	for _, feed := range p.feeds {
		if len(wanted) > 0 && !wanted[feed.ID] {
			continue
		}

		body, err := p.fetch(ctx, feed)
		if err != nil {
			p.log.Warn().Err(err).Str("feed", feed.ID).Msg("ics fetch failed")
			lastErr = fmt.Errorf("feed %s: %w", feed.ID, err)
			continue
		}

		parsed, err := p.parse(feed, body, rangeStart, rangeEnd)
		if err != nil {
			p.log.Warn().Err(err).Str("feed", feed.ID).Msg("ics parse failed")
			lastErr = fmt.Errorf("feed %s: %w", feed.ID, err)
			continue
		}

		events = append(events, parsed...)
		fetched++
	}

	if fetched == 0 && lastErr != nil {
		return nil, lastErr
	}
	return events, nil
}

// fetch reads the raw feed body from its URL or file path.
func (p *Provider) fetch(ctx context.Context, feed Feed) ([]byte, error) {
	if !strings.HasPrefix(feed.URL, "http://") && !strings.HasPrefix(feed.URL, "https://") {
		return os.ReadFile(feed.URL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 10<<20))
}

// parse turns an ICS payload into concrete events within [rangeStart,
// rangeEnd). Malformed VEVENTs are skipped.
func (p *Provider) parse(feed Feed, body []byte, rangeStart, rangeEnd time.Time) ([]calendar.RawEvent, error) {
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	var events []calendar.RawEvent
	for _, ve := range cal.Events() {
		instances, err := p.expand(feed, ve, rangeStart, rangeEnd)
		if err != nil {
			p.log.Warn().Err(err).Str("feed", feed.ID).Msg("skipping vevent")
			continue
		}
		events = append(events, instances...)
	}
	return events, nil
}
