package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"
)

// ICSSource fetches events from an ICS/iCal URL or a local .ics file.
type ICSSource struct {
	name     string
	url      string
	username string
	password string
	client   *http.Client
}

// NewICSSource creates a new ICS calendar source. A url without an http(s)
// scheme is read from the filesystem.
func NewICSSource(name, url, username, password string) *ICSSource {
	return &ICSSource{
		name:     name,
		url:      url,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the display name of this calendar source.
func (s *ICSSource) Name() string {
	return s.name
}

// Fetch retrieves events from the ICS feed that overlap [start, end).
func (s *ICSSource) Fetch(ctx context.Context, start, end time.Time) ([]Event, error) {
	body, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return parseFeed(body, s.name, start, end)
}

func (s *ICSSource) open(ctx context.Context) (io.ReadCloser, error) {
	if !strings.HasPrefix(s.url, "http://") && !strings.HasPrefix(s.url, "https://") {
		f, err := os.Open(strings.TrimPrefix(s.url, "file://"))
		if err != nil {
			return nil, fmt.Errorf("open ICS file: %w", err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if s.username != "" && s.password != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ICS: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch ICS: status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseFeed decodes every calendar in r and returns the events overlapping
// [start, end), with recurrences expanded.
func parseFeed(r io.Reader, source string, start, end time.Time) ([]Event, error) {
	dec := ics.NewDecoder(r)

	var events []Event
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode ICS: %w", err)
		}
		events = append(events, eventsFromCalendar(cal, source, start, end)...)
	}
	return events, nil
}

// eventsFromCalendar collects the VEVENTs of cal. Events that cannot be
// parsed are skipped.
func eventsFromCalendar(cal *ics.Calendar, source string, start, end time.Time) []Event {
	var events []Event
	for _, comp := range cal.Children {
		if comp.Name != ics.CompEvent {
			continue
		}
		parsed, err := parseEvent(comp, source, start, end)
		if err != nil {
			continue
		}
		events = append(events, parsed...)
	}
	return events
}

// parseEvent converts a VEVENT into the occurrences overlapping [start, end).
func parseEvent(comp *ics.Component, source string, start, end time.Time) ([]Event, error) {
	if prop := comp.Props.Get(ics.PropStatus); prop != nil && strings.EqualFold(prop.Value, "CANCELLED") {
		return nil, nil
	}
	// Transparent events do not make anyone busy.
	if prop := comp.Props.Get(ics.PropTransparency); prop != nil && strings.EqualFold(prop.Value, "TRANSPARENT") {
		return nil, nil
	}

	base := Event{Source: source}

	if prop := comp.Props.Get(ics.PropUID); prop != nil {
		base.UID = prop.Value
	}
	if prop := comp.Props.Get(ics.PropSummary); prop != nil {
		base.Summary = prop.Value
	}
	if prop := comp.Props.Get(ics.PropDescription); prop != nil {
		base.Description = prop.Value
	}
	if prop := comp.Props.Get(ics.PropLocation); prop != nil {
		base.Location = prop.Value
	}
	if prop := comp.Props.Get(ics.PropOrganizer); prop != nil {
		base.Organizer = strings.TrimPrefix(prop.Value, "mailto:")
	}

	prop := comp.Props.Get(ics.PropDateTimeStart)
	if prop == nil {
		return nil, fmt.Errorf("missing DTSTART")
	}
	startTime, isAllDay, err := propTime(prop)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}

	var duration time.Duration
	switch {
	case comp.Props.Get(ics.PropDateTimeEnd) != nil:
		t, _, err := propTime(comp.Props.Get(ics.PropDateTimeEnd))
		if err != nil {
			return nil, fmt.Errorf("parse end time: %w", err)
		}
		duration = t.Sub(startTime)
	case comp.Props.Get(ics.PropDuration) != nil:
		duration, err = parseICSDuration(comp.Props.Get(ics.PropDuration).Value)
		if err != nil {
			return nil, fmt.Errorf("parse duration: %w", err)
		}
	case isAllDay:
		duration = 24 * time.Hour
	default:
		duration = time.Hour
	}

	rset, err := comp.RecurrenceSet(time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence: %w", err)
	}

	if rset == nil {
		base.Start = startTime
		base.End = startTime.Add(duration)
		base.AllDay = isAllDay || isEffectivelyAllDay(base.Start, base.End)
		if !base.Overlaps(start, end) {
			return nil, nil
		}
		return []Event{base}, nil
	}

	// Look back by duration to catch occurrences that began before start.
	var events []Event
	for _, occ := range rset.Between(start.Add(-duration), end, true) {
		event := base
		event.Start = occ
		event.End = occ.Add(duration)
		event.AllDay = isAllDay || isEffectivelyAllDay(event.Start, event.End)
		event.UID = fmt.Sprintf("%s_%d", base.UID, occ.Unix())
		if event.Overlaps(start, end) {
			events = append(events, event)
		}
	}
	return events, nil
}

// propTime parses a DTSTART/DTEND value and reports whether it is date-only.
func propTime(prop *ics.Prop) (time.Time, bool, error) {
	if prop.ValueType() == ics.ValueDate {
		t, err := parseDateOnly(prop.Value)
		return t, true, err
	}
	t, err := prop.DateTime(time.Local)
	if err == nil {
		return t, false, nil
	}
	// Floating time without a timezone.
	if t, err := parseDateTime(prop.Value); err == nil {
		return t, false, nil
	}
	t, err = parseDateOnly(prop.Value)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// parseDateOnly parses a date-only value (YYYYMMDD format).
func parseDateOnly(s string) (time.Time, error) {
	return time.ParseInLocation("20060102", s, time.Local)
}

// parseDateTime parses a datetime value without timezone (YYYYMMDDTHHmmss format).
func parseDateTime(s string) (time.Time, error) {
	return time.ParseInLocation("20060102T150405", s, time.Local)
}

var icsDurationRe = regexp.MustCompile(`^([+-])?P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseICSDuration parses an RFC 5545 DURATION value such as P1W, P2D or PT1H30M.
func parseICSDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	m := icsDurationRe.FindStringSubmatch(s)
	if m == nil || strings.HasSuffix(s, "P") || strings.HasSuffix(s, "T") {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	units := []time.Duration{7 * 24 * time.Hour, 24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, unit := range units {
		if m[i+2] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+2])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d += time.Duration(n) * unit
	}
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}
