package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cpuguy83/calpick/internal/auth"
)

// graphCalendarEndpoint is the MS Graph calendarView endpoint, which expands
// recurring events server-side.
const graphCalendarEndpoint = "https://graph.microsoft.com/v1.0/me/calendarView"

// MS365Source fetches events from a Microsoft 365 calendar via Graph API.
type MS365Source struct {
	name     string
	clientID string
	endpoint string
	client   *http.Client

	initOnce sync.Once
	initErr  error
	auth     auth.TokenProvider
}

// NewMS365Source creates a new MS365 calendar source. clientID may be empty
// to use auth.DefaultClientID.
func NewMS365Source(name, clientID string) *MS365Source {
	return &MS365Source{
		name:     name,
		clientID: clientID,
		endpoint: graphCalendarEndpoint,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the display name of this calendar source.
func (s *MS365Source) Name() string {
	return s.name
}

// initAuth picks the token provider: the identity broker when it answers,
// the device code flow otherwise.
func (s *MS365Source) initAuth(ctx context.Context) error {
	s.initOnce.Do(func() {
		if s.auth != nil {
			return
		}
		scopes := []string{auth.CalendarReadScope}

		broker := auth.NewBroker(s.clientID, scopes)
		if broker.IsAvailable(ctx) {
			slog.Info("using Microsoft Identity Broker for authentication", "source", s.name)
			s.auth = broker
			return
		}
		broker.Close()
		slog.Info("broker not available, using device code flow", "source", s.name)

		deviceCode, err := auth.NewDeviceCodeAuth(scopes, auth.WithClientID(s.clientID))
		if err != nil {
			s.initErr = fmt.Errorf("initialize device code auth: %w", err)
			return
		}
		s.auth = deviceCode
	})
	return s.initErr
}

// Fetch retrieves events overlapping [start, end) from the calendar.
func (s *MS365Source) Fetch(ctx context.Context, start, end time.Time) ([]Event, error) {
	if err := s.initAuth(ctx); err != nil {
		return nil, err
	}

	token, err := s.auth.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}

	events, err := s.fetchCalendarView(ctx, token.AccessToken, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	return events, nil
}

// graphCalendarResponse is the MS Graph API response for calendar events.
type graphCalendarResponse struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink,omitempty"`
}

// graphEvent is the subset of a Graph event that matters for availability.
type graphEvent struct {
	ID          string          `json:"id"`
	Subject     string          `json:"subject"`
	BodyPreview string          `json:"bodyPreview"`
	Start       graphDateTime   `json:"start"`
	End         graphDateTime   `json:"end"`
	Location    *graphLocation  `json:"location,omitempty"`
	IsAllDay    bool            `json:"isAllDay"`
	IsCancelled bool            `json:"isCancelled"`
	Organizer   *graphOrganizer `json:"organizer,omitempty"`
	ShowAs      string          `json:"showAs"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphLocation struct {
	DisplayName string `json:"displayName"`
}

type graphOrganizer struct {
	EmailAddress struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	} `json:"emailAddress"`
}

func (s *MS365Source) fetchCalendarView(ctx context.Context, accessToken string, start, end time.Time) ([]Event, error) {
	params := url.Values{}
	params.Set("startDateTime", start.UTC().Format(time.RFC3339))
	params.Set("endDateTime", end.UTC().Format(time.RFC3339))
	params.Set("$orderby", "start/dateTime")
	params.Set("$top", "500")
	params.Set("$select", "id,subject,bodyPreview,start,end,location,isAllDay,isCancelled,organizer,showAs")

	reqURL := s.endpoint + "?" + params.Encode()

	var allEvents []Event
	for reqURL != "" {
		events, nextLink, err := s.fetchPage(ctx, accessToken, reqURL)
		if err != nil {
			return nil, err
		}
		allEvents = append(allEvents, events...)
		reqURL = nextLink
	}

	slog.Debug("fetched MS365 events", "source", s.name, "count", len(allEvents))
	return allEvents, nil
}

func (s *MS365Source) fetchPage(ctx context.Context, accessToken, reqURL string) ([]Event, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", `outlook.timezone="UTC", outlook.body-content-type="text"`)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("graph API error: status %d: %s", resp.StatusCode, string(body))
	}

	var graphResp graphCalendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&graphResp); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}

	events := make([]Event, 0, len(graphResp.Value))
	for _, ge := range graphResp.Value {
		// Free and cancelled events leave the day available.
		if ge.IsCancelled || ge.ShowAs == "free" {
			continue
		}

		event, err := s.convertEvent(ge)
		if err != nil {
			slog.Warn("skip event conversion error", "id", ge.ID, "error", err)
			continue
		}
		events = append(events, event)
	}

	return events, graphResp.NextLink, nil
}

func (s *MS365Source) convertEvent(ge graphEvent) (Event, error) {
	event := Event{
		UID:         ge.ID,
		Summary:     ge.Subject,
		Description: ge.BodyPreview,
		Source:      s.name,
		AllDay:      ge.IsAllDay,
	}

	start, err := parseGraphDateTime(ge.Start, ge.IsAllDay)
	if err != nil {
		return event, fmt.Errorf("parse start: %w", err)
	}
	end, err := parseGraphDateTime(ge.End, ge.IsAllDay)
	if err != nil {
		return event, fmt.Errorf("parse end: %w", err)
	}
	event.Start, event.End = start, end

	if ge.Location != nil {
		event.Location = ge.Location.DisplayName
	}
	if ge.Organizer != nil {
		event.Organizer = ge.Organizer.EmailAddress.Address
	}

	return event, nil
}

// parseGraphDateTime parses a Graph API datetime value. Timed values are
// UTC as requested via the Prefer header. All-day values name a calendar
// day and are placed at local midnight so they cover the right days.
func parseGraphDateTime(gdt graphDateTime, allDay bool) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05.0000000",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}

	for _, format := range formats {
		t, err := time.ParseInLocation(format, gdt.DateTime, time.UTC)
		if err != nil {
			continue
		}
		if allDay {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("cannot parse datetime: %s", gdt.DateTime)
}
