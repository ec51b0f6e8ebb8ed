package filter

import (
	"errors"
	"testing"

	"github.com/cpuguy83/calpick/internal/calendar"
	"github.com/cpuguy83/calpick/internal/config"
)

var events = []calendar.Event{
	{UID: "1", Summary: "Vacation", Source: "home"},
	{UID: "2", Summary: "Team standup", Organizer: "lead@example.com", Source: "work/Main"},
	{UID: "3", Summary: "OOO: conference", Location: "Berlin", Source: "work/Main"},
	{UID: "4", Summary: "Dentist", Description: "bring forms", Source: "home"},
}

func uids(evs []calendar.Event) string {
	var s string
	for _, e := range evs {
		s += e.UID
	}
	return s
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.FilterConfig
		want string
	}{
		{
			name: "no rules passes everything",
			want: "1234",
		},
		{
			name: "contains case insensitive",
			cfg:  config.FilterConfig{Rules: []config.FilterRule{{Field: "title", Contains: "STANDUP", CaseInsensitive: true}}},
			want: "2",
		},
		{
			name: "prefix",
			cfg:  config.FilterConfig{Rules: []config.FilterRule{{Field: "title", Prefix: "OOO"}}},
			want: "3",
		},
		{
			name: "suffix on source",
			cfg:  config.FilterConfig{Rules: []config.FilterRule{{Field: "calendar", Suffix: "/Main"}}},
			want: "23",
		},
		{
			name: "exact",
			cfg:  config.FilterConfig{Rules: []config.FilterRule{{Field: "summary", Exact: "Dentist"}}},
			want: "4",
		},
		{
			name: "regex",
			cfg:  config.FilterConfig{Rules: []config.FilterRule{{Field: "title", Regex: "^(vacation|ooo)", CaseInsensitive: true}}},
			want: "13",
		},
		{
			name: "or mode",
			cfg: config.FilterConfig{Mode: "or", Rules: []config.FilterRule{
				{Field: "location", Exact: "Berlin"},
				{Field: "description", Contains: "forms"},
			}},
			want: "34",
		},
		{
			name: "and mode",
			cfg: config.FilterConfig{Mode: "and", Rules: []config.FilterRule{
				{Field: "source", Prefix: "work"},
				{Field: "organizer", Suffix: "@example.com"},
			}},
			want: "2",
		},
		{
			name: "unknown field never matches",
			cfg:  config.FilterConfig{Rules: []config.FilterRule{{Field: "color", Contains: "e"}}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if got := uids(f.Apply(events)); got != tt.want {
				t.Errorf("Apply() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(config.FilterConfig{Rules: []config.FilterRule{{Field: "title"}}}); !errors.Is(err, ErrNoPattern) {
		t.Errorf("expected ErrNoPattern, got %v", err)
	}
	if _, err := New(config.FilterConfig{Rules: []config.FilterRule{{Field: "title", Regex: "("}}}); err == nil {
		t.Errorf("expected error for invalid regex")
	}
	if _, err := New(config.FilterConfig{Mode: "xor"}); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}

func TestNilFilterPassesThrough(t *testing.T) {
	var f *Filter
	if got := uids(f.Apply(events)); got != "1234" {
		t.Errorf("Apply() = %q", got)
	}
}
