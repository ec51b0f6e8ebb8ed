package calendar

import (
	"testing"
	"time"

	"github.com/cpuguy83/calpick/internal/date"
)

func TestIsEffectivelyAllDay(t *testing.T) {
	loc := time.Local

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{
			name:  "single day midnight to midnight",
			start: time.Date(2026, 2, 17, 0, 0, 0, 0, loc),
			end:   time.Date(2026, 2, 18, 0, 0, 0, 0, loc),
			want:  true,
		},
		{
			name:  "multi-day midnight to midnight (5 days)",
			start: time.Date(2026, 2, 16, 0, 0, 0, 0, loc),
			end:   time.Date(2026, 2, 21, 0, 0, 0, 0, loc),
			want:  true,
		},
		{
			name:  "start not midnight",
			start: time.Date(2026, 2, 17, 9, 0, 0, 0, loc),
			end:   time.Date(2026, 2, 18, 0, 0, 0, 0, loc),
			want:  false,
		},
		{
			name:  "end not midnight",
			start: time.Date(2026, 2, 17, 0, 0, 0, 0, loc),
			end:   time.Date(2026, 2, 18, 17, 0, 0, 0, loc),
			want:  false,
		},
		{
			name:  "same time (zero duration)",
			start: time.Date(2026, 2, 17, 0, 0, 0, 0, loc),
			end:   time.Date(2026, 2, 17, 0, 0, 0, 0, loc),
			want:  false,
		},
		{
			name:  "end before start",
			start: time.Date(2026, 2, 18, 0, 0, 0, 0, loc),
			end:   time.Date(2026, 2, 17, 0, 0, 0, 0, loc),
			want:  false,
		},
		{
			name:  "start has seconds",
			start: time.Date(2026, 2, 17, 0, 0, 1, 0, loc),
			end:   time.Date(2026, 2, 18, 0, 0, 0, 0, loc),
			want:  false,
		},
		{
			name:  "normal timed event",
			start: time.Date(2026, 2, 17, 10, 30, 0, 0, loc),
			end:   time.Date(2026, 2, 17, 11, 30, 0, 0, loc),
			want:  false,
		},
		{
			name:  "non-local timezone midnight not local midnight",
			start: time.Date(2026, 2, 17, 5, 0, 0, 0, loc), // 5am local
			end:   time.Date(2026, 2, 18, 5, 0, 0, 0, loc), // 5am local
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isEffectivelyAllDay(tt.start, tt.end)
			if got != tt.want {
				t.Errorf("isEffectivelyAllDay(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestEventDays(t *testing.T) {
	loc := time.Local

	tests := []struct {
		name  string
		event Event
		want  []string
	}{
		{
			name: "timed event within a day",
			event: Event{
				Start: time.Date(2023, 5, 10, 9, 0, 0, 0, loc),
				End:   time.Date(2023, 5, 10, 10, 0, 0, 0, loc),
			},
			want: []string{"2023-05-10"},
		},
		{
			name: "overnight event",
			event: Event{
				Start: time.Date(2023, 5, 10, 22, 0, 0, 0, loc),
				End:   time.Date(2023, 5, 11, 2, 0, 0, 0, loc),
			},
			want: []string{"2023-05-10", "2023-05-11"},
		},
		{
			name: "all-day end is exclusive",
			event: Event{
				Start:  time.Date(2023, 5, 10, 0, 0, 0, 0, loc),
				End:    time.Date(2023, 5, 13, 0, 0, 0, 0, loc),
				AllDay: true,
			},
			want: []string{"2023-05-10", "2023-05-11", "2023-05-12"},
		},
		{
			name: "zero duration still occupies its day",
			event: Event{
				Start: time.Date(2023, 5, 10, 12, 0, 0, 0, loc),
				End:   time.Date(2023, 5, 10, 12, 0, 0, 0, loc),
			},
			want: []string{"2023-05-10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for d := range tt.event.Days() {
				got = append(got, d.String())
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Days() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Days()[%d] = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestEventOverlaps(t *testing.T) {
	e := Event{
		Start: time.Date(2023, 5, 10, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 5, 10, 10, 0, 0, 0, time.UTC),
	}
	day := date.MustParse("2023-05-10")

	if !e.Overlaps(day.Time(), day.AddDays(1).Time()) {
		t.Errorf("event should overlap its own day")
	}
	if e.Overlaps(e.End, e.End.Add(time.Hour)) {
		t.Errorf("event must not overlap a window starting at its end")
	}
}
