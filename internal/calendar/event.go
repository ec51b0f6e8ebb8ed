// Package calendar reads availability from calendar sources and turns busy
// events into days the picker must not offer.
package calendar

import (
	"context"
	"iter"
	"time"

	"github.com/cpuguy83/calpick/internal/date"
)

// Event represents a calendar event.
type Event struct {
	// UID is the unique identifier for this event.
	UID string

	// Summary is the event title.
	Summary string

	// Description is the full event description/body.
	Description string

	// Location is the event location.
	Location string

	// Start is when the event begins.
	Start time.Time

	// End is when the event ends. For all-day events it is exclusive.
	End time.Time

	// AllDay indicates this is an all-day event.
	AllDay bool

	// Organizer is the email of the event organizer.
	Organizer string

	// Source is the name of the calendar source this event came from.
	Source string
}

// Duration returns the duration of the event.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Overlaps reports whether the event intersects [start, end).
func (e *Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// Days yields every local calendar day the event occupies. An event ending
// exactly at midnight does not occupy the day that begins then.
func (e *Event) Days() iter.Seq[date.Date] {
	return func(yield func(date.Date) bool) {
		first := date.FromTime(e.Start.In(time.Local))
		last := first
		if e.End.After(e.Start) {
			last = date.FromTime(e.End.In(time.Local).Add(-time.Nanosecond))
		}
		for d := first; !d.After(last); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

// Source is the interface that calendar sources must implement.
type Source interface {
	// Name returns the display name of this calendar source.
	Name() string

	// Fetch retrieves events overlapping [start, end).
	Fetch(ctx context.Context, start, end time.Time) ([]Event, error)
}

// isEffectivelyAllDay reports whether a timed event spans whole local days,
// as some servers encode all-day events with midnight datetimes.
func isEffectivelyAllDay(start, end time.Time) bool {
	if !end.After(start) {
		return false
	}
	start = start.In(time.Local)
	end = end.In(time.Local)
	return isMidnight(start) && isMidnight(end)
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}
