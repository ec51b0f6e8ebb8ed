package calendar

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	ics "github.com/emersion/go-ical"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/selection"
)

// Merge combines events from multiple sources into a single slice sorted by
// start time.
func Merge(eventSets ...[]Event) []Event {
	var all []Event
	for _, events := range eventSets {
		all = append(all, events...)
	}

	slices.SortStableFunc(all, func(a, b Event) int {
		return a.Start.Compare(b.Start)
	})

	return all
}

// BusyDays returns the days in [from, to] that at least one event occupies.
func BusyDays(events []Event, from, to date.Date) selection.DisabledSet {
	busy := selection.NewDisabledSet()
	for _, event := range events {
		for d := range event.Days() {
			if d.After(to) {
				break
			}
			if d.Before(from) {
				continue
			}
			busy.Add(d)
		}
	}
	return busy
}

// WriteSelectionICS writes the chosen dates as a single all-day event to
// path. It writes to a temp file first, then renames to the final path.
func WriteSelectionICS(path string, start, end date.Date, summary string) error {
	if end.Before(start) {
		start, end = end, start
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	cal := ics.NewCalendar()
	cal.Props.SetText(ics.PropVersion, "2.0")
	cal.Props.SetText(ics.PropProductID, "-//calpick//calpick//EN")

	comp := ics.NewComponent(ics.CompEvent)
	comp.Props.SetText(ics.PropUID, fmt.Sprintf("calpick-%s-%s", start, end))
	comp.Props.SetText(ics.PropSummary, summary)
	comp.Props.SetDateTime(ics.PropDateTimeStamp, time.Now().UTC())
	// All-day DTEND is exclusive.
	comp.Props.SetDate(ics.PropDateTimeStart, start.Time())
	comp.Props.SetDate(ics.PropDateTimeEnd, end.AddDays(1).Time())
	cal.Children = append(cal.Children, comp)

	var buf bytes.Buffer
	if err := ics.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("encode ICS: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
