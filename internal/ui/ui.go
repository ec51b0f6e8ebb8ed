// Package ui provides the views that render a picker: a GTK popup,
// dmenu-style launchers, or a terminal grid.
package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cpuguy83/calpick/internal/format"
	"github.com/cpuguy83/calpick/internal/grid"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/selection"
)

// ErrCancelled is returned by Run when the user dismisses the view without
// completing a selection.
var ErrCancelled = errors.New("selection cancelled")

// View renders a picker and turns user gestures into picker calls.
type View interface {
	// Init initializes the view. Must be called before other methods.
	Init() error

	// Show displays the view.
	Show()

	// Hide hides the view.
	Hide()

	// Render updates the view from a picker snapshot. It may be called from
	// any goroutine.
	Render(s picker.Snapshot)

	// SetStatus sets the availability line shown under the grid. stale
	// marks availability that could not be refreshed.
	SetStatus(status string, stale bool)

	// Run blocks until the user finishes, dismisses the view, or ctx is
	// cancelled.
	Run(ctx context.Context) error
}

// Config holds UI configuration.
type Config struct {
	Title      string
	StartLabel string
	EndLabel   string

	// HoverDismissDelay is how long the popup stays up after losing focus
	// once the selection is complete (0 = never auto-dismiss).
	HoverDismissDelay time.Duration
}

// CSS classes applied to a day cell.
const (
	ClassDay        = "day"
	ClassOtherMonth = "other-month"
	ClassToday      = "today"
	ClassDisabled   = "disabled"
	ClassSelected   = "selected"
	ClassInRange    = "in-range"
	ClassHoverRange = "hover-range"
	ClassHasPrice   = "has-price"
)

// AllCellClasses lists every class CellClasses can return.
var AllCellClasses = []string{
	ClassDay, ClassOtherMonth, ClassToday, ClassDisabled,
	ClassSelected, ClassInRange, ClassHoverRange, ClassHasPrice,
}

// CellClasses returns the style classes for c.
func CellClasses(c grid.Cell) []string {
	classes := []string{ClassDay}
	if !c.IsCurrentMonth {
		classes = append(classes, ClassOtherMonth)
	}
	if c.IsToday {
		classes = append(classes, ClassToday)
	}
	if c.IsDisabled {
		classes = append(classes, ClassDisabled)
	}
	if c.IsSelected {
		classes = append(classes, ClassSelected)
	}
	if c.IsInRange {
		classes = append(classes, ClassInRange)
	}
	if c.IsHoverRange {
		classes = append(classes, ClassHoverRange)
	}
	if c.HasPrice {
		classes = append(classes, ClassHasPrice)
	}
	return classes
}

// MonthTitle returns the header text for the displayed month, e.g. "May 2023".
func MonthTitle(s picker.Snapshot) string {
	l := locale(s)
	return fmt.Sprintf("%s %d", l.Months[s.Month.Month-1], s.Month.Year)
}

// WeekdayHeaders returns the column headers, Monday first.
func WeekdayHeaders(l *format.Locale) [grid.Columns]string {
	if l == nil {
		l = &format.English
	}
	var out [grid.Columns]string
	for i := range out {
		out[i] = l.Weekdays[(i+1)%7]
	}
	return out
}

// Nights returns how many nights a complete range spans, or 0.
func Nights(st selection.State) int {
	start, ok1 := st.Start()
	end, ok2 := st.End()
	if !ok1 || !ok2 {
		return 0
	}
	return start.DaysUntil(end)
}

// StatusLine appends the night count of a complete range to status.
func StatusLine(status string, st selection.State) string {
	n := Nights(st)
	if n == 0 {
		return status
	}
	unit := "nights"
	if n == 1 {
		unit = "night"
	}
	nights := fmt.Sprintf("%d %s", n, unit)
	if status == "" {
		return nights
	}
	return nights + " · " + status
}

// InputText returns the text for a bound input, falling back to its label.
func InputText(value, label string) string {
	if value == "" {
		return label
	}
	return value
}

func locale(s picker.Snapshot) *format.Locale {
	if s.Locale == nil {
		return &format.English
	}
	return s.Locale
}
