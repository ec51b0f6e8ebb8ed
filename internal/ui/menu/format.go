package menu

import (
	"fmt"
	"strings"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/format"
	"github.com/cpuguy83/calpick/internal/grid"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/ui"
)

const (
	prevMonthLine  = "← Previous month"
	nextMonthLine  = "Next month →"
	moreMonthsLine = "↓ Show another month"
	clearLine      = "✕ Clear selection"
)

// formatMonth formats the listed months for the launcher.
// Returns lines to display and a map of trimmed line -> date for the
// selectable days. Days outside their month are left out.
func formatMonth(s picker.Snapshot, status string) ([]string, map[string]date.Date) {
	l := s.Locale
	if l == nil {
		l = &format.English
	}

	months := s.Months
	if len(months) == 0 {
		months = []grid.Month{{Month: s.Month, Cells: s.Cells}}
	}

	var lines []string
	dayMap := make(map[string]date.Date)

	for i, m := range months {
		lines = append(lines, fmt.Sprintf("━━━━ %s %d ━━━━", l.Months[m.Month.Month-1], m.Month.Year))
		if i == 0 {
			lines = append(lines, prevMonthLine)
		}
		for _, c := range m.Cells {
			if !c.IsCurrentMonth {
				continue
			}
			line := formatDayLine(c, l)
			lines = append(lines, line)
			// Store with trimmed key since dmenu may strip leading whitespace
			dayMap[strings.TrimSpace(line)] = c.Date
		}
	}

	lines = append(lines, moreMonthsLine, nextMonthLine)

	if len(s.State.Selected) > 0 {
		lines = append(lines, "")
		lines = append(lines, clearLine)
	}

	if status = ui.StatusLine(status, s.State); status != "" {
		lines = append(lines, "")
		lines = append(lines, fmt.Sprintf("━━━━ %s ━━━━", status))
	}

	return lines, dayMap
}

// formatDayLine formats a single day, e.g. "● Wed 10 May  $120 (today)".
func formatDayLine(c grid.Cell, l *format.Locale) string {
	marker := "  "
	switch {
	case c.IsSelected:
		marker = "● "
	case c.IsDisabled:
		marker = "✗ "
	case c.IsInRange, c.IsHoverRange:
		marker = "· "
	}

	line := fmt.Sprintf("%s%s %2d %s", marker, l.Weekdays[c.Date.Weekday()], c.DayNumber, l.Months[c.Date.Month-1])
	if c.HasPrice {
		line += "  " + c.Price
	}
	if c.IsToday {
		line += " (today)"
	}
	if c.IsDisabled {
		line += " (unavailable)"
	}
	return line
}

// promptFor returns the launcher prompt: the label of the input the next
// pick fills.
func promptFor(s picker.Snapshot, startLabel, endLabel string) string {
	if len(s.State.Selected) == 1 && !s.Complete {
		return endLabel
	}
	return startLabel
}

// selectionText returns the completed selection as a single line.
func selectionText(s picker.Snapshot) string {
	if s.End == "" {
		return s.Start
	}
	return s.Start + " → " + s.End
}

// isSeparator returns true if the line is a visual separator (not selectable).
func isSeparator(line string) bool {
	return strings.HasPrefix(line, "━━━━") || line == ""
}
