package tty

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/grid"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/selection"
	"github.com/cpuguy83/calpick/internal/ui"
)

// cellWidth is the number of columns one day takes.
const cellWidth = 4

type styles struct {
	title      lipgloss.Style
	weekday    lipgloss.Style
	day        lipgloss.Style
	otherMonth lipgloss.Style
	today      lipgloss.Style
	disabled   lipgloss.Style
	selected   lipgloss.Style
	inRange    lipgloss.Style
	hoverRange lipgloss.Style
	label      lipgloss.Style
	value      lipgloss.Style
	status     lipgloss.Style
	stale      lipgloss.Style
	help       lipgloss.Style
	frame      lipgloss.Style
}

// newStyles builds the styles for out's color profile.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	accent := lipgloss.AdaptiveColor{Light: "#1c71d8", Dark: "#78aeed"}
	muted := lipgloss.AdaptiveColor{Light: "#9a9996", Dark: "#77767b"}

	return styles{
		title:      r.NewStyle().Bold(true),
		weekday:    r.NewStyle().Foreground(muted),
		day:        r.NewStyle(),
		otherMonth: r.NewStyle().Foreground(muted),
		today:      r.NewStyle().Bold(true).Foreground(accent),
		disabled:   r.NewStyle().Faint(true).Strikethrough(true),
		selected:   r.NewStyle().Bold(true).Reverse(true),
		inRange:    r.NewStyle().Background(lipgloss.AdaptiveColor{Light: "#d0e1f9", Dark: "#1e3a5f"}),
		hoverRange: r.NewStyle().Underline(true),
		label:      r.NewStyle().Foreground(muted),
		value:      r.NewStyle().Bold(true),
		status:     r.NewStyle().Foreground(muted),
		stale:      r.NewStyle().Foreground(lipgloss.Color("3")),
		help:       r.NewStyle().Foreground(muted).Faint(true),
		frame:      r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// view is everything render needs besides the picker snapshot.
type view struct {
	cursor     date.Date
	status     string
	stale      bool
	startLabel string
	endLabel   string
}

// render draws the picker as a block of lines separated by "\n".
func (st styles) render(s picker.Snapshot, v view) string {
	width := grid.Columns * cellWidth

	var rows []string
	rows = append(rows, lipgloss.PlaceHorizontal(width, lipgloss.Center, st.title.Render("‹ "+ui.MonthTitle(s)+" ›")))

	var header strings.Builder
	for _, name := range ui.WeekdayHeaders(s.Locale) {
		header.WriteString(st.weekday.Render(fmt.Sprintf("%*s", cellWidth, name)))
	}
	rows = append(rows, header.String())

	var cursorCell *grid.Cell
	for _, week := range grid.Weeks(s.Cells) {
		var line strings.Builder
		for i := range week {
			c := &week[i]
			if c.Date == v.cursor {
				cursorCell = c
			}
			line.WriteString(st.cell(*c, c.Date == v.cursor))
		}
		rows = append(rows, line.String())
	}

	rows = append(rows, "")
	rows = append(rows, st.inputs(s, v))

	if cursorCell != nil && cursorCell.HasPrice {
		rows = append(rows, st.label.Render(v.cursor.String()+": ")+st.value.Render(cursorCell.Price))
	}

	if status := ui.StatusLine(v.status, s.State); status != "" {
		if v.stale {
			rows = append(rows, st.stale.Render("⚠ "+status))
		} else {
			rows = append(rows, st.status.Render(status))
		}
	}

	rows = append(rows, st.help.Render("←↑↓→ move · enter pick · [ ] month · r reset · q quit"))

	return st.frame.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// cell renders one day. The cursor day is bracketed.
func (st styles) cell(c grid.Cell, cursor bool) string {
	text := fmt.Sprintf(" %2d ", c.DayNumber)
	if cursor {
		text = fmt.Sprintf("[%2d]", c.DayNumber)
	}

	style := st.day
	switch {
	case c.IsSelected:
		style = st.selected
	case c.IsDisabled:
		style = st.disabled
	case c.IsInRange:
		style = st.inRange
	case c.IsHoverRange:
		style = st.hoverRange
	case c.IsToday:
		style = st.today
	case !c.IsCurrentMonth:
		style = st.otherMonth
	}
	return style.Render(text)
}

// inputs renders the bound start and end values.
func (st styles) inputs(s picker.Snapshot, v view) string {
	field := func(label, value string) string {
		if value == "" {
			value = "—"
		}
		return st.label.Render(label+": ") + st.value.Render(value)
	}

	line := field(v.startLabel, s.Start)
	if s.State.Mode == selection.Range {
		line += "   " + field(v.endLabel, s.End)
	}
	return line
}
