// Package grid projects a selection onto the 6x7 month grid a view renders.
package grid

import (
	"iter"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/price"
	"github.com/cpuguy83/calpick/internal/selection"
)

const (
	// Columns is the number of days per grid row (Monday first).
	Columns = 7
	// Rows is the number of weeks in a grid.
	Rows = 6
	// Size is the number of cells in every projected month.
	Size = Columns * Rows
)

// Cell is the render description of a single grid day.
type Cell struct {
	Date           date.Date
	DayNumber      int
	IsCurrentMonth bool
	IsToday        bool
	IsDisabled     bool
	IsSelected     bool
	IsInRange      bool
	IsHoverRange   bool
	Price          string
	HasPrice       bool
}

// Option adjusts a projection.
type Option func(*options)

type options struct {
	today *date.Date
}

// WithToday marks d as today in the projected cells. Projections never read
// the wall clock on their own.
func WithToday(d date.Date) Option {
	return func(o *options) {
		o.today = &d
	}
}

// Start returns the first date shown in the grid for month: the Monday on or
// before the first of the month.
func Start(month date.Date) date.Date {
	return month.FirstOfMonth().MondayOnOrBefore()
}

// Cells lazily yields the Size cells of month's grid in row-major order.
// None of the inputs are modified.
func Cells(month date.Date, s selection.State, disabled selection.DisabledSet, prices price.Table, opts ...Option) iter.Seq[Cell] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	first := month.FirstOfMonth()
	start := Start(first)
	rng := newHighlight(s)

	return func(yield func(Cell) bool) {
		for i := 0; i < Size; i++ {
			day := start.AddDays(i)
			c := Cell{
				Date:           day,
				DayNumber:      day.Day,
				IsCurrentMonth: day.SameMonth(first),
				IsToday:        o.today != nil && *o.today == day,
				IsDisabled:     disabled.Contains(day),
				IsSelected:     s.IsSelected(day),
			}
			if !c.IsDisabled {
				c.IsInRange = rng.inRange(day)
				c.IsHoverRange = rng.inHoverRange(day)
			}
			c.Price, c.HasPrice = prices.Lookup(day)

			if !yield(c) {
				return
			}
		}
	}
}

// Project returns all cells of month's grid.
func Project(month date.Date, s selection.State, disabled selection.DisabledSet, prices price.Table, opts ...Option) []Cell {
	cells := make([]Cell, 0, Size)
	for c := range Cells(month, s, disabled, prices, opts...) {
		cells = append(cells, c)
	}
	return cells
}

// Weeks splits cells into rows of Columns.
func Weeks(cells []Cell) [][]Cell {
	var rows [][]Cell
	for i := 0; i < len(cells); i += Columns {
		end := min(i+Columns, len(cells))
		rows = append(rows, cells[i:end])
	}
	return rows
}

// InRange reports whether d lies strictly between the confirmed endpoints lo and hi.
func InRange(lo, hi, d date.Date) bool {
	return lo.Before(d) && d.Before(hi)
}

// InHoverRange reports whether d is part of a hover preview spanning lo..hi.
// The preview excludes its lower bound and includes its upper bound.
func InHoverRange(lo, hi, d date.Date) bool {
	return lo.Before(d) && !d.After(hi)
}

// highlight caches the range bounds of a selection for per-cell checks.
type highlight struct {
	confirmed bool
	preview   bool
	lo, hi    date.Date
}

func newHighlight(s selection.State) highlight {
	switch {
	case len(s.Selected) == 2:
		return highlight{confirmed: true, lo: s.Selected[0], hi: s.Selected[1]}
	case len(s.Selected) == 1 && s.Hover != nil:
		return highlight{
			preview: true,
			lo:      date.Min(s.Selected[0], *s.Hover),
			hi:      date.Max(s.Selected[0], *s.Hover),
		}
	default:
		return highlight{}
	}
}

func (h highlight) inRange(d date.Date) bool {
	return h.confirmed && InRange(h.lo, h.hi, d)
}

func (h highlight) inHoverRange(d date.Date) bool {
	return h.preview && InHoverRange(h.lo, h.hi, d)
}
