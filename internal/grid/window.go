package grid

import (
	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/price"
	"github.com/cpuguy83/calpick/internal/selection"
)

// Month is one projected month in a Window.
type Month struct {
	Month date.Date
	Cells []Cell
}

// Window tracks a run of consecutive months for views that list more than
// one month and grow the list on request. It only records which months are
// loaded; cells are projected on demand.
type Window struct {
	first date.Date
	count int
}

// NewWindow returns a window of n months starting at month.
func NewWindow(month date.Date, n int) *Window {
	return &Window{first: month.FirstOfMonth(), count: max(n, 1)}
}

// Len returns the number of loaded months.
func (w *Window) Len() int { return w.count }

// Extend appends n months to the end of the window and returns the newly added months.
func (w *Window) Extend(n int) []date.Date {
	if n <= 0 {
		return nil
	}
	added := make([]date.Date, n)
	for i := range n {
		added[i] = w.first.AddMonths(w.count + i)
	}
	w.count += n
	return added
}

// Months returns the loaded months in order.
func (w *Window) Months() []date.Date {
	out := make([]date.Date, w.count)
	for i := range w.count {
		out[i] = w.first.AddMonths(i)
	}
	return out
}

// Project projects every loaded month.
func (w *Window) Project(s selection.State, disabled selection.DisabledSet, prices price.Table, opts ...Option) []Month {
	months := w.Months()
	out := make([]Month, len(months))
	for i, m := range months {
		out[i] = Month{Month: m, Cells: Project(m, s, disabled, prices, opts...)}
	}
	return out
}
