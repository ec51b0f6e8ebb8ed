// Package picker ties the selection state machine, the month grid and the
// formatter together into a single widget instance that views drive.
package picker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/format"
	"github.com/cpuguy83/calpick/internal/grid"
	"github.com/cpuguy83/calpick/internal/price"
	"github.com/cpuguy83/calpick/internal/selection"
)

// SwipeThreshold is the minimum horizontal travel, in pixels, for a swipe to
// change the month.
const SwipeThreshold = 50

// Snapshot is everything a view needs to render the picker.
type Snapshot struct {
	State    selection.State
	Month    date.Date
	Cells    []grid.Cell
	Start    string // formatted start (or single) date, empty if unset
	End      string // formatted end date, empty if unset
	Complete bool
	Visible  bool
	Locale   *format.Locale

	// Months holds the displayed month and the ones after it, see WithMonths.
	Months []grid.Month
}

// Picker is one date-picker instance. It owns its selection state and is safe
// for use from multiple goroutines; transitions are applied one at a time.
type Picker struct {
	mu       sync.Mutex
	state    selection.State
	disabled selection.DisabledSet
	prices   price.Table
	pattern  string
	locale   *format.Locale
	month    date.Date
	visible  bool
	span     int
	now      func() time.Time

	// confirmed marks a click that re-picked the completed selection.
	confirmed bool

	onChange   []func(Snapshot)
	onComplete []func(Snapshot)
}

// Option configures a Picker.
type Option func(*Picker)

// WithFormat sets the display pattern for bound inputs.
func WithFormat(pattern string) Option {
	return func(p *Picker) {
		if pattern != "" {
			p.pattern = pattern
		}
	}
}

// WithLocale sets the names used when formatting inputs.
func WithLocale(l *format.Locale) Option {
	return func(p *Picker) {
		p.locale = l
	}
}

// WithMonth sets the initially displayed month.
func WithMonth(month date.Date) Option {
	return func(p *Picker) {
		if !month.IsZero() {
			p.month = month.FirstOfMonth()
		}
	}
}

// WithMonths sets how many consecutive months, starting with the displayed
// one, a snapshot projects into Months. Defaults to 1.
func WithMonths(n int) Option {
	return func(p *Picker) {
		p.span = max(n, 1)
	}
}

// WithDisabled sets the initial disabled dates.
func WithDisabled(disabled selection.DisabledSet) Option {
	return func(p *Picker) {
		p.disabled = disabled
	}
}

// WithPrices sets the initial price annotations.
func WithPrices(prices price.Table) Option {
	return func(p *Picker) {
		p.prices = prices
	}
}

// WithClock sets the clock used to mark today in the grid and to pick the
// initial month. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Picker) {
		p.now = now
	}
}

// New creates a picker in mode.
func New(mode selection.Mode, opts ...Option) *Picker {
	p := &Picker{
		state:   selection.Initialize(mode),
		pattern: format.DefaultPattern,
		locale:  &format.English,
		span:    1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.month.IsZero() {
		p.month = date.FromTime(p.now()).FirstOfMonth()
	}
	return p
}

// OnChange registers fn to be called after every transition that changed
// the picker. fn is called without the picker lock held.
func (p *Picker) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	p.onChange = append(p.onChange, fn)
	p.mu.Unlock()
}

// OnComplete registers fn to be called whenever a click leaves the selection
// complete.
func (p *Picker) OnComplete(fn func(Snapshot)) {
	p.mu.Lock()
	p.onComplete = append(p.onComplete, fn)
	p.mu.Unlock()
}

// Click activates d.
func (p *Picker) Click(d date.Date) {
	p.update(func() bool {
		prev := p.state
		p.state = selection.Activate(p.state, d, p.disabled)
		if p.state.Equal(prev) {
			if !selection.IsComplete(p.state) || p.disabled.Contains(d) {
				slog.Debug("click ignored", "date", d, "state", prev)
				return false
			}
			// Picking the chosen date again confirms it.
			slog.Debug("click confirms selection", "date", d)
			p.confirmed = true
			p.visible = false
			return true
		}
		slog.Debug("click", "date", d, "state", p.state)
		if selection.IsComplete(p.state) {
			p.visible = false
		}
		return true
	})
}

// ClickString activates the ISO date s. Malformed input is ignored.
func (p *Picker) ClickString(s string) {
	d, err := date.Parse(s)
	if err != nil {
		slog.Debug("ignoring click on malformed date", "error", err)
		return
	}
	p.Click(d)
}

// Hover previews the range ending at d.
func (p *Picker) Hover(d date.Date) {
	p.update(func() bool {
		prev := p.state
		p.state = selection.Hover(p.state, d)
		return !p.state.Equal(prev)
	})
}

// HoverString previews the range ending at the ISO date s. Malformed input is ignored.
func (p *Picker) HoverString(s string) {
	d, err := date.Parse(s)
	if err != nil {
		slog.Debug("ignoring hover on malformed date", "error", err)
		return
	}
	p.Hover(d)
}

// Leave clears the hover preview.
func (p *Picker) Leave() {
	p.update(func() bool {
		prev := p.state
		p.state = selection.ClearHover(p.state)
		return !p.state.Equal(prev)
	})
}

// ChangeMonth moves the displayed month by delta months.
func (p *Picker) ChangeMonth(delta int) {
	if delta == 0 {
		return
	}
	p.update(func() bool {
		p.month = p.month.AddMonths(delta)
		return true
	})
}

// ExtendMonths projects n more months after the ones already shown.
func (p *Picker) ExtendMonths(n int) {
	p.update(func() bool {
		w := grid.NewWindow(p.month, p.span)
		if len(w.Extend(n)) == 0 {
			return false
		}
		p.span = w.Len()
		return true
	})
}

// SetMonth displays the month containing d.
func (p *Picker) SetMonth(d date.Date) {
	p.update(func() bool {
		m := d.FirstOfMonth()
		if m == p.month {
			return false
		}
		p.month = m
		return true
	})
}

// Swipe interprets a horizontal touch gesture from startX to endX. A swipe
// left shows the next month, a swipe right the previous one; shorter moves
// are ignored.
func (p *Picker) Swipe(startX, endX float64) {
	switch {
	case endX < startX-SwipeThreshold:
		p.ChangeMonth(1)
	case endX > startX+SwipeThreshold:
		p.ChangeMonth(-1)
	}
}

// Show makes the picker visible.
func (p *Picker) Show() {
	p.update(func() bool {
		if p.visible {
			return false
		}
		p.visible = true
		return true
	})
}

// Hide hides the picker, but only once the selection is complete. It reports
// whether the picker is hidden afterwards.
func (p *Picker) Hide() bool {
	hidden := false
	p.update(func() bool {
		if !selection.IsComplete(p.state) {
			return false
		}
		hidden = true
		if !p.visible {
			return false
		}
		p.visible = false
		return true
	})
	return hidden
}

// Reset clears the selection.
func (p *Picker) Reset() {
	p.update(func() bool {
		if len(p.state.Selected) == 0 && p.state.Hover == nil {
			return false
		}
		p.state = selection.Initialize(p.state.Mode)
		return true
	})
}

// SetDisabled replaces the disabled dates. The current selection is kept.
func (p *Picker) SetDisabled(disabled selection.DisabledSet) {
	p.update(func() bool {
		p.disabled = disabled
		return true
	})
}

// SetDisabledStrings replaces the disabled dates from ISO strings.
func (p *Picker) SetDisabledStrings(values []string) error {
	dates, err := date.ParseAll(values)
	if err != nil {
		return err
	}
	p.SetDisabled(selection.NewDisabledSet(dates...))
	return nil
}

// SetPrices replaces the price annotations.
func (p *Picker) SetPrices(prices price.Table) {
	p.update(func() bool {
		p.prices = prices
		return true
	})
}

// SetFormat changes the display pattern of the bound inputs.
func (p *Picker) SetFormat(pattern string) {
	p.update(func() bool {
		if pattern == "" || pattern == p.pattern {
			return false
		}
		p.pattern = pattern
		return true
	})
}

// State returns the current selection.
func (p *Picker) State() selection.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Month returns the first of the displayed month.
func (p *Picker) Month() date.Date {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.month
}

// Complete reports whether the selection is complete.
func (p *Picker) Complete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return selection.IsComplete(p.state)
}

// Visible reports whether the picker should be shown.
func (p *Picker) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Grid returns the 42 cells of the displayed month.
func (p *Picker) Grid() []grid.Cell {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gridLocked()
}

// Inputs returns the formatted values for the bound start and end inputs.
func (p *Picker) Inputs() (start, end string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputsLocked()
}

// Snapshot returns the full render state.
func (p *Picker) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Picker) inputsLocked() (start, end string) {
	if d, ok := p.state.Start(); ok {
		start = format.FormatLocale(d, p.pattern, p.locale)
	}
	if d, ok := p.state.End(); ok {
		end = format.FormatLocale(d, p.pattern, p.locale)
	}
	return start, end
}

func (p *Picker) snapshotLocked() Snapshot {
	start, end := p.inputsLocked()
	return Snapshot{
		State:    p.state,
		Month:    p.month,
		Cells:    p.gridLocked(),
		Months:   p.monthsLocked(),
		Start:    start,
		End:      end,
		Complete: selection.IsComplete(p.state),
		Visible:  p.visible,
		Locale:   p.locale,
	}
}

func (p *Picker) gridLocked() []grid.Cell {
	return grid.Project(p.month, p.state, p.disabled, p.prices, grid.WithToday(date.FromTime(p.now())))
}

func (p *Picker) monthsLocked() []grid.Month {
	w := grid.NewWindow(p.month, p.span)
	return w.Project(p.state, p.disabled, p.prices, grid.WithToday(date.FromTime(p.now())))
}

// update applies fn under the lock and, if it reports a change, notifies
// listeners with the resulting snapshot.
func (p *Picker) update(fn func() bool) {
	p.mu.Lock()
	prev := p.state
	if !fn() {
		p.mu.Unlock()
		return
	}
	snap := p.snapshotLocked()
	onChange := p.onChange
	var onComplete []func(Snapshot)
	if snap.Complete && (p.confirmed || !prev.Equal(p.state)) {
		onComplete = p.onComplete
	}
	p.confirmed = false
	p.mu.Unlock()

	for _, f := range onChange {
		f(snap)
	}
	for _, f := range onComplete {
		f(snap)
	}
}
