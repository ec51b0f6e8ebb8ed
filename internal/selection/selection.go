// Package selection implements the date-selection state machine.
//
// Every operation is a pure function from (State, input) to a new State.
// Callers own the State value and must serialize transitions; the order of
// clicks matters.
package selection

import (
	"fmt"
	"strings"

	"github.com/cpuguy83/calpick/internal/date"
)

// Mode is the selection mode of a picker. It never changes after construction.
type Mode int

const (
	// Single selects exactly one date.
	Single Mode = iota
	// Range selects an ordered start/end pair.
	Range
)

// String returns the config spelling of m.
func (m Mode) String() string {
	switch m {
	case Single:
		return "single"
	case Range:
		return "range"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "single" or "range" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return Single, nil
	case "range", "":
		return Range, nil
	default:
		return Range, fmt.Errorf("unknown selection mode %q (use single or range)", s)
	}
}

// State is the current selection.
//
// In Range mode Selected holds zero, one or two dates in ascending order.
// In Single mode it holds zero or one. Hover is only set in Range mode while
// exactly one date is selected.
type State struct {
	Mode     Mode
	Selected []date.Date
	Hover    *date.Date
}

// Initialize returns an empty selection for mode.
func Initialize(mode Mode) State {
	return State{Mode: mode}
}

// Start returns the first selected date, if any.
func (s State) Start() (date.Date, bool) {
	if len(s.Selected) == 0 {
		return date.Date{}, false
	}
	return s.Selected[0], true
}

// End returns the second selected date, if any.
func (s State) End() (date.Date, bool) {
	if len(s.Selected) < 2 {
		return date.Date{}, false
	}
	return s.Selected[1], true
}

// Equal reports whether s and o describe the same selection.
func (s State) Equal(o State) bool {
	if s.Mode != o.Mode || len(s.Selected) != len(o.Selected) {
		return false
	}
	for i := range s.Selected {
		if s.Selected[i] != o.Selected[i] {
			return false
		}
	}
	switch {
	case s.Hover == nil && o.Hover == nil:
		return true
	case s.Hover == nil || o.Hover == nil:
		return false
	default:
		return *s.Hover == *o.Hover
	}
}

// IsSelected reports whether d is one of the selected endpoints.
func (s State) IsSelected(d date.Date) bool {
	for _, sel := range s.Selected {
		if sel == d {
			return true
		}
	}
	return false
}

func (s State) String() string {
	parts := make([]string, len(s.Selected))
	for i, d := range s.Selected {
		parts[i] = d.String()
	}
	out := fmt.Sprintf("%s[%s]", s.Mode, strings.Join(parts, ","))
	if s.Hover != nil {
		out += " hover=" + s.Hover.String()
	}
	return out
}

// Activate applies a click on clicked.
//
// Disabled dates leave the state unchanged. In Single mode the click replaces
// any prior selection. In Range mode:
//   - nothing selected: clicked becomes the start
//   - one selected (a): a later click completes [a, clicked], an earlier click
//     completes [clicked, a], clicking a again is a no-op
//   - two selected: the selection restarts at clicked
//
// Any click that changes the selection clears the hover preview.
func Activate(s State, clicked date.Date, disabled DisabledSet) State {
	if disabled.Contains(clicked) {
		return s
	}

	if s.Mode == Single {
		return State{Mode: Single, Selected: []date.Date{clicked}}
	}

	switch len(s.Selected) {
	case 1:
		a := s.Selected[0]
		switch {
		case clicked.After(a):
			return State{Mode: Range, Selected: []date.Date{a, clicked}}
		case clicked.Before(a):
			return State{Mode: Range, Selected: []date.Date{clicked, a}}
		default:
			return s
		}
	default:
		return State{Mode: Range, Selected: []date.Date{clicked}}
	}
}

// Hover sets the hover preview to d. It is a no-op unless s is in Range mode
// with exactly one selected date.
func Hover(s State, d date.Date) State {
	if s.Mode != Range || len(s.Selected) != 1 {
		return s
	}
	if s.Hover != nil && *s.Hover == d {
		return s
	}
	next := s
	next.Selected = cloneDates(s.Selected)
	next.Hover = &d
	return next
}

// ClearHover removes any hover preview.
func ClearHover(s State) State {
	if s.Hover == nil {
		return s
	}
	next := s
	next.Selected = cloneDates(s.Selected)
	next.Hover = nil
	return next
}

// IsComplete reports whether the selection is finished: one date in Single
// mode or two in Range mode.
func IsComplete(s State) bool {
	if s.Mode == Single {
		return len(s.Selected) == 1
	}
	return len(s.Selected) == 2
}

func cloneDates(in []date.Date) []date.Date {
	if in == nil {
		return nil
	}
	out := make([]date.Date, len(in))
	copy(out, in)
	return out
}
