package selection

import (
	"slices"

	"github.com/cpuguy83/calpick/internal/date"
)

// DisabledSet is a set of dates that can never be selected.
// The nil set is valid and empty.
type DisabledSet map[date.Date]struct{}

// NewDisabledSet returns a set containing dates.
func NewDisabledSet(dates ...date.Date) DisabledSet {
	s := make(DisabledSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// Contains reports whether d is disabled.
func (s DisabledSet) Contains(d date.Date) bool {
	_, ok := s[d]
	return ok
}

// Add disables d. s must be non-nil.
func (s DisabledSet) Add(d date.Date) {
	s[d] = struct{}{}
}

// Len returns the number of disabled dates.
func (s DisabledSet) Len() int {
	return len(s)
}

// Union returns a new set holding the members of s and every other set.
func (s DisabledSet) Union(others ...DisabledSet) DisabledSet {
	out := make(DisabledSet, len(s))
	for d := range s {
		out[d] = struct{}{}
	}
	for _, o := range others {
		for d := range o {
			out[d] = struct{}{}
		}
	}
	return out
}

// Dates returns the members in ascending order.
func (s DisabledSet) Dates() []date.Date {
	out := make([]date.Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	slices.SortFunc(out, date.Date.Compare)
	return out
}
