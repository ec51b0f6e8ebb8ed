// Package filter decides which calendar events count as busy time.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cpuguy83/calpick/internal/calendar"
	"github.com/cpuguy83/calpick/internal/config"
)

// MatchType specifies how a filter rule matches.
type MatchType int

const (
	MatchContains MatchType = iota // Substring match (default)
	MatchExact                     // Exact string match
	MatchPrefix                    // Starts with
	MatchSuffix                    // Ends with
	MatchRegex                     // Regular expression
)

// ErrNoPattern is returned for a rule that sets no match pattern.
var ErrNoPattern = errors.New("no match pattern specified (use contains, exact, prefix, suffix, or regex)")

// Filter applies include rules to events. Only matching events block days.
type Filter struct {
	mode  string // "or" or "and"
	rules []rule
}

type rule struct {
	field           string
	matchType       MatchType
	pattern         string         // For non-regex matches
	regex           *regexp.Regexp // For regex matches
	caseInsensitive bool
}

// New creates a new filter from configuration.
func New(cfg config.FilterConfig) (*Filter, error) {
	f := &Filter{mode: cfg.Mode}
	if f.mode == "" {
		f.mode = "or"
	}
	if f.mode != "or" && f.mode != "and" {
		return nil, fmt.Errorf("filter mode %q: must be or/and", cfg.Mode)
	}

	for i, r := range cfg.Rules {
		compiled, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		f.rules = append(f.rules, compiled)
	}

	return f, nil
}

func compileRule(r config.FilterRule) (rule, error) {
	compiled := rule{
		field:           r.Field,
		caseInsensitive: r.CaseInsensitive,
	}

	switch {
	case r.Regex != "":
		compiled.matchType = MatchRegex
		pattern := r.Regex
		if r.CaseInsensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return compiled, fmt.Errorf("invalid regex %q: %w", r.Regex, err)
		}
		compiled.regex = re
		return compiled, nil
	case r.Exact != "":
		compiled.matchType, compiled.pattern = MatchExact, r.Exact
	case r.Prefix != "":
		compiled.matchType, compiled.pattern = MatchPrefix, r.Prefix
	case r.Suffix != "":
		compiled.matchType, compiled.pattern = MatchSuffix, r.Suffix
	case r.Contains != "":
		compiled.matchType, compiled.pattern = MatchContains, r.Contains
	default:
		return compiled, ErrNoPattern
	}

	if r.CaseInsensitive {
		compiled.pattern = strings.ToLower(compiled.pattern)
	}
	return compiled, nil
}

// Apply returns only the events that match the include rules.
// If no rules are defined, all events are returned.
func (f *Filter) Apply(events []calendar.Event) []calendar.Event {
	if f == nil || len(f.rules) == 0 {
		return events
	}

	var filtered []calendar.Event
	for _, event := range events {
		if f.matches(event) {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

func (f *Filter) matches(event calendar.Event) bool {
	if f.mode == "and" {
		for _, r := range f.rules {
			if !r.matches(event) {
				return false
			}
		}
		return true
	}

	for _, r := range f.rules {
		if r.matches(event) {
			return true
		}
	}
	return false
}

func (r *rule) matches(event calendar.Event) bool {
	value := fieldValue(r.field, event)

	if r.caseInsensitive && r.matchType != MatchRegex {
		value = strings.ToLower(value)
	}

	switch r.matchType {
	case MatchRegex:
		return r.regex.MatchString(value)
	case MatchExact:
		return value == r.pattern
	case MatchPrefix:
		return strings.HasPrefix(value, r.pattern)
	case MatchSuffix:
		return strings.HasSuffix(value, r.pattern)
	default:
		return strings.Contains(value, r.pattern)
	}
}

func fieldValue(field string, event calendar.Event) string {
	switch field {
	case "title", "summary":
		return event.Summary
	case "organizer":
		return event.Organizer
	case "source", "calendar":
		return event.Source
	case "description":
		return event.Description
	case "location":
		return event.Location
	default:
		return ""
	}
}
