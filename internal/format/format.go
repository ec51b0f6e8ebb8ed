// Package format renders calendar dates from a small token pattern language.
package format

import (
	"fmt"
	"strings"

	"github.com/cpuguy83/calpick/internal/date"
)

// DefaultPattern is used when no pattern is configured.
const DefaultPattern = "EEE, dd/MMM/yyyy"

// Locale holds the abbreviated names used by the formatter.
type Locale struct {
	// Weekdays is indexed by time.Weekday (Sunday first).
	Weekdays [7]string
	// Months is indexed by time.Month - 1.
	Months [12]string
}

// English is the default locale.
var English = Locale{
	Weekdays: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	Months:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
}

type token struct {
	text   string
	render func(l *Locale, d date.Date) string
}

// Longer tokens come first so "ddd" wins over "dd".
var tokens = []token{
	{"yyyy", year},
	{"YYYY", year},
	{"EEE", weekday},
	{"ddd", weekday},
	{"MMM", month},
	{"dd", day},
	{"DD", day},
}

func year(_ *Locale, d date.Date) string    { return fmt.Sprintf("%04d", d.Year) }
func day(_ *Locale, d date.Date) string     { return fmt.Sprintf("%02d", d.Day) }
func weekday(l *Locale, d date.Date) string { return l.Weekdays[d.Weekday()] }
func month(l *Locale, d date.Date) string   { return l.Months[d.Month-1] }

// Format renders d using pattern and English names.
//
// Recognized tokens: EEE/ddd (weekday), dd/DD (day), MMM (month), yyyy/YYYY
// (year). Every occurrence is replaced exactly once; substituted text is not
// re-scanned. Anything else is copied through unchanged.
func Format(d date.Date, pattern string) string {
	return FormatLocale(d, pattern, &English)
}

// FormatLocale is like Format but uses the names in l.
func FormatLocale(d date.Date, pattern string, l *Locale) string {
	if l == nil {
		l = &English
	}

	var b strings.Builder
	b.Grow(len(pattern) + 8)

	for i := 0; i < len(pattern); {
		tok, ok := matchToken(pattern[i:])
		if !ok {
			b.WriteByte(pattern[i])
			i++
			continue
		}
		b.WriteString(tok.render(l, d))
		i += len(tok.text)
	}
	return b.String()
}

func matchToken(s string) (token, bool) {
	for _, t := range tokens {
		if strings.HasPrefix(s, t.text) {
			return t, true
		}
	}
	return token{}, false
}
