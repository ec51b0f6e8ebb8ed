package menu

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/price"
	"github.com/cpuguy83/calpick/internal/selection"
)

func fixedClock() time.Time {
	return time.Date(2023, 5, 3, 12, 0, 0, 0, time.UTC)
}

func TestFormatMonth(t *testing.T) {
	p := picker.New(selection.Range,
		picker.WithClock(fixedClock),
		picker.WithDisabled(selection.NewDisabledSet(date.MustParse("2023-05-20"))),
		picker.WithPrices(price.Table{date.MustParse("2023-05-12"): "$120"}),
	)
	p.Click(date.MustParse("2023-05-10"))
	p.Hover(date.MustParse("2023-05-11"))

	lines, dayMap := formatMonth(p.Snapshot(), "synced 12:00")

	if lines[0] != "━━━━ May 2023 ━━━━" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != prevMonthLine {
		t.Errorf("second line = %q", lines[1])
	}
	if len(dayMap) != 31 {
		t.Errorf("got %d selectable days, want 31", len(dayMap))
	}
	if !slices.Contains(lines, nextMonthLine) || !slices.Contains(lines, clearLine) {
		t.Errorf("missing navigation lines: %q", lines)
	}
	if last := lines[len(lines)-1]; last != "━━━━ synced 12:00 ━━━━" {
		t.Errorf("status line = %q", last)
	}

	wantLines := map[string]string{
		"2023-05-03": "   Wed  3 May (today)",
		"2023-05-10": "● Wed 10 May",
		"2023-05-11": "· Thu 11 May",
		"2023-05-12": "   Fri 12 May  $120",
		"2023-05-20": "✗ Sat 20 May (unavailable)",
	}
	for day, want := range wantLines {
		want = strings.TrimSpace(want)
		got, ok := dayMap[want]
		if !ok {
			t.Errorf("line %q not found", want)
			continue
		}
		if got.String() != day {
			t.Errorf("line %q maps to %s, want %s", want, got, day)
		}
	}
}

func TestFormatMonthEmptySelection(t *testing.T) {
	p := picker.New(selection.Single, picker.WithClock(fixedClock))
	lines, _ := formatMonth(p.Snapshot(), "")
	if slices.Contains(lines, clearLine) {
		t.Errorf("clear line offered without a selection")
	}
	if last := lines[len(lines)-1]; last != nextMonthLine {
		t.Errorf("last line = %q", last)
	}
}

func TestFormatMonthSeveralMonths(t *testing.T) {
	p := picker.New(selection.Range, picker.WithClock(fixedClock), picker.WithMonths(2))
	p.Click(date.MustParse("2023-05-30"))
	p.Click(date.MustParse("2023-06-02"))

	lines, dayMap := formatMonth(p.Snapshot(), "")

	if len(dayMap) != 31+30 {
		t.Errorf("got %d selectable days, want 61", len(dayMap))
	}
	headers := slices.DeleteFunc(slices.Clone(lines), func(l string) bool { return !strings.HasPrefix(l, "━━━━ ") })
	if want := []string{"━━━━ May 2023 ━━━━", "━━━━ Jun 2023 ━━━━", "━━━━ 3 nights ━━━━"}; !slices.Equal(headers, want) {
		t.Errorf("headers = %q, want %q", headers, want)
	}
	if got := dayMap["· Thu  1 Jun"]; got.String() != "2023-06-01" {
		t.Errorf("in-range June day maps to %s", got)
	}
	if slices.Index(lines, moreMonthsLine) != slices.Index(lines, nextMonthLine)-1 {
		t.Errorf("more months line not offered before next month: %q", lines)
	}
}

func TestPromptFor(t *testing.T) {
	p := picker.New(selection.Range, picker.WithClock(fixedClock))
	if got := promptFor(p.Snapshot(), "Check-in", "Check-out"); got != "Check-in" {
		t.Errorf("empty prompt = %q", got)
	}
	p.Click(date.MustParse("2023-05-10"))
	if got := promptFor(p.Snapshot(), "Check-in", "Check-out"); got != "Check-out" {
		t.Errorf("one selected prompt = %q", got)
	}
	p.Click(date.MustParse("2023-05-12"))
	if got := promptFor(p.Snapshot(), "Check-in", "Check-out"); got != "Check-in" {
		t.Errorf("complete prompt = %q", got)
	}
}

func TestIsSeparator(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"━━━━ May 2023 ━━━━", true},
		{"", true},
		{"Wed 10 May", false},
		{prevMonthLine, false},
	}
	for _, tt := range tests {
		if got := isSeparator(tt.line); got != tt.want {
			t.Errorf("isSeparator(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
