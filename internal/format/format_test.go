package format

import (
	"testing"

	"github.com/cpuguy83/calpick/internal/date"
)

func TestFormat(t *testing.T) {
	d := date.MustParse("2023-05-13")

	tests := []struct {
		pattern string
		want    string
	}{
		{"EEE, dd/MMM/yyyy", "Sat, 13/May/2023"},
		{DefaultPattern, "Sat, 13/May/2023"},
		{"yyyy-MM-dd", "2023-MM-13"},
		{"ddd DD MMM YYYY", "Sat 13 May 2023"},
		{"MMM dd, yyyy (EEE)", "May 13, 2023 (Sat)"},
		{"dd.dd", "13.13"},
		{"no tokens here", "no tokens here"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			if got := Format(d, tt.pattern); got != tt.want {
				t.Errorf("Format(%v, %q) = %q, want %q", d, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestFormatPadsDayAndYear(t *testing.T) {
	got := Format(date.New(987, 1, 5), "dd/MMM/yyyy EEE")
	if want := "05/Jan/0987 Fri"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDoesNotRescanSubstitutions(t *testing.T) {
	// "Wed" followed by a literal "d" must not turn into a "dd" token.
	got := Format(date.MustParse("2023-05-10"), "EEEd")
	if want := "Wedd"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatLocale(t *testing.T) {
	german := Locale{
		Weekdays: [7]string{"So", "Mo", "Di", "Mi", "Do", "Fr", "Sa"},
		Months:   [12]string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"},
	}

	got := FormatLocale(date.MustParse("2023-05-13"), "EEE, dd. MMM yyyy", &german)
	if want := "Sa, 13. Mai 2023"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := FormatLocale(date.MustParse("2023-05-13"), "EEE", nil); got != "Sat" {
		t.Errorf("nil locale should fall back to English, got %q", got)
	}
}
