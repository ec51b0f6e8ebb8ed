package price

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cpuguy83/calpick/internal/date"
)

func TestParse(t *testing.T) {
	data := []byte(`
2023-05-13: "$100"
2023-05-14: 120
2023-05-15: 99.50
`)

	table, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	tests := []struct {
		day    string
		want   string
		wantOK bool
	}{
		{"2023-05-13", "$100", true},
		{"2023-05-14", "120", true},
		{"2023-05-15", "99.50", true},
		{"2023-05-16", "", false},
	}

	for _, tt := range tests {
		got, ok := table.Lookup(date.MustParse(tt.day))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Lookup(%s) = %q, %v; want %q, %v", tt.day, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad key", "May 13: $100\n"},
		{"not a mapping", "- 2023-05-13\n"},
		{"nested value", "2023-05-13:\n  amount: 100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("expected error for %q", tt.data)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	table, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil): %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("expected empty table, got %d entries", table.Len())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.yaml")
	if err := os.WriteFile(path, []byte("2023-05-13: \"$100\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if v, _ := table.Lookup(date.MustParse("2023-05-13")); v != "$100" {
		t.Errorf("got %q, want $100", v)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestFromStrings(t *testing.T) {
	table, err := FromStrings(map[string]string{"2023-05-13": "$100", "2023-05-14": "$120"})
	if err != nil {
		t.Fatalf("FromStrings: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("Len = %d, want 2", table.Len())
	}
	if _, err := FromStrings(map[string]string{"yesterday": "$1"}); err == nil {
		t.Errorf("expected error for malformed key")
	}
}
