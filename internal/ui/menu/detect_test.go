package menu

import (
	"errors"
	"slices"
	"testing"
)

func withPath(t *testing.T, progs ...string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(name string) (string, error) {
		if slices.Contains(progs, name) {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name      string
		path      []string
		want      string
		wantAvail []string
	}{
		{"prefers rofi", []string{"dmenu", "rofi"}, "rofi", []string{"rofi", "dmenu"}},
		{"fuzzel only", []string{"fuzzel"}, "fuzzel", []string{"fuzzel"}},
		{"none", nil, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withPath(t, tt.path...)

			got, err := Detect()
			if tt.want == "" {
				if err == nil {
					t.Errorf("expected error, got %q", got)
				}
			} else if err != nil || got != tt.want {
				t.Errorf("Detect() = %q, %v; want %q", got, err, tt.want)
			}

			if avail := Available(); !slices.Equal(avail, tt.wantAvail) {
				t.Errorf("Available() = %v, want %v", avail, tt.wantAvail)
			}
		})
	}
}

func TestSupportedIsCopy(t *testing.T) {
	s := Supported()
	s[0] = "xmenu"
	if launchers[0] != "rofi" {
		t.Errorf("Supported leaked the backing slice")
	}
}
