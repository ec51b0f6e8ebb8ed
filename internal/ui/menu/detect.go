// Package menu drives a picker through a dmenu-style launcher: every pick
// from the list of days is a click.
package menu

import (
	"fmt"
	"iter"
	"os/exec"
	"slices"
	"strings"
)

// launchers are the dmenu-compatible programs buildArgs knows, best first.
var launchers = []string{"rofi", "wofi", "fuzzel", "bemenu", "dmenu"}

// lookPath is swapped out in tests.
var lookPath = exec.LookPath

func installed() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, prog := range launchers {
			if _, err := lookPath(prog); err != nil {
				continue
			}
			if !yield(prog) {
				return
			}
		}
	}
}

// Detect returns the first installed launcher.
func Detect() (string, error) {
	for prog := range installed() {
		return prog, nil
	}
	return "", fmt.Errorf("no launcher found (tried: %s)", strings.Join(launchers, ", "))
}

// Supported lists the launchers calpick knows how to drive.
func Supported() []string {
	return slices.Clone(launchers)
}

// Available lists the supported launchers found on PATH.
func Available() []string {
	return slices.Collect(installed())
}
