package menu

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/ui"
)

// errCancelled is returned by runDmenu when the user pressed Escape.
var errCancelled = errors.New("cancelled")

// Config holds menu UI configuration.
type Config struct {
	Program    string   // dmenu program to use (auto-detect if empty)
	Args       []string // extra args to pass to the program
	StartLabel string
	EndLabel   string
	Clipboard  bool // copy the completed selection to the clipboard
}

// Menu implements the ui.View interface using dmenu-style launchers. Every
// pick from the launcher is a click on the picker.
type Menu struct {
	cfg     Config
	program string
	picker  *picker.Picker

	// run shows one launcher round and returns the picked line.
	run func(ctx context.Context, lines []string, prompt string) (string, error)

	mu     sync.Mutex
	status string
	stale  bool
}

var _ ui.View = (*Menu)(nil)

// New creates a new Menu view backend driving p.
func New(p *picker.Picker, cfg Config) (*Menu, error) {
	program := cfg.Program
	if program == "" {
		var err error
		program, err = Detect()
		if err != nil {
			return nil, err
		}
		slog.Debug("auto-detected menu program", "program", program)
	} else {
		// Verify the specified program exists
		if _, err := lookPath(program); err != nil {
			return nil, fmt.Errorf("menu program %q not found: %w", program, err)
		}
	}

	m := &Menu{
		cfg:     cfg,
		program: program,
		picker:  p,
	}
	m.run = m.runDmenu
	return m, nil
}

// Init initializes the menu UI.
func (m *Menu) Init() error {
	return nil // No initialization needed for dmenu
}

// Show marks the picker visible; the launcher opens on the next Run round.
func (m *Menu) Show() {
	m.picker.Show()
}

// Hide is a no-op: dmenu closes itself after every pick.
func (m *Menu) Hide() {}

// Render is a no-op: every round reads a fresh snapshot.
func (m *Menu) Render(picker.Snapshot) {}

// SetStatus sets the availability line shown at the bottom of the list.
func (m *Menu) SetStatus(status string, stale bool) {
	m.mu.Lock()
	m.status = status
	m.stale = stale
	m.mu.Unlock()
}

// Run shows the launcher repeatedly until the selection is complete, the
// user cancels, or ctx is cancelled.
func (m *Menu) Run(ctx context.Context) error {
	m.picker.Show()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s := m.picker.Snapshot()
		lines, dayMap := formatMonth(s, m.statusLine())

		selected, err := m.run(ctx, lines, promptFor(s, m.cfg.StartLabel, m.cfg.EndLabel))
		if err != nil {
			if errors.Is(err, errCancelled) {
				return ui.ErrCancelled
			}
			return err
		}

		selected = strings.TrimSpace(selected)
		slog.Debug("menu selection", "selected", selected)

		switch {
		case selected == "" || isSeparator(selected):
			continue
		case selected == prevMonthLine:
			m.picker.ChangeMonth(-1)
			continue
		case selected == nextMonthLine:
			m.picker.ChangeMonth(1)
			continue
		case selected == moreMonthsLine:
			m.picker.ExtendMonths(1)
			continue
		case selected == clearLine:
			m.picker.Reset()
			continue
		}

		d, ok := dayMap[selected]
		if !ok {
			// Accept a typed date as well as a listed one
			m.picker.ClickString(selected)
		} else {
			m.picker.Click(d)
		}

		if s := m.picker.Snapshot(); s.Complete {
			m.picker.Hide()
			if m.cfg.Clipboard {
				copyToClipboard(selectionText(s))
			}
			return nil
		}
	}
}

func (m *Menu) statusLine() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stale && m.status != "" {
		return "⚠ " + m.status
	}
	return m.status
}

// runDmenu runs the dmenu program with the given input lines.
// Returns the selected line or errCancelled if the user cancelled.
func (m *Menu) runDmenu(ctx context.Context, lines []string, prompt string) (string, error) {
	args := m.buildArgs(prompt)
	cmd := exec.CommandContext(ctx, m.program, args...)

	// Prepare input
	input := strings.Join(lines, "\n")
	cmd.Stdin = strings.NewReader(input)

	// Capture output
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("running dmenu", "program", m.program, "args", args)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Exit code 1 usually means user cancelled (pressed Escape)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", errCancelled
		}
		return "", fmt.Errorf("dmenu failed: %w (stderr: %s)", err, stderr.String())
	}

	return stdout.String(), nil
}

// buildArgs builds command-line arguments for the dmenu program.
func (m *Menu) buildArgs(prompt string) []string {
	var args []string

	switch m.program {
	case "rofi":
		args = []string{"-dmenu", "-p", prompt, "-i"}
	case "wofi":
		args = []string{"--dmenu", "--prompt", prompt, "--insensitive"}
	case "fuzzel":
		args = []string{"--dmenu", "--prompt", prompt + ": "}
	case "bemenu":
		args = []string{"-p", prompt, "-i"}
	case "dmenu":
		args = []string{"-p", prompt, "-i", "-l", "20"}
	default:
		// Generic dmenu-compatible args
		args = []string{"-p", prompt}
	}

	// Add user-specified extra args
	args = append(args, m.cfg.Args...)

	return args
}

// copyToClipboard copies text to the system clipboard.
// Tries wl-copy (Wayland) first, then xclip and xsel (X11).
func copyToClipboard(text string) {
	// Try wl-copy first (Wayland)
	if path, err := exec.LookPath("wl-copy"); err == nil && path != "" {
		cmd := exec.Command("wl-copy", text)
		if err := cmd.Run(); err == nil {
			slog.Debug("copied to clipboard via wl-copy", "text", text)
			return
		}
	}

	// Fall back to xclip (X11)
	if path, err := exec.LookPath("xclip"); err == nil && path != "" {
		cmd := exec.Command("xclip", "-selection", "clipboard")
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err == nil {
			slog.Debug("copied to clipboard via xclip", "text", text)
			return
		}
	}

	// Fall back to xsel (X11)
	if path, err := exec.LookPath("xsel"); err == nil && path != "" {
		cmd := exec.Command("xsel", "--clipboard", "--input")
		cmd.Stdin = strings.NewReader(text)
		if err := cmd.Run(); err == nil {
			slog.Debug("copied to clipboard via xsel", "text", text)
			return
		}
	}

	slog.Debug("no clipboard tool available", "text", text)
}
