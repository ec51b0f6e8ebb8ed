// Package tty provides a terminal picker backend: a month grid drawn with
// lipgloss and driven by the keyboard in raw mode.
package tty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/ui"
)

const (
	clearScreen = "\x1b[H\x1b[2J"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

// Config holds terminal UI configuration.
type Config struct {
	StartLabel string
	EndLabel   string
}

// TTY implements ui.View on an interactive terminal. Moving the cursor
// previews a range, Enter picks the day under it.
type TTY struct {
	picker *picker.Picker
	cfg    Config
	in     io.Reader
	out    io.Writer
	fd     int
	styles styles
	now    func() time.Time

	mu      sync.Mutex
	cursor  date.Date
	status  string
	stale   bool
	running bool
}

var _ ui.View = (*TTY)(nil)

// New creates a terminal view on stdin and stdout driving p.
func New(p *picker.Picker, cfg Config) *TTY {
	return &TTY{
		picker: p,
		cfg:    cfg,
		in:     os.Stdin,
		out:    os.Stdout,
		fd:     int(os.Stdin.Fd()),
		styles: newStyles(os.Stdout),
		now:    time.Now,
	}
}

// Available reports whether stdin is an interactive terminal.
func Available() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Init checks that input comes from a terminal.
func (t *TTY) Init() error {
	if !term.IsTerminal(t.fd) {
		return errors.New("stdin is not a terminal")
	}
	return nil
}

// Show marks the picker visible.
func (t *TTY) Show() {
	t.picker.Show()
}

// Hide is a no-op: the grid stays on screen until Run returns.
func (t *TTY) Hide() {}

// Render redraws the grid while Run is active.
func (t *TTY) Render(s picker.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		t.drawLocked(s)
	}
}

// SetStatus sets the availability line shown under the grid.
func (t *TTY) SetStatus(status string, stale bool) {
	t.mu.Lock()
	t.status = status
	t.stale = stale
	t.mu.Unlock()

	t.Render(t.picker.Snapshot())
}

// Run puts the terminal in raw mode and handles keys until the selection is
// complete, the user quits, or ctx is cancelled.
func (t *TTY) Run(ctx context.Context) error {
	oldState, err := term.MakeRaw(t.fd)
	if err != nil {
		return fmt.Errorf("set raw mode: %w", err)
	}
	defer term.Restore(t.fd, oldState)

	fmt.Fprint(t.out, hideCursor)
	defer fmt.Fprint(t.out, showCursor+"\r\n")

	keys := make(chan key)
	done := make(chan struct{})
	defer close(done)
	go readKeys(t.in, keys, done)

	return t.loop(ctx, keys)
}

// loop is Run without the terminal setup.
func (t *TTY) loop(ctx context.Context, keys <-chan key) error {
	t.mu.Lock()
	t.cursor = t.initialCursor()
	t.running = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	t.picker.Show()
	t.Render(t.picker.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case k, ok := <-keys:
			if !ok {
				return io.ErrUnexpectedEOF
			}
			done, err := t.handle(k)
			if err != nil || done {
				return err
			}
		}
	}
}

// initialCursor puts the cursor on the start date, today, or the first of
// the displayed month, whichever is visible first.
func (t *TTY) initialCursor() date.Date {
	month := t.picker.Month()
	if start, ok := t.picker.State().Start(); ok && start.SameMonth(month) {
		return start
	}
	if today := date.FromTime(t.now()); today.SameMonth(month) {
		return today
	}
	return month
}

// handle applies one key. done reports a completed selection.
func (t *TTY) handle(k key) (done bool, err error) {
	switch k {
	case keyUp:
		t.moveCursor(-7)
	case keyDown:
		t.moveCursor(7)
	case keyLeft:
		t.moveCursor(-1)
	case keyRight:
		t.moveCursor(1)
	case keyPrevMonth:
		t.shiftMonth(-1)
	case keyNextMonth:
		t.shiftMonth(1)
	case keyToday:
		t.setCursor(date.FromTime(t.now()))
	case keyReset:
		t.picker.Reset()
	case keyEnter:
		t.mu.Lock()
		cursor := t.cursor
		t.mu.Unlock()

		t.picker.Click(cursor)
		if t.picker.Complete() {
			slog.Debug("selection complete", "selection", t.picker.State())
			return true, nil
		}
	case keyQuit:
		if t.picker.Complete() {
			return true, nil
		}
		return false, ui.ErrCancelled
	}
	return false, nil
}

func (t *TTY) moveCursor(days int) {
	t.mu.Lock()
	cursor := t.cursor.AddDays(days)
	t.mu.Unlock()
	t.setCursor(cursor)
}

// shiftMonth moves the cursor to the same day of another month, clamped to
// the month's length.
func (t *TTY) shiftMonth(delta int) {
	t.mu.Lock()
	cur := t.cursor
	t.mu.Unlock()

	first := cur.AddMonths(delta)
	t.setCursor(date.New(first.Year, first.Month, min(cur.Day, first.DaysInMonth())))
}

// setCursor moves the cursor to d, pages the grid to d's month and previews
// the range ending at d.
func (t *TTY) setCursor(d date.Date) {
	t.mu.Lock()
	t.cursor = d
	t.mu.Unlock()

	if !d.SameMonth(t.picker.Month()) {
		t.picker.SetMonth(d)
	}
	t.picker.Hover(d)

	// Hover is a no-op without a pending start, so redraw for the cursor.
	t.Render(t.picker.Snapshot())
}

// drawLocked writes the grid to the terminal. t.mu must be held.
func (t *TTY) drawLocked(s picker.Snapshot) {
	out := t.styles.render(s, view{
		cursor:     t.cursor,
		status:     t.status,
		stale:      t.stale,
		startLabel: t.cfg.StartLabel,
		endLabel:   t.cfg.EndLabel,
	})
	// Raw mode does not translate newlines.
	fmt.Fprint(t.out, clearScreen+strings.ReplaceAll(out, "\n", "\r\n"))
}
