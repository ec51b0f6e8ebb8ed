package tty

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/selection"
	"github.com/cpuguy83/calpick/internal/ui"
)

func fixedClock() time.Time {
	return time.Date(2023, 5, 3, 12, 0, 0, 0, time.UTC)
}

func newTestTTY(p *picker.Picker) (*TTY, *bytes.Buffer) {
	var out bytes.Buffer
	t := &TTY{
		picker: p,
		cfg:    Config{StartLabel: "Start", EndLabel: "End"},
		out:    &out,
		styles: newStyles(&out),
		now:    fixedClock,
	}
	p.OnChange(t.Render)
	return t, &out
}

// feed returns a closed channel holding keys.
func feed(keys ...key) <-chan key {
	ch := make(chan key, len(keys))
	for _, k := range keys {
		ch <- k
	}
	close(ch)
	return ch
}

func TestLoopRange(t *testing.T) {
	p := picker.New(selection.Range, picker.WithClock(fixedClock))
	v, out := newTestTTY(p)

	// Cursor starts on today (May 3).
	err := v.loop(context.Background(), feed(
		keyDown,  // May 10
		keyEnter, // start
		keyRight, // May 11, hover
		keyRight, // May 12
		keyEnter, // end
	))
	if err != nil {
		t.Fatalf("loop: %v", err)
	}

	start, end := p.Inputs()
	if start != "Wed, 10/May/2023" || end != "Fri, 12/May/2023" {
		t.Errorf("inputs = %q, %q", start, end)
	}
	if !strings.Contains(out.String(), "[12]") {
		t.Errorf("cursor never drawn on the 12th")
	}
	if !strings.Contains(out.String(), "\r\n") {
		t.Errorf("output lines not terminated for raw mode")
	}
}

func TestLoopHoverPreview(t *testing.T) {
	p := picker.New(selection.Range, picker.WithClock(fixedClock))
	v, _ := newTestTTY(p)

	err := v.loop(context.Background(), feed(keyEnter, keyRight, keyRight))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("loop = %v", err)
	}
	st := p.State()
	if st.Hover == nil || st.Hover.String() != "2023-05-05" {
		t.Errorf("hover = %v, want 2023-05-05", st.Hover)
	}
}

func TestLoopMonthPaging(t *testing.T) {
	p := picker.New(selection.Single, picker.WithClock(fixedClock))
	v, _ := newTestTTY(p)

	err := v.loop(context.Background(), feed(
		keyNextMonth, // Jun 3
		keyNextMonth, // Jul 3
		keyUp,        // Jun 26
		keyEnter,
	))
	if err != nil {
		t.Fatalf("loop: %v", err)
	}
	if got := p.Month(); got != date.MustParse("2023-06-01") {
		t.Errorf("month = %s, want 2023-06-01", got)
	}
	if start, _ := p.Inputs(); start != "Mon, 26/Jun/2023" {
		t.Errorf("start = %q", start)
	}
}

func TestLoopQuit(t *testing.T) {
	p := picker.New(selection.Range, picker.WithClock(fixedClock))
	v, _ := newTestTTY(p)

	if err := v.loop(context.Background(), feed(keyEnter, keyQuit)); !errors.Is(err, ui.ErrCancelled) {
		t.Fatalf("loop = %v, want ErrCancelled", err)
	}
}

func TestLoopReset(t *testing.T) {
	p := picker.New(selection.Range, picker.WithClock(fixedClock))
	v, _ := newTestTTY(p)

	_ = v.loop(context.Background(), feed(keyEnter, keyReset))
	if len(p.State().Selected) != 0 {
		t.Errorf("selection not reset: %v", p.State())
	}
}

func TestLoopContextCancelled(t *testing.T) {
	p := picker.New(selection.Range, picker.WithClock(fixedClock))
	v, _ := newTestTTY(p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := v.loop(ctx, make(chan key)); !errors.Is(err, context.Canceled) {
		t.Fatalf("loop = %v, want context.Canceled", err)
	}
}

func TestShiftMonthClampsDay(t *testing.T) {
	p := picker.New(selection.Single, picker.WithMonth(date.MustParse("2023-01-01")), picker.WithClock(fixedClock))
	v, _ := newTestTTY(p)
	v.cursor = date.MustParse("2023-01-31")

	v.shiftMonth(1)
	if v.cursor != date.MustParse("2023-02-28") {
		t.Errorf("cursor = %s, want 2023-02-28", v.cursor)
	}
	if p.Month() != date.MustParse("2023-02-01") {
		t.Errorf("month = %s", p.Month())
	}
}
