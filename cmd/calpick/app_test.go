package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"github.com/cpuguy83/calpick/internal/config"
	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/notify"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/sync"
)

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		env     environment
		want    string
		wantErr bool
	}{
		{"auto on desktop", "auto", environment{gtk: true, display: true, terminal: true}, backendGTK, false},
		{"auto without display", "", environment{gtk: true, terminal: true}, backendTTY, false},
		{"auto without gtk", "auto", environment{display: true}, backendMenu, false},
		{"explicit menu", "menu", environment{gtk: true, display: true}, backendMenu, false},
		{"explicit tty", "tty", environment{}, backendTTY, false},
		{"gtk not built", "gtk", environment{display: true}, "", true},
		{"unknown", "qt", environment{gtk: true}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveBackend(tt.backend, tt.env)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveBackend() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveBackend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewPicker(t *testing.T) {
	prices := filepath.Join(t.TempDir(), "prices.yaml")
	if err := os.WriteFile(prices, []byte(`"2023-05-12": "$120"`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, static, err := newPicker(config.PickerConfig{
		Mode:     "range",
		Format:   "dd MMM yyyy",
		Month:    "2023-05",
		Disabled: []string{"2023-05-20"},
		Prices:   prices,
	})
	if err != nil {
		t.Fatalf("newPicker: %v", err)
	}

	if p.Month() != date.MustParse("2023-05-01") {
		t.Errorf("month = %s", p.Month())
	}
	if !static.Contains(date.MustParse("2023-05-20")) || static.Len() != 1 {
		t.Errorf("static disabled = %v", static.Dates())
	}

	p.Click(date.MustParse("2023-05-20"))
	if len(p.State().Selected) != 0 {
		t.Errorf("disabled date was selectable")
	}

	p.Click(date.MustParse("2023-05-10"))
	if start, _ := p.Inputs(); start != "10 May 2023" {
		t.Errorf("start = %q", start)
	}

	var priced bool
	for _, c := range p.Snapshot().Cells {
		if c.Date == date.MustParse("2023-05-12") {
			priced = c.HasPrice && c.Price == "$120"
		}
	}
	if !priced {
		t.Errorf("price not shown on 2023-05-12")
	}
}

func TestNewPickerErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PickerConfig
	}{
		{"bad mode", config.PickerConfig{Mode: "multi"}},
		{"bad disabled date", config.PickerConfig{Mode: "range", Disabled: []string{"2023-13-01"}}},
		{"bad month", config.PickerConfig{Mode: "range", Month: "May"}},
		{"missing prices", config.PickerConfig{Mode: "single", Prices: "/nonexistent/prices.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := newPicker(tt.cfg); err == nil {
				t.Errorf("expected error")
			}
		})
	}
}

func TestSyncStatus(t *testing.T) {
	now := time.Date(2023, 5, 3, 12, 0, 0, 0, time.Local)
	interval := 15 * time.Minute

	tests := []struct {
		name      string
		lastSync  time.Time
		lastErr   error
		want      string
		wantStale bool
	}{
		{"never synced", time.Time{}, errors.New("down"), "Availability unknown", true},
		{"fresh", now.Add(-time.Minute), nil, "Availability as of 11:59", false},
		{"old", now.Add(-time.Hour), nil, "Availability as of 11:00", true},
		{"failing", now.Add(-time.Minute), errors.New("down"), "Availability as of 11:59 (sync failing)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stale := syncStatus(tt.lastSync, tt.lastErr, interval, now)
			if got != tt.want || stale != tt.wantStale {
				t.Errorf("syncStatus() = %q, %v; want %q, %v", got, stale, tt.want, tt.wantStale)
			}
		})
	}
}

func TestOnCompleteExports(t *testing.T) {
	out := filepath.Join(t.TempDir(), "selection.ics")
	cfg := config.Default()
	cfg.Sync.Output = out

	p, static, err := newPicker(cfg.Picker)
	if err != nil {
		t.Fatal(err)
	}
	a := &App{cfg: cfg, picker: p, static: static}
	p.OnComplete(a.onComplete)

	p.Click(date.MustParse("2023-05-10"))
	p.Click(date.MustParse("2023-05-15"))

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	// DTEND is exclusive for all-day events.
	for _, want := range []string{"DTSTART", "20230510", "DTEND", "20230516", "SUMMARY:" + exportSummary} {
		if !strings.Contains(string(data), want) {
			t.Errorf("export missing %q:\n%s", want, data)
		}
	}
}

// clickView completes a selection as soon as it runs.
type clickView struct {
	p     *picker.Picker
	picks []string
}

func (v *clickView) Init() error            { return nil }
func (v *clickView) Show()                  {}
func (v *clickView) Hide()                  {}
func (v *clickView) Render(picker.Snapshot) {}
func (v *clickView) SetStatus(string, bool) {}
func (v *clickView) Run(context.Context) error {
	for _, d := range v.picks {
		v.p.ClickString(d)
	}
	return nil
}

type fakeNotifier struct {
	mu              gosync.Mutex
	sent            []notify.Notification
	sentAfterClose  bool
	closed, watched bool
}

func (f *fakeNotifier) Send(n notify.Notification) (uint32, error) {
	time.Sleep(20 * time.Millisecond) // a slow bus
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.sentAfterClose = true
	}
	f.sent = append(f.sent, n)
	return uint32(len(f.sent)), nil
}

func (f *fakeNotifier) WatchActions(func(string)) error {
	f.watched = true
	return nil
}

func (f *fakeNotifier) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestRunDeliversNotificationBeforeReturning(t *testing.T) {
	tests := []struct {
		backend     string
		wantActions int
	}{
		{backendTTY, 0},
		{backendMenu, 0},
		{backendGTK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			fake := &fakeNotifier{}
			orig := newNotifier
			t.Cleanup(func() { newNotifier = orig })
			newNotifier = func(string) (notifier, error) { return fake, nil }

			cfg := config.Default()
			cfg.Notifications.Enabled = true
			p, static, err := newPicker(cfg.Picker)
			if err != nil {
				t.Fatal(err)
			}
			syncer, err := sync.NewSyncer(cfg)
			if err != nil {
				t.Fatal(err)
			}
			a := &App{
				cfg:     cfg,
				picker:  p,
				view:    &clickView{p: p, picks: []string{"2023-05-10", "2023-05-15"}},
				backend: tt.backend,
				static:  static,
				syncer:  syncer,
			}
			p.OnComplete(a.onComplete)

			start, end, err := a.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if start != "Wed, 10/May/2023" || end != "Mon, 15/May/2023" {
				t.Errorf("inputs = %q, %q", start, end)
			}

			fake.mu.Lock()
			defer fake.mu.Unlock()
			if len(fake.sent) != 1 {
				t.Fatalf("sent %d notifications before Run returned, want 1", len(fake.sent))
			}
			if fake.sentAfterClose {
				t.Errorf("notification sent after the connection was closed")
			}
			if !fake.closed {
				t.Errorf("notifier not closed")
			}
			if got := len(fake.sent[0].Actions); got != tt.wantActions {
				t.Errorf("got %d actions, want %d", got, tt.wantActions)
			}
			if fake.watched != (tt.wantActions > 0) {
				t.Errorf("watched actions = %v", fake.watched)
			}
		})
	}
}
