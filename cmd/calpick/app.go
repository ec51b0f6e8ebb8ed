package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	gosync "sync"
	"time"

	"github.com/cpuguy83/calpick/internal/calendar"
	"github.com/cpuguy83/calpick/internal/config"
	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/notify"
	"github.com/cpuguy83/calpick/internal/picker"
	"github.com/cpuguy83/calpick/internal/price"
	"github.com/cpuguy83/calpick/internal/selection"
	"github.com/cpuguy83/calpick/internal/sync"
	"github.com/cpuguy83/calpick/internal/ui"
	"github.com/cpuguy83/calpick/internal/ui/menu"
	"github.com/cpuguy83/calpick/internal/ui/tty"
)

const (
	backendAuto = "auto"
	backendGTK  = "gtk"
	backendMenu = "menu"
	backendTTY  = "tty"
)

// exportSummary is the SUMMARY of the exported selection event.
const exportSummary = "Selected dates"

// notifier is the part of notify.Notifier the app uses.
type notifier interface {
	Send(notify.Notification) (uint32, error)
	WatchActions(callback func(actionKey string)) error
	Close() error
}

var newNotifier = func(appName string) (notifier, error) {
	n, err := notify.New(appName)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// App is the main calpick application.
type App struct {
	cfg      *config.Config
	picker   *picker.Picker
	view     ui.View
	backend  string
	static   selection.DisabledSet
	syncer   *sync.Syncer
	notifier notifier
	sends    gosync.WaitGroup // notifications in flight

	mu          gosync.RWMutex
	lastSync    time.Time
	lastSyncErr error
}

// NewApp builds the picker, the syncer and the view from cfg.
func NewApp(cfg *config.Config) (*App, error) {
	p, static, err := newPicker(cfg.Picker)
	if err != nil {
		return nil, err
	}

	syncer, err := sync.NewSyncer(cfg)
	if err != nil {
		return nil, fmt.Errorf("create syncer: %w", err)
	}

	backend, err := resolveBackend(cfg.UI.Backend, detectEnvironment())
	if err != nil {
		return nil, err
	}

	view, err := newView(backend, p, cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s view: %w", backend, err)
	}

	a := &App{
		cfg:     cfg,
		picker:  p,
		view:    view,
		backend: backend,
		static:  static,
		syncer:  syncer,
	}

	p.OnChange(view.Render)
	p.OnComplete(a.onComplete)

	return a, nil
}

// newPicker creates the picker described by cfg. It also returns the
// configured disabled dates so busy days can be added to them later.
func newPicker(cfg config.PickerConfig) (*picker.Picker, selection.DisabledSet, error) {
	mode, err := selection.ParseMode(cfg.Mode)
	if err != nil {
		return nil, nil, err
	}

	dates, err := date.ParseAll(cfg.Disabled)
	if err != nil {
		return nil, nil, fmt.Errorf("disabled dates: %w", err)
	}
	static := selection.NewDisabledSet(dates...)

	opts := []picker.Option{
		picker.WithFormat(cfg.Format),
		picker.WithDisabled(static),
		picker.WithMonths(cfg.Months),
	}

	if cfg.Month != "" {
		month, err := date.Parse(cfg.Month + "-01")
		if err != nil {
			return nil, nil, fmt.Errorf("initial month %q: %w", cfg.Month, err)
		}
		opts = append(opts, picker.WithMonth(month))
	}

	if cfg.Prices != "" {
		prices, err := price.LoadFile(cfg.Prices)
		if err != nil {
			return nil, nil, err
		}
		slog.Debug("loaded prices", "path", cfg.Prices, "dates", prices.Len())
		opts = append(opts, picker.WithPrices(prices))
	}

	return picker.New(mode, opts...), static, nil
}

// environment is what backend auto-detection looks at.
type environment struct {
	gtk      bool // built with GTK
	display  bool // a Wayland or X11 display is reachable
	terminal bool // stdin is a terminal
}

func detectEnvironment() environment {
	return environment{
		gtk:      ui.GTKAvailable(),
		display:  os.Getenv("WAYLAND_DISPLAY") != "" || os.Getenv("DISPLAY") != "",
		terminal: tty.Available(),
	}
}

// resolveBackend turns the configured backend into a concrete one. auto
// prefers the GTK popup on a graphical session, then the terminal, then a
// launcher.
func resolveBackend(name string, env environment) (string, error) {
	switch name {
	case backendGTK:
		if !env.gtk {
			return "", fmt.Errorf("backend %q requested but calpick was built without GTK", name)
		}
		return name, nil
	case backendMenu, backendTTY:
		return name, nil
	case backendAuto, "":
		switch {
		case env.gtk && env.display:
			return backendGTK, nil
		case env.terminal:
			return backendTTY, nil
		default:
			return backendMenu, nil
		}
	default:
		return "", fmt.Errorf("unknown backend %q", name)
	}
}

// newView creates the view for backend.
func newView(backend string, p *picker.Picker, cfg *config.Config) (ui.View, error) {
	labels := cfg.Picker.Inputs
	switch backend {
	case backendGTK:
		return ui.NewGTK(p, ui.Config{
			Title:             "calpick",
			StartLabel:        labels.Start,
			EndLabel:          labels.End,
			HoverDismissDelay: 300 * time.Millisecond,
		}), nil
	case backendTTY:
		return tty.New(p, tty.Config{StartLabel: labels.Start, EndLabel: labels.End}), nil
	default:
		m, err := menu.New(p, menu.Config{
			Program:    cfg.UI.MenuProgram,
			Args:       cfg.UI.MenuArgs,
			StartLabel: labels.Start,
			EndLabel:   labels.End,
			Clipboard:  cfg.UI.Clipboard,
		})
		if err != nil {
			slog.Debug("menu programs", "supported", menu.Supported(), "available", menu.Available())
			return nil, err
		}
		return m, nil
	}
}

// Run shows the picker until the user finishes and returns the formatted
// start and end dates. end is empty in single mode.
func (a *App) Run(ctx context.Context) (start, end string, err error) {
	if err := a.view.Init(); err != nil {
		return "", "", fmt.Errorf("init view: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.cfg.Notifications.Enabled {
		n, err := newNotifier("calpick")
		if err != nil {
			slog.Warn("failed to initialize notifications", "error", err)
		} else {
			a.notifier = n
			defer n.Close()
			// Deferred after Close so pending sends finish on an open connection
			defer a.sends.Wait()
			if a.reopenable() {
				if err := n.WatchActions(a.onNotificationAction); err != nil {
					slog.Warn("failed to watch notification actions", "error", err)
				}
			}
		}
	}

	if a.syncer.SourceCount() > 0 {
		a.view.SetStatus("Checking availability…", false)
		go a.syncer.Run(ctx, a.onSyncComplete)
	}

	if err := a.view.Run(ctx); err != nil {
		return "", "", err
	}

	start, end = a.picker.Inputs()
	return start, end, nil
}

// onSyncComplete is called after each sync completes.
func (a *App) onSyncComplete(res sync.Result, err error) {
	now := time.Now()

	a.mu.Lock()
	if err != nil {
		slog.Warn("sync failed", "error", err)
		a.lastSyncErr = err
		// Keep old busy days on error
	} else {
		a.lastSync = now
		a.lastSyncErr = nil
	}
	lastSync, lastSyncErr := a.lastSync, a.lastSyncErr
	a.mu.Unlock()

	if err == nil {
		a.picker.SetDisabled(a.static.Union(res.Busy))
	}

	a.view.SetStatus(syncStatus(lastSync, lastSyncErr, a.syncer.Interval(), now))
}

// syncStatus describes how fresh the availability shown in the grid is.
func syncStatus(lastSync time.Time, lastErr error, interval time.Duration, now time.Time) (string, bool) {
	if lastSync.IsZero() {
		return "Availability unknown", true
	}
	status := "Availability as of " + lastSync.Format("15:04")
	stale := lastErr != nil || now.Sub(lastSync) > 2*interval
	if lastErr != nil {
		status += " (sync failing)"
	}
	return status, stale
}

// onComplete exports and announces a finished selection.
func (a *App) onComplete(s picker.Snapshot) {
	slog.Info("selection complete", "start", s.Start, "end", s.End)

	if path := a.cfg.Sync.Output; path != "" {
		start, _ := s.State.Start()
		end, ok := s.State.End()
		if !ok {
			end = start
		}
		if err := calendar.WriteSelectionICS(path, start, end, exportSummary); err != nil {
			slog.Warn("failed to export selection", "path", path, "error", err)
		} else {
			slog.Debug("exported selection", "path", path)
		}
	}

	if a.notifier != nil {
		var actions []notify.Action
		if a.reopenable() {
			actions = append(actions, notify.ChangeAction)
		}
		notif := notify.Selection(s.Start, s.End, ui.Nights(s.State), actions...)
		// D-Bus round trips stay off the UI thread; Run waits for them
		a.sends.Go(func() {
			if _, err := a.notifier.Send(notif); err != nil {
				slog.Warn("failed to send notification", "error", err)
			}
		})
	}
}

// reopenable reports whether the view outlives a completed selection, so a
// notification action can bring the grid back. The terminal and launcher
// views return as soon as the selection is complete.
func (a *App) reopenable() bool {
	return a.backend == backendGTK
}

// onNotificationAction handles a click on a notification button.
func (a *App) onNotificationAction(actionKey string) {
	if actionKey != notify.ActionChange {
		return
	}
	slog.Debug("reopening picker from notification")
	a.picker.Show()
	a.view.Show()
}
