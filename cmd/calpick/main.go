// calpick is a date and date-range picker for the desktop and the terminal.
// It greys out days that are busy in the configured calendars and prints the
// chosen dates on stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cpuguy83/calpick/internal/config"
	"github.com/cpuguy83/calpick/internal/ui"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file (default: ~/.config/calpick/config.yaml)")
		verbose    = flag.Bool("v", false, "verbose logging")
		mode       = flag.String("mode", "", "selection mode: single or range (overrides config)")
		pattern    = flag.String("format", "", "display pattern for picked dates, e.g. \"EEE, dd/MMM/yyyy\"")
		backend    = flag.String("backend", "", "view backend: auto, gtk, menu or tty")
		month      = flag.String("month", "", "initially displayed month, YYYY-MM")
	)
	flag.Parse()

	// Setup logging
	var level slog.LevelVar
	if *verbose {
		level.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	// Load configuration
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFrom(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Flags win over the file
	if *mode != "" {
		cfg.Picker.Mode = *mode
	}
	if *pattern != "" {
		cfg.Picker.Format = *pattern
	}
	if *backend != "" {
		cfg.UI.Backend = *backend
	}
	if *month != "" {
		cfg.Picker.Month = *month
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	// The terminal view owns the screen; keep routine logs off it.
	if app.backend == backendTTY && !*verbose {
		level.Set(slog.LevelWarn)
	}

	slog.Info("starting calpick",
		"mode", cfg.Picker.Mode,
		"backend", app.backend,
		"sources", len(cfg.Sources),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	start, end, err := app.Run(ctx)
	stop()

	switch {
	case errors.Is(err, ui.ErrCancelled), errors.Is(err, context.Canceled):
		slog.Info("no date selected")
		os.Exit(1)
	case err != nil:
		slog.Error("app failed", "error", err)
		os.Exit(1)
	}

	fmt.Println(start)
	if end != "" {
		fmt.Println(end)
	}
}
