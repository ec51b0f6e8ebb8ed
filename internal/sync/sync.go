// Package sync gathers busy days from every configured availability source.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cpuguy83/calpick/internal/calendar"
	"github.com/cpuguy83/calpick/internal/config"
	"github.com/cpuguy83/calpick/internal/date"
	"github.com/cpuguy83/calpick/internal/filter"
	"github.com/cpuguy83/calpick/internal/selection"
)

// sourceWithFilter pairs a calendar source with its optional filter.
type sourceWithFilter struct {
	source calendar.Source
	filter *filter.Filter
}

// Result is the outcome of one sync.
type Result struct {
	// Events are the busy events after filtering, sorted by start.
	Events []calendar.Event

	// Busy holds the days between From and To that the events occupy.
	Busy selection.DisabledSet

	From, To date.Date
}

// Syncer fetches availability from multiple sources.
type Syncer struct {
	sources  []sourceWithFilter
	filter   *filter.Filter
	interval time.Duration
	horizon  time.Duration
	now      func() time.Time
}

// NewSyncer creates a new Syncer from configuration.
func NewSyncer(cfg *config.Config) (*Syncer, error) {
	sources, err := createSources(cfg.Sources)
	if err != nil {
		return nil, err
	}

	global, err := filter.New(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("global filters: %w", err)
	}

	return &Syncer{
		sources:  sources,
		filter:   global,
		interval: cfg.Sync.Interval,
		horizon:  cfg.Sync.Horizon,
		now:      time.Now,
	}, nil
}

// Interval returns the configured sync interval.
func (s *Syncer) Interval() time.Duration {
	return s.interval
}

// SourceCount returns the number of configured sources.
func (s *Syncer) SourceCount() int {
	return len(s.sources)
}

// Sync fetches all sources from today through the horizon, applies per-source
// and global filters, and returns the busy days.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	now := s.now()
	from := date.FromTime(now)
	to := date.FromTime(now.Add(s.horizon))
	start := from.In(time.Local)
	end := to.AddDays(1).In(time.Local)

	slog.Info("starting sync", "sources", len(s.sources), "from", from, "to", to)

	type result struct {
		events   []calendar.Event
		name     string
		fetched  int
		filtered int
		err      error
	}

	results := make(chan result, len(s.sources))
	var wg sync.WaitGroup

	for _, swf := range s.sources {
		wg.Go(func() {
			name := swf.source.Name()
			slog.Debug("fetching source", "name", name)

			events, err := swf.source.Fetch(ctx, start, end)
			if err != nil {
				results <- result{name: name, err: fmt.Errorf("source %s: %w", name, err)}
				return
			}

			fetched := len(events)
			events = swf.filter.Apply(events)

			results <- result{
				events:   events,
				name:     name,
				fetched:  fetched,
				filtered: len(events),
			}
		})
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var sets [][]calendar.Event
	var firstErr error
	failed := 0
	for r := range results {
		if r.err != nil {
			slog.Warn("failed to fetch source", "name", r.name, "error", r.err)
			failed++
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		slog.Info("fetched source", "name", r.name, "fetched", r.fetched, "after_filter", r.filtered)
		sets = append(sets, r.events)
	}

	// Partial results are better than none; fail only when every source did.
	if failed > 0 && failed == len(s.sources) {
		return Result{}, firstErr
	}

	merged := s.filter.Apply(calendar.Merge(sets...))
	busy := calendar.BusyDays(merged, from, to)

	slog.Info("sync complete", "events", len(merged), "busy_days", busy.Len())

	return Result{Events: merged, Busy: busy, From: from, To: to}, nil
}

// Run syncs immediately and then on every interval, calling onSync after each
// sync. Run blocks until the context is cancelled.
func (s *Syncer) Run(ctx context.Context, onSync func(Result, error)) {
	res, err := s.Sync(ctx)
	onSync(res, err)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.Sync(ctx)
			onSync(res, err)
		case <-ctx.Done():
			return
		}
	}
}

// createSources creates calendar sources with their per-source filters from configuration.
func createSources(cfgs []config.SourceConfig) ([]sourceWithFilter, error) {
	var sources []sourceWithFilter

	for _, cfg := range cfgs {
		var src calendar.Source

		switch cfg.Type {
		case "ics", "caldav", "icloud":
			password, err := cfg.GetPassword()
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
			}
			switch cfg.Type {
			case "ics":
				src = calendar.NewICSSource(cfg.Name, cfg.URL, cfg.Username, password)
			case "caldav":
				src = calendar.NewCalDAVSource(cfg.Name, cfg.URL, cfg.Username, password, cfg.Calendars)
			default:
				src = calendar.NewICloudSource(cfg.Name, cfg.Username, password, cfg.Calendars)
			}

		case "ms365":
			src = calendar.NewMS365Source(cfg.Name, cfg.ClientID)

		default:
			slog.Warn("unknown source type", "type", cfg.Type, "name", cfg.Name)
			continue
		}

		f, err := filter.New(cfg.Filters)
		if err != nil {
			return nil, fmt.Errorf("source %s filters: %w", cfg.Name, err)
		}

		sources = append(sources, sourceWithFilter{
			source: src,
			filter: f,
		})
	}

	return sources, nil
}
