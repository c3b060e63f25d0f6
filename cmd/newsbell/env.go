package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/abelbrown/newsbell/internal/catalog"
	"github.com/abelbrown/newsbell/internal/config"
	"github.com/abelbrown/newsbell/internal/coord"
	"github.com/abelbrown/newsbell/internal/deliver"
	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/metrics"
	"github.com/abelbrown/newsbell/internal/otel"
	"github.com/abelbrown/newsbell/internal/unread"
)

const (
	eventBufferSize = 512
	linkCapacity    = 256
)

// env holds the wiring shared by the commands.
type env struct {
	settings *config.Settings
	store    backend
	unread   *unread.Counter
	logger   *log.Logger
	events   *otel.Logger
	ring     *otel.RingBuffer
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	links    *deliver.Links
	client   *fetch.Client

	closers []io.Closer
}

// envOptions controls where diagnostics go. The TUI owns the terminal, so
// it must not log to stderr.
type envOptions struct {
	quiet bool
}

func newEnv(ctx context.Context, opts envOptions) (*env, error) {
	cfg := loadConfig()
	if err := os.MkdirAll(config.Dir(), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	e := &env{
		settings: config.NewSettings(cfg),
		ring:     otel.NewRingBuffer(eventBufferSize),
		registry: prometheus.NewRegistry(),
		links:    deliver.NewLinks(linkCapacity),
		client:   fetch.NewClient(fetch.DefaultTimeout),
	}

	switch {
	case cfg.Log.File:
		l, f, err := logging.OpenFile(logDir(), cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		e.logger = l
		e.closers = append(e.closers, f)
	case opts.quiet:
		e.logger = logging.Nop()
	default:
		e.logger = logging.New(os.Stderr, cfg.Log.Level)
	}

	events, f, err := otel.OpenFile(eventLogPath())
	if err != nil {
		e.logger.Warn("event log disabled", "error", err)
		events = otel.NewNullLogger()
	} else {
		e.closers = append(e.closers, f)
	}
	events.SetRingBuffer(e.ring)
	e.events = events

	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	e.metrics = metrics.New(e.registry)

	st, err := openStore(ctx, cfg)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.store = st
	e.closers = append(e.closers, st)

	e.unread = unread.New(st, unread.BadgeFunc(e.metrics.Unread))
	if n, err := e.unread.Value(ctx); err == nil {
		e.metrics.Unread(n)
	}
	return e, nil
}

// Close flushes the event log and releases files and the store.
func (e *env) Close() {
	e.events.Close()
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
}

// sources builds the enabled sources from the current config. Called at the
// start of every cycle.
func (e *env) sources() []fetch.Source {
	cfg := e.settings.Get()
	all := catalog.Sources(catalog.Options{
		Client:   e.client,
		Logger:   e.logger,
		Location: cfg.Location(),
		URLs:     cfg.URLs(),
	})
	return catalog.Select(all, cfg.Overrides())
}

func (e *env) notifier() deliver.Notifier {
	return deliver.MultiNotifier{
		deliver.NewConsoleNotifier(os.Stdout),
		deliver.LogNotifier{Logger: e.logger},
	}
}

func (e *env) cycle(n deliver.Notifier) *coord.Cycle {
	s := e.settings
	return &coord.Cycle{
		Sources: e.sources,
		Store:   e.store,
		Deliver: &deliver.Scheduler{
			Notifier:    n,
			Enabled:     s.NotificationsEnabled,
			MaxCount:    s.NotificationCount,
			Delay:       s.NotificationDelay,
			DefaultIcon: func() string { return s.Get().DefaultIcon },
			Links:       e.links,
			Sent:        deliver.Observe(e.events, e.metrics),
			Logger:      e.logger,
		},
		Unread:    e.unread,
		Location:  s.Location,
		Retention: func() time.Duration { return s.Get().Retention() },
		Logger:    e.logger,
		Events:    e.events,
		Metrics:   e.metrics,
	}
}

func (e *env) coordinator(n deliver.Notifier) *coord.Coordinator {
	return coord.New(e.cycle(n), e.settings.Get().Interval())
}

// reload applies a changed config file.
func (e *env) reload(c *coord.Coordinator) func(*config.Config) {
	return func(cfg *config.Config) {
		prev := e.settings.Get()
		e.settings.Set(cfg)
		if c != nil && cfg.Interval() != prev.Interval() {
			c.Reconfigure(cfg.Interval())
		}
		e.logger.Debug("settings applied", "interval", cfg.Interval(), "notifications", cfg.NotificationsEnabled)
		e.events.Emit(otel.Event{Kind: otel.KindConfigReload, Level: otel.LevelInfo, Comp: "config"})
	}
}
