package coord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/filter"
	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/metrics"
	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/otel"
)

var (
	// ErrCycleAborted is returned when the context ends before the commit.
	// Nothing from the cycle was made durable.
	ErrCycleAborted = errors.New("cycle aborted before commit")

	// ErrCycleInProgress is returned by RunNow while another cycle runs.
	ErrCycleInProgress = errors.New("cycle already in progress")
)

// Store is the durable state a cycle reads and commits.
type Store interface {
	Checkpoints(ctx context.Context) (model.Checkpoints, error)
	Commit(ctx context.Context, cps model.Checkpoints, articles []model.Article) error
}

// Pruner is implemented by stores that can drop old cached articles.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Deliverer emits notifications for new articles.
type Deliverer interface {
	Deliver(ctx context.Context, articles []model.Article) (int, error)
}

// Counter is the unread counter.
type Counter interface {
	Increment(ctx context.Context, n int) (int, error)
}

// Result summarises one cycle.
type Result struct {
	ID          string
	Started     time.Time
	Duration    time.Duration
	Fetched     int
	New         int
	Sent        int
	Unread      int
	Sources     []SourceResult
	Checkpoints model.Checkpoints
	Committed   bool
}

// Cycle runs the pipeline once per Run: read checkpoints, aggregate, filter,
// count, deliver, commit.
type Cycle struct {
	// Sources is called at the start of every run so config reloads that
	// enable or disable sources apply to the next cycle.
	Sources func() []fetch.Source
	Store   Store
	Deliver Deliverer
	Unread  Counter

	// Location is the reference zone for day-granularity comparisons.
	// Nil means time.Local.
	Location func() *time.Location

	// Retention is read after each commit; when it returns a positive
	// window and Store is a Pruner, older cached articles are dropped.
	Retention func() time.Duration

	FetchTimeout  time.Duration
	MaxConcurrent int

	Logger  *log.Logger
	Events  *otel.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Run executes one cycle. Fetch failures are absorbed; the returned error is
// ErrCycleAborted when ctx ended before commit, or the commit error.
func (c *Cycle) Run(ctx context.Context) (Result, error) {
	logger := logging.OrNop(c.Logger)
	res := Result{ID: uuid.NewString()[:8], Started: c.now()}
	c.Metrics.CycleStarted()
	c.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCycleStart, Comp: "coord", CycleID: res.ID})

	finish := func(status string, err error) (Result, error) {
		res.Duration = time.Since(res.Started)
		c.Metrics.CycleFinished(status, res.Duration)
		ev := otel.Event{
			Level:   otel.LevelInfo,
			Kind:    otel.KindCycleComplete,
			Comp:    "coord",
			CycleID: res.ID,
			Dur:     res.Duration,
			Count:   res.New,
			Extra:   map[string]any{"fetched": res.Fetched, "sent": res.Sent, "status": status},
		}
		switch status {
		case metrics.StatusAborted:
			ev.Level, ev.Kind = otel.LevelWarn, otel.KindCycleAbort
		case metrics.StatusFailed:
			ev.Level = otel.LevelError
		}
		if err != nil {
			ev.Err = err.Error()
		}
		c.Events.Emit(ev)
		return res, err
	}

	sources := c.sources()
	loc := c.location()

	old, err := c.Store.Checkpoints(ctx)
	if err != nil {
		logger.Warn("checkpoint read failed, treating every source as unseen", "err", err)
		c.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindStoreError, Comp: "coord", CycleID: res.ID, Err: err.Error()})
		old = model.Checkpoints{}
	}

	articles, results := Aggregate(ctx, sources, c.MaxConcurrent, c.FetchTimeout)
	res.Fetched = len(articles)
	res.Sources = results
	for _, r := range results {
		c.Metrics.Fetched(r.Source, r.Articles, r.Err)
		ev := otel.Event{Level: otel.LevelInfo, Kind: otel.KindFetchComplete, Comp: "fetch", CycleID: res.ID, Source: r.Source, Count: r.Articles, Dur: r.Dur}
		if r.Err != nil {
			logger.Warn("source fetch failed", "source", r.Source, "partial", r.Articles, "err", r.Err)
			ev.Level, ev.Kind, ev.Err = otel.LevelWarn, otel.KindFetchError, r.Err.Error()
		}
		c.Events.Emit(ev)
	}

	fresh := filter.NewSince(articles, old, Policies(sources), loc)
	res.New = len(fresh)
	perSource := make(map[string]int)
	for _, a := range fresh {
		perSource[a.Source]++
	}
	for src, n := range perSource {
		c.Metrics.NewArticles(src, n)
	}
	logger.Info("cycle filtered", "cycle", res.ID, "fetched", res.Fetched, "new", res.New)

	if ctx.Err() != nil {
		return finish(metrics.StatusAborted, ErrCycleAborted)
	}

	if res.New > 0 && c.Unread != nil {
		v, err := c.Unread.Increment(ctx, res.New)
		if err != nil {
			logger.Error("unread increment failed", "err", err)
			c.Events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Comp: "unread", CycleID: res.ID, Err: err.Error()})
		} else {
			res.Unread = v
			c.Metrics.Unread(v)
			c.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindUnreadIncrement, Comp: "unread", CycleID: res.ID, Count: res.New})
		}
	}

	if c.Deliver != nil {
		sent, err := c.Deliver.Deliver(ctx, fresh)
		res.Sent = sent
		if err != nil && ctx.Err() == nil {
			logger.Warn("delivery stopped early", "sent", sent, "err", err)
		}
	}

	if ctx.Err() != nil {
		logger.Warn("cycle cancelled before commit", "cycle", res.ID, "sent", res.Sent)
		return finish(metrics.StatusAborted, ErrCycleAborted)
	}

	next := old.Advance(articles)
	if err := c.Store.Commit(ctx, next, articles); err != nil {
		c.Metrics.Committed(err)
		if ctx.Err() != nil {
			return finish(metrics.StatusAborted, ErrCycleAborted)
		}
		logger.Error("commit failed, keeping previous checkpoints", "err", err)
		c.Events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Comp: "store", CycleID: res.ID, Err: err.Error()})
		return finish(metrics.StatusFailed, fmt.Errorf("commit cycle %s: %w", res.ID, err))
	}
	c.Metrics.Committed(nil)
	res.Committed = true
	res.Checkpoints = next
	c.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCheckpointCommit, Comp: "store", CycleID: res.ID, Count: len(articles)})

	c.prune(ctx, logger)
	return finish(metrics.StatusComplete, nil)
}

func (c *Cycle) prune(ctx context.Context, logger *log.Logger) {
	if c.Retention == nil {
		return
	}
	keep := c.Retention()
	if keep <= 0 {
		return
	}
	p, ok := c.Store.(Pruner)
	if !ok {
		return
	}
	n, err := p.Prune(ctx, c.now().Add(-keep))
	if err != nil {
		logger.Warn("prune failed", "err", err)
		return
	}
	if n > 0 {
		logger.Debug("pruned cached articles", "count", n)
	}
}

func (c *Cycle) sources() []fetch.Source {
	if c.Sources == nil {
		return nil
	}
	return c.Sources()
}

func (c *Cycle) location() *time.Location {
	if c.Location != nil {
		if loc := c.Location(); loc != nil {
			return loc
		}
	}
	return time.Local
}

func (c *Cycle) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
