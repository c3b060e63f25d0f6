// Package coord drives newsbell's aggregation cycles: concurrent fetching,
// incremental filtering, delivery and the checkpoint commit, on a timer.
package coord

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abelbrown/newsbell/internal/otel"
)

// DefaultInterval is the time between cycles when none is configured.
const DefaultInterval = 10 * time.Minute

// Coordinator runs a Cycle periodically.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	cycle *Cycle

	busy   atomic.Bool
	reconf chan struct{}
	wg     sync.WaitGroup

	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	last     *Result
	lastErr  error
}

// New creates a Coordinator. interval <= 0 uses DefaultInterval.
func New(cycle *Cycle, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Coordinator{
		cycle:    cycle,
		interval: interval,
		reconf:   make(chan struct{}, 1),
	}
}

// Start begins the trigger loop. Call with a cancellable context.
// Runs one cycle immediately, then arms a single timer that is re-armed
// only after each cycle has fully resolved.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.runScheduled(ctx)

		timer := time.NewTimer(c.arm())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.reconf:
				timer.Reset(c.arm())
			case <-timer.C:
				c.runScheduled(ctx)
				timer.Reset(c.arm())
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Reconfigure replaces the pending timer with one firing interval from now.
// A cycle in flight is unaffected; the new interval applies when it ends.
func (c *Coordinator) Reconfigure(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c.mu.Lock()
	c.interval = interval
	c.mu.Unlock()

	select {
	case c.reconf <- struct{}{}:
	default: // a reset is already pending and will read the new interval
	}
}

// RunNow runs a cycle on the caller's goroutine. It returns
// ErrCycleInProgress rather than overlap a running cycle.
func (c *Coordinator) RunNow(ctx context.Context) (Result, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Result{}, ErrCycleInProgress
	}
	defer c.busy.Store(false)
	return c.run(ctx)
}

// Running reports whether a cycle is in flight.
func (c *Coordinator) Running() bool {
	return c.busy.Load()
}

// Interval returns the current cycle interval.
func (c *Coordinator) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Next returns when the timer is due to fire; zero before Start.
func (c *Coordinator) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Last returns the most recent cycle result and its error. ok is false
// until a cycle has run.
func (c *Coordinator) Last() (res Result, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Result{}, false, nil
	}
	return *c.last, true, c.lastErr
}

func (c *Coordinator) runScheduled(ctx context.Context) {
	if !c.busy.CompareAndSwap(false, true) {
		c.cycle.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCycleSkipped, Comp: "coord", Msg: "previous cycle still running"})
		return
	}
	defer c.busy.Store(false)
	c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) (Result, error) {
	res, err := c.cycle.Run(ctx)
	c.mu.Lock()
	c.last = &res
	c.lastErr = err
	c.mu.Unlock()
	return res, err
}

// arm records and returns the delay until the next scheduled cycle.
func (c *Coordinator) arm() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = time.Now().Add(c.interval)
	return c.interval
}
