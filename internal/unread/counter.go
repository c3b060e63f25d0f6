// Package unread owns the unread-article counter.
//
// The stored value is the only source of truth. Increments are a single
// atomic add in the backend, so a timer cycle and a user acknowledgment
// racing each other never lose an update.
package unread

import (
	"context"
	"fmt"
	"sync"
)

// Store is the durable side of the counter.
type Store interface {
	AddUnread(ctx context.Context, n int) (int, error)
	ResetUnread(ctx context.Context) error
	Unread(ctx context.Context) (int, error)
}

// Badge mirrors the counter somewhere visible. 0 clears it.
type Badge interface {
	SetBadge(n int)
}

// BadgeFunc adapts a function to Badge.
type BadgeFunc func(n int)

// SetBadge calls f.
func (f BadgeFunc) SetBadge(n int) { f(n) }

// Counter increments and resets the unread count and keeps badges in step.
type Counter struct {
	store Store

	mu     sync.Mutex
	badges []Badge
}

// New returns a Counter backed by store.
func New(store Store, badges ...Badge) *Counter {
	return &Counter{store: store, badges: badges}
}

// AddBadge registers another badge.
func (c *Counter) AddBadge(b Badge) {
	c.mu.Lock()
	c.badges = append(c.badges, b)
	c.mu.Unlock()
}

// Increment adds n and returns the new total. n <= 0 is a no-op that
// reports the current value.
func (c *Counter) Increment(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return c.Value(ctx)
	}
	v, err := c.store.AddUnread(ctx, n)
	if err != nil {
		return 0, fmt.Errorf("increment unread: %w", err)
	}
	c.show(v)
	return v, nil
}

// Reset zeroes the counter and clears badges.
func (c *Counter) Reset(ctx context.Context) error {
	if err := c.store.ResetUnread(ctx); err != nil {
		return fmt.Errorf("reset unread: %w", err)
	}
	c.show(0)
	return nil
}

// Value returns the stored count.
func (c *Counter) Value(ctx context.Context) (int, error) {
	v, err := c.store.Unread(ctx)
	if err != nil {
		return 0, fmt.Errorf("read unread: %w", err)
	}
	return v, nil
}

func (c *Counter) show(v int) {
	c.mu.Lock()
	badges := append([]Badge(nil), c.badges...)
	c.mu.Unlock()
	for _, b := range badges {
		b.SetBadge(v)
	}
}
