package unread

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type memStore struct {
	mu  sync.Mutex
	n   int
	err error
}

func (m *memStore) AddUnread(ctx context.Context, n int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.n += n
	return m.n, nil
}

func (m *memStore) ResetUnread(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.n = 0
	return nil
}

func (m *memStore) Unread(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n, m.err
}

func TestIncrementAndReset(t *testing.T) {
	ctx := context.Background()
	var shown []int
	c := New(&memStore{}, BadgeFunc(func(n int) { shown = append(shown, n) }))

	if v, err := c.Increment(ctx, 5); err != nil || v != 5 {
		t.Fatalf("Increment = %d, %v", v, err)
	}
	if v, _ := c.Increment(ctx, 2); v != 7 {
		t.Errorf("Increment = %d, want 7", v)
	}
	if err := c.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.Value(ctx); v != 0 {
		t.Errorf("Value after reset = %d", v)
	}

	want := []int{5, 7, 0}
	if len(shown) != len(want) {
		t.Fatalf("badge saw %v, want %v", shown, want)
	}
	for i := range want {
		if shown[i] != want[i] {
			t.Errorf("badge saw %v, want %v", shown, want)
		}
	}
}

func TestIncrementNonPositiveIsNoop(t *testing.T) {
	ctx := context.Background()
	store := &memStore{n: 4}
	calls := 0
	c := New(store, BadgeFunc(func(int) { calls++ }))

	for _, n := range []int{0, -3} {
		if v, err := c.Increment(ctx, n); err != nil || v != 4 {
			t.Errorf("Increment(%d) = %d, %v", n, v, err)
		}
	}
	if calls != 0 {
		t.Error("badge should not change on a no-op increment")
	}
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("disk full")
	c := New(&memStore{err: boom})
	if _, err := c.Increment(context.Background(), 1); !errors.Is(err, boom) {
		t.Errorf("Increment err = %v", err)
	}
	if err := c.Reset(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Reset err = %v", err)
	}
}

func TestConcurrentIncrementAndReset(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	c := New(store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment(ctx, 1)
		}()
	}
	wg.Wait()
	if v, _ := c.Value(ctx); v != 50 {
		t.Errorf("lost updates: %d", v)
	}

	c.AddBadge(BadgeFunc(func(int) {}))
	wg.Add(2)
	go func() { defer wg.Done(); c.Increment(ctx, 3) }()
	go func() { defer wg.Done(); c.Reset(ctx) }()
	wg.Wait()
	if v, _ := c.Value(ctx); v != 0 && v != 3 {
		t.Errorf("counter in impossible state %d", v)
	}
}
