package otel

import "sync"

// DefaultRingSize is the capacity used when NewRingBuffer gets n <= 0.
const DefaultRingSize = 256

// RingBuffer holds the last N events. Safe for concurrent use.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	next  int
	count int
}

// NewRingBuffer creates a buffer holding up to n events.
func NewRingBuffer(n int) *RingBuffer {
	if n <= 0 {
		n = DefaultRingSize
	}
	return &RingBuffer{buf: make([]Event, n)}
}

// Push stores e, evicting the oldest event when full.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		extra := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			extra[k] = v
		}
		e.Extra = extra
	}

	r.mu.Lock()
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.mu.Unlock()
}

// Last returns up to n of the newest events, oldest first.
func (r *RingBuffer) Last(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n <= 0 || r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	out := make([]Event, n)
	start := r.next - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Counts tallies buffered events by kind.
func (r *RingBuffer) Counts() map[EventKind]int {
	counts := make(map[EventKind]int)
	for _, e := range r.Last(r.Len()) {
		counts[e.Kind]++
	}
	return counts
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}
