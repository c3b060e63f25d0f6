package otel

// The drain goroutine is the only reader of l.ch and the only writer to l.w.
// l.mu guards the ring pointer alone.

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// queueSize bounds the async write channel.
const queueSize = 1024

type entry struct {
	line []byte
	ev   Event
}

// Logger writes Events as JSONL through a buffered channel. Emit never
// blocks: a full queue drops the event and bumps Dropped.
type Logger struct {
	mu      sync.Mutex
	ring    *RingBuffer
	session string
	ch      chan entry
	w       io.Writer
	dropped atomic.Uint64
	closed  atomic.Bool
	done    chan struct{}
	once    sync.Once
}

// NewLogger starts a Logger writing to w. Call Close to flush.
func NewLogger(w io.Writer) *Logger {
	var sid [6]byte
	_, _ = rand.Read(sid[:])

	l := &Logger{
		session: fmt.Sprintf("%x", sid[:]),
		ch:      make(chan entry, queueSize),
		w:       w,
		done:    make(chan struct{}),
	}
	go l.drain()
	return l
}

// NewNullLogger discards events. Close should still be called.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// OpenFile appends to the event log at path.
func OpenFile(path string) (*Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open event log: %w", err)
	}
	return NewLogger(f), f, nil
}

func (l *Logger) drain() {
	defer close(l.done)
	for e := range l.ch {
		if _, err := l.w.Write(e.line); err != nil {
			l.dropped.Add(1)
		}

		l.mu.Lock()
		ring := l.ring
		l.mu.Unlock()
		if ring != nil {
			ring.Push(e.ev)
		}
	}
}

// Emit queues e. Safe on a nil Logger and after Close.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	defer func() {
		// Close may race the closed check below and close the channel
		// under us.
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	line = append(line, '\n')

	select {
	case l.ch <- entry{line: line, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info event for comp.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn event for comp.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error event. A nil err is logged as empty.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	var s string
	if err != nil {
		s = err.Error()
	}
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: s})
}

// SetRingBuffer mirrors every written event into buf.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	l.mu.Lock()
	l.ring = buf
	l.mu.Unlock()
}

// Dropped returns how many events were lost.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.ch)
		<-l.done
		if d := l.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "newsbell: %d events dropped in session %s\n", d, l.session)
		}
	})
}
