package otel

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEmitWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindCycleStart, Level: LevelInfo, Comp: "coord", CycleID: "c1"})
	l.Emit(Event{Kind: KindNotifySent, Level: LevelInfo, Comp: "deliver", Source: "CBR", ArticleID: "https://cbr.com/x"})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if first["kind"] != "cycle.start" || first["comp"] != "coord" || first["cycle"] != "c1" {
		t.Errorf("unexpected first event: %v", first)
	}
	if first["session_id"] == "" || first["session_id"] == nil {
		t.Error("session_id should be set")
	}

	var second Event
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if second.Source != "CBR" || second.ArticleID != "https://cbr.com/x" {
		t.Errorf("unexpected second event: %+v", second)
	}
	if second.Time.IsZero() {
		t.Error("time should be filled in")
	}
}

func TestDurationSerializedAsMillis(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindCycleComplete, Dur: 2500 * time.Millisecond})
	l.Close()

	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["dur_ms"] != 2500.0 {
		t.Errorf("dur_ms = %v, want 2500", decoded["dur_ms"])
	}
}

func TestHelpers(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Info(KindStartup, "main", "starting")
	l.Warn(KindFetchError, "fetch", "timeout")
	l.Error(KindStoreError, "store", errors.New("disk full"))
	l.Error(KindStoreError, "store", nil)
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Level != LevelError || ev.Err != "disk full" {
		t.Errorf("unexpected error event: %+v", ev)
	}
}

func TestEmitAfterCloseIsDropped(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Close()
	l.Emit(Event{Kind: KindShutdown})
	l.Close() // idempotent

	if buf.Len() != 0 {
		t.Errorf("expected nothing written, got %q", buf.String())
	}
	if l.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", l.Dropped())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Emit(Event{Kind: KindStartup})
	l.Info(KindStartup, "main", "x")
	l.Close()
}

func TestConcurrentEmit(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.Emit(Event{Kind: KindFetchComplete})
			}
		}()
	}
	wg.Wait()
	l.Close()

	got := len(strings.Split(strings.TrimSpace(buf.String()), "\n"))
	if got+int(l.Dropped()) != 200 {
		t.Errorf("written %d + dropped %d != 200", got, l.Dropped())
	}
}

func TestLoggerFeedsRingBuffer(t *testing.T) {
	l := NewNullLogger()
	ring := NewRingBuffer(4)
	l.SetRingBuffer(ring)

	l.Info(KindCycleStart, "coord", "")
	l.Info(KindCycleComplete, "coord", "")
	l.Close()

	events := ring.Last(10)
	if len(events) != 2 {
		t.Fatalf("expected 2 events in ring, got %d", len(events))
	}
	if events[0].Kind != KindCycleStart || events[1].Kind != KindCycleComplete {
		t.Errorf("unexpected order: %v, %v", events[0].Kind, events[1].Kind)
	}
}
