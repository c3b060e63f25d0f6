package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/newsbell/internal/otel"
)

func TestDebugOverlayNilRing(t *testing.T) {
	result := debugOverlay(nil, 80, 24)
	if result != "" {
		t.Errorf("debugOverlay(nil) should return empty string, got %q", result)
	}
}

func TestDebugOverlayRendersStats(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindFetchComplete, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindFetchComplete, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindFetchError, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindNotifySent, Time: time.Now()})
	ring.Push(otel.Event{Kind: otel.KindCycleComplete, Time: time.Now()})

	result := debugOverlay(ring, 100, 40)

	if !strings.Contains(result, "Pipeline Stats") {
		t.Error("overlay should contain 'Pipeline Stats' header")
	}
	if !strings.Contains(result, "2 complete, 1 errors") {
		t.Errorf("overlay should show fetch stats, got:\n%s", result)
	}
	if !strings.Contains(result, "1 sent, 0 errors") {
		t.Errorf("overlay should show notify stats, got:\n%s", result)
	}
	if !strings.Contains(result, "5 / 64 events") {
		t.Errorf("overlay should show buffer stats, got:\n%s", result)
	}
}

func TestDebugOverlayRecentEvents(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	ring.Push(otel.Event{Kind: otel.KindCycleStart, Time: time.Now(), Msg: "hello world"})
	ring.Push(otel.Event{Kind: otel.KindFetchError, Time: time.Now(), Source: "CBR", Err: "timeout"})

	result := debugOverlay(ring, 100, 40)

	if !strings.Contains(result, "Recent Events") {
		t.Error("overlay should contain 'Recent Events' header")
	}
	if !strings.Contains(result, "hello world") {
		t.Errorf("overlay should show event message, got:\n%s", result)
	}
	if !strings.Contains(result, "ERR:timeout") || !strings.Contains(result, "CBR") {
		t.Errorf("overlay should show error and source, got:\n%s", result)
	}
}

func TestDebugOverlayTruncation(t *testing.T) {
	ring := otel.NewRingBuffer(64)
	for i := 0; i < 30; i++ {
		ring.Push(otel.Event{Kind: otel.KindFetchComplete, Time: time.Now()})
	}

	result := debugOverlay(ring, 80, 10)
	if result == "" {
		t.Error("overlay should still render with small height")
	}
	if lines := strings.Count(result, "\n"); lines > 20 {
		t.Errorf("overlay should be truncated, got %d lines", lines)
	}
}

func TestDebugToggle(t *testing.T) {
	app := NewApp(nil, nil, nil).WithEvents(otel.NewRingBuffer(16))
	m, _ := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	app = m.(App)

	if app.debugVisible {
		t.Error("debug should be hidden initially")
	}

	m, _ = app.Update(key("?"))
	updated := m.(App)
	if !updated.debugVisible {
		t.Error("? should show debug overlay")
	}
	if view := updated.View(); !strings.Contains(view, "[PIPELINE]") {
		t.Errorf("debug view should contain '[PIPELINE]', got:\n%s", view)
	}

	m, _ = updated.Update(key("?"))
	if m.(App).debugVisible {
		t.Error("second ? should hide debug overlay")
	}
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		dur  time.Duration
		want string
	}{
		{0, "0ms"},
		{50 * time.Millisecond, "50ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "2m"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{-5 * time.Second, "0ms"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.dur); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.dur, got, tt.want)
		}
	}
}
