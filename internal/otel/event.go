// Package otel records pipeline events for newsbell.
//
// Events are typed structs written as JSONL lines to the event log
// (~/.newsbell/events.jsonl) by an asynchronous writer. A RingBuffer keeps
// the most recent events in memory for the HTTP API. `newsbell events` reads
// the file back.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind is "<subsystem>.<action>".
type EventKind string

const (
	KindCycleStart    EventKind = "cycle.start"
	KindCycleComplete EventKind = "cycle.complete"
	KindCycleAbort    EventKind = "cycle.abort"
	KindCycleSkipped  EventKind = "cycle.skipped"

	KindFetchComplete EventKind = "fetch.complete"
	KindFetchError    EventKind = "fetch.error"

	KindNotifySent    EventKind = "notify.sent"
	KindNotifySkipped EventKind = "notify.skipped"
	KindNotifyError   EventKind = "notify.error"

	KindCheckpointCommit EventKind = "checkpoint.commit"
	KindStoreError       EventKind = "store.error"

	KindUnreadIncrement EventKind = "unread.increment"
	KindUnreadReset     EventKind = "unread.reset"

	KindConfigReload EventKind = "config.reload"
	KindStartup      EventKind = "sys.startup"
	KindShutdown     EventKind = "sys.shutdown"
)

// Event is one pipeline record. Every field except Kind and Time is optional.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"` // "coord", "deliver", "fetch", "store", "api"
	SessionID string         `json:"session_id,omitempty"`
	CycleID   string         `json:"cycle,omitempty"`
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"`
	Count     int            `json:"count,omitempty"`
	Source    string         `json:"source,omitempty"`
	ArticleID string         `json:"article,omitempty"`
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON fills DurMs from Dur.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	a := alias(e)
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
