// Package model provides the data types shared by every stage of the
// aggregation pipeline.
//
// An Article is the canonical unit: every adapter, whatever the raw shape of
// its source, produces Articles. Checkpoints are the per-source watermarks the
// incremental filter compares against.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Article is a normalized news item.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Author    string    `json:"author,omitempty"`
	Link      string    `json:"link"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Source    string    `json:"source"`
	Date      time.Time `json:"date"`

	// Feed-only metadata. Scrapers rarely see these; the merger copies them
	// over from a parallel feed.
	Categories  []string `json:"categories,omitempty"`
	GUID        string   `json:"guid,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Valid reports whether the article can be cached and ordered.
func (a Article) Valid() error {
	switch {
	case strings.TrimSpace(a.ID) == "":
		return fmt.Errorf("article %q: missing id", a.Title)
	case a.Source == "":
		return fmt.Errorf("article %q: missing source", a.ID)
	case a.Date.IsZero():
		return fmt.Errorf("article %q: missing date", a.ID)
	}
	return nil
}

// ISODate returns Date in the canonical UTC RFC 3339 form used for storage.
func (a Article) ISODate() string {
	return FormatTime(a.Date)
}

// FormatTime renders t as RFC 3339 in UTC with nanosecond precision trimmed.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses the storage form written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// Granularity describes how precise a source's native timestamps are, and
// therefore how the incremental filter compares them.
type Granularity int

const (
	// Exact sources carry a reliable time of day.
	Exact Granularity = iota
	// Day sources only carry a reliable calendar day.
	Day
)

func (g Granularity) String() string {
	if g == Day {
		return "day"
	}
	return "exact"
}

// ParseGranularity accepts "exact" or "day" (case-insensitive). Empty means Exact.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return Exact, nil
	case "day":
		return Day, nil
	}
	return Exact, fmt.Errorf("unknown granularity %q", s)
}
