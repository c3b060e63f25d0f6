package ui

import (
	"fmt"
	"time"

	"github.com/abelbrown/newsbell/internal/model"
)

// articleItem adapts an Article to list.DefaultItem.
type articleItem struct {
	a   model.Article
	now time.Time
}

func (i articleItem) Title() string { return i.a.Title }

func (i articleItem) Description() string {
	return fmt.Sprintf("%s · %s", i.a.Source, relativeTime(i.a.Date, i.now))
}

func (i articleItem) FilterValue() string { return i.a.Title + " " + i.a.Source }

// relativeTime renders t relative to now: "just now", "5m ago", "3h ago",
// "yesterday", or a date for anything older.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 48*time.Hour:
		return "yesterday"
	default:
		return t.Local().Format("Jan 2")
	}
}
