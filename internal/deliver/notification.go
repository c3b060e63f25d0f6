// Package deliver turns new articles into notifications, throttled and in
// order.
package deliver

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/abelbrown/newsbell/internal/model"
)

// BodyLen is the number of excerpt runes shown before "...". Host
// notification surfaces clip longer bodies without an ellipsis.
const BodyLen = 109

// Notification is one message handed to a Notifier.
type Notification struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Icon   string `json:"icon,omitempty"`
	Link   string `json:"link"`
	Source string `json:"source"`
}

// NewNotification builds the notification for a. The body is the excerpt,
// shortened to BodyLen runes, followed by the source in parentheses on its
// own line. Articles without a thumbnail use defaultIcon.
func NewNotification(a model.Article, defaultIcon string) Notification {
	icon := a.Thumbnail
	if icon == "" {
		icon = defaultIcon
	}
	return Notification{
		ID:     uuid.NewString(),
		Title:  a.Title,
		Body:   fmt.Sprintf("%s\n(%s)", shorten(strings.TrimSpace(a.Excerpt), BodyLen), a.Source),
		Icon:   icon,
		Link:   a.Link,
		Source: a.Source,
	}
}

func shorten(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimRight(string(runes[:n]), " ") + "..."
}
