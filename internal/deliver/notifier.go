package deliver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/abelbrown/newsbell/internal/logging"
)

// Notifier shows one notification. The presentation transport (terminal,
// desktop bus, webhook) is up to the implementation.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			Width(72)

	cardTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	cardLink = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// ConsoleNotifier renders each notification as a bordered card.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleNotifier writes cards to w.
func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

// Render returns the card for n without writing it.
func Render(n Notification) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		cardTitle.Render(n.Title),
		n.Body,
		cardLink.Render(n.Link),
	)
	return cardStyle.Render(body)
}

// Notify implements Notifier.
func (c *ConsoleNotifier) Notify(ctx context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, Render(n))
	return err
}

// LogNotifier records notifications in the structured log. Useful for
// headless runs.
type LogNotifier struct {
	Logger *log.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	logging.OrNop(l.Logger).Info("notification", "id", n.ID, "source", n.Source, "title", n.Title, "link", n.Link)
	return nil
}

// MultiNotifier fans a notification out to every notifier. All are tried;
// their errors are joined.
type MultiNotifier []Notifier

// Notify implements Notifier.
func (m MultiNotifier) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, nf := range m {
		if err := nf.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
