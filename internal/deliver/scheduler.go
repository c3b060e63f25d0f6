package deliver

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/model"
)

// DefaultDelay separates consecutive notifications. Faster bursts are
// dropped or collapsed by most notification surfaces.
const DefaultDelay = 3 * time.Second

// Scheduler emits notifications for the newest articles of a cycle, one at a
// time, Delay apart.
type Scheduler struct {
	Notifier Notifier
	// Enabled is consulted before every emission, so turning notifications
	// off mid-cycle takes effect before the next one. Nil means enabled.
	Enabled func() bool
	// MaxCount caps notifications per cycle.
	MaxCount func() int
	Delay    func() time.Duration
	// DefaultIcon returns the icon for articles without a thumbnail. It is
	// read once per Deliver.
	DefaultIcon func() string
	// Links, if set, records each emitted notification for click-through.
	Links *Links
	// Sent, if set, observes each emission and its notifier error.
	Sent   func(n Notification, err error)
	Logger *log.Logger
}

// Deliver notifies the first min(len(articles), MaxCount) articles, which
// are expected newest first. It returns how many notifications were handed
// to the notifier without error. A cancelled ctx stops delivery and returns
// ctx.Err(); notifications already shown stand.
func (s *Scheduler) Deliver(ctx context.Context, articles []model.Article) (int, error) {
	logger := logging.OrNop(s.Logger)

	n := len(articles)
	if m := s.maxCount(); n > m {
		n = m
	}
	if n == 0 {
		return 0, nil
	}

	icon := ""
	if s.DefaultIcon != nil {
		icon = s.DefaultIcon()
	}

	limiter := rate.NewLimiter(s.limit(), 1)
	sent := 0
	for _, a := range articles[:n] {
		if err := limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return sent, ctxErr
			}
			return sent, err
		}
		if !s.enabled() {
			logger.Info("notifications disabled, skipping emission", "remaining", n-sent)
			return sent, nil
		}

		note := NewNotification(a, icon)
		if s.Links != nil {
			s.Links.Put(note.ID, note.Link)
		}
		err := s.Notifier.Notify(ctx, note)
		if err != nil {
			logger.Warn("notification failed", "source", a.Source, "id", a.ID, "err", err)
		} else {
			sent++
		}
		if s.Sent != nil {
			s.Sent(note, err)
		}
	}
	return sent, nil
}

func (s *Scheduler) enabled() bool {
	return s.Enabled == nil || s.Enabled()
}

func (s *Scheduler) maxCount() int {
	if s.MaxCount == nil {
		return 0
	}
	if m := s.MaxCount(); m > 0 {
		return m
	}
	return 0
}

func (s *Scheduler) limit() rate.Limit {
	d := DefaultDelay
	if s.Delay != nil {
		d = s.Delay()
	}
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}
