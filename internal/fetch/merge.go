package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/model"
)

// Merge enriches scraped articles with the feed records that share their
// link. For a match, the feed's categories, guid and description replace
// the scraped ones, and its date does too when it is a real instant. Fields
// the feed lacks are left alone. Unmatched articles pass through.
//
// The join is by exact link, so merging the same records twice changes
// nothing.
func Merge(scraped []model.Article, records []FeedRecord) []model.Article {
	byLink := make(map[string]FeedRecord, len(records))
	for _, rec := range records {
		if rec.Link == "" {
			continue
		}
		if _, dup := byLink[rec.Link]; !dup {
			byLink[rec.Link] = rec
		}
	}

	out := make([]model.Article, len(scraped))
	for i, art := range scraped {
		rec, ok := byLink[art.Link]
		if !ok {
			out[i] = art
			continue
		}
		if len(rec.Categories) > 0 {
			art.Categories = append([]string(nil), rec.Categories...)
		}
		if rec.GUID != "" {
			art.GUID = rec.GUID
		}
		if rec.Description != "" {
			art.Description = rec.Description
		}
		if rec.Published != nil && !rec.Published.IsZero() {
			art.Date = *rec.Published
		}
		out[i] = art
	}
	return out
}

// MergeAdapter runs a primary adapter (usually a scrape) and a feed for the
// same site concurrently, then merges them. The feed is optional: when it
// fails the scraped articles are returned unmerged. Feed dates that lie
// after the fetch instant (Enrich.Now) are clamped to it, like any other
// adapter's.
type MergeAdapter struct {
	Primary Adapter
	Enrich  *FeedAdapter
	Logger  *log.Logger
}

// Name returns the primary adapter's name.
func (a *MergeAdapter) Name() string { return a.Primary.Name() }

// Fetch implements Adapter.
func (a *MergeAdapter) Fetch(ctx context.Context) ([]model.Article, error) {
	logger := logging.OrNop(a.Logger)
	fetched := nowOr(a.Enrich.Now)

	var (
		scraped             []model.Article
		records             []FeedRecord
		primaryErr, feedErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		scraped, primaryErr = a.Primary.Fetch(ctx)
		return nil
	})
	g.Go(func() error {
		records, feedErr = a.Enrich.Records(ctx)
		return nil
	})
	_ = g.Wait()

	if feedErr != nil {
		logger.Warn("enrichment feed failed, keeping scraped data", "source", a.Name(), "err", feedErr)
		feedErr = fmt.Errorf("enrich %s: %w", a.Name(), feedErr)
	}

	merged := Merge(scraped, records)
	for i := range merged {
		merged[i].Date = ClampFuture(merged[i].Date, fetched, logger, a.Name())
	}
	return merged, errors.Join(primaryErr, feedErr)
}
