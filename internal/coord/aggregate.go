package coord

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/filter"
	"github.com/abelbrown/newsbell/internal/model"
)

// fetchTimeout is the default timeout for each individual source.
const fetchTimeout = 30 * time.Second

// maxConcurrentFetches limits parallel fetch operations.
const maxConcurrentFetches = 5

// SourceResult reports one adapter's contribution to a cycle.
type SourceResult struct {
	Source   string
	Articles int
	Err      error
	Dur      time.Duration
}

// Aggregate fetches every source concurrently, each under its own timeout,
// and returns the combined articles deduplicated by ID and sorted newest
// first. A failing source contributes whatever partial list it returned;
// its error is reported in the results, never returned.
func Aggregate(ctx context.Context, sources []fetch.Source, limit int, timeout time.Duration) ([]model.Article, []SourceResult) {
	if limit <= 0 {
		limit = maxConcurrentFetches
	}
	if timeout <= 0 {
		timeout = fetchTimeout
	}

	batches := make([][]model.Article, len(sources))
	results := make([]SourceResult, len(sources))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, src := range sources {
		g.Go(func() error {
			results[i] = SourceResult{Source: src.Name}
			if ctx.Err() != nil {
				results[i].Err = ctx.Err()
				return nil
			}

			fetchCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			articles, err := src.Adapter.Fetch(fetchCtx)
			batches[i] = articles
			results[i].Articles = len(articles)
			results[i].Err = err
			results[i].Dur = time.Since(start)
			return nil // never fail the group - errors reported per-source
		})
	}
	_ = g.Wait()

	var all []model.Article
	for _, b := range batches {
		all = append(all, b...)
	}
	all = filter.Dedup(all)
	filter.SortByDate(all)
	return all, results
}

// Policies maps each source to its date-comparison granularity.
func Policies(sources []fetch.Source) map[string]model.Granularity {
	out := make(map[string]model.Granularity, len(sources))
	for _, s := range sources {
		out[s.Name] = s.Granularity
	}
	return out
}
