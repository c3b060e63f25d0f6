// Package filter provides pure filter functions for articles.
// All functions are simple: []Article in, []Article out. No side effects.
package filter

import (
	"sort"
	"time"

	"github.com/abelbrown/newsbell/internal/model"
)

// IsNew reports whether a is new relative to checkpoint. When has is false
// the source has never been seen and every article is new.
//
// Exact sources compare instants. Day sources compare calendar days in loc:
// an article is new only on a day strictly after the checkpoint's day, so
// same-day time-of-day jitter never re-notifies.
func IsNew(a model.Article, checkpoint time.Time, has bool, g model.Granularity, loc *time.Location) bool {
	if !has {
		return true
	}
	if g == model.Day {
		return Midnight(a.Date, loc).After(Midnight(checkpoint, loc))
	}
	return a.Date.After(checkpoint)
}

// Midnight truncates t to the start of its calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// NewSince keeps the articles that are new relative to their source's
// checkpoint. Sources missing from policies use exact comparison. Order is
// preserved.
func NewSince(articles []model.Article, checkpoints model.Checkpoints, policies map[string]model.Granularity, loc *time.Location) []model.Article {
	result := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		cp, has := checkpoints[a.Source]
		if IsNew(a, cp, has, policies[a.Source], loc) {
			result = append(result, a)
		}
	}
	return result
}

// Dedup removes articles with duplicate IDs. First occurrence wins.
func Dedup(articles []model.Article) []model.Article {
	if len(articles) == 0 {
		return []model.Article{}
	}

	seen := make(map[string]bool, len(articles))
	result := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		result = append(result, a)
	}
	return result
}

// SortByDate sorts newest first. Ties keep their input order.
func SortByDate(articles []model.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Date.After(articles[j].Date)
	})
}

// BySources keeps only articles whose source is enabled. A source absent
// from enabled counts as enabled.
func BySources(articles []model.Article, enabled map[string]bool) []model.Article {
	result := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if on, ok := enabled[a.Source]; ok && !on {
			continue
		}
		result = append(result, a)
	}
	return result
}

// BySource keeps only articles from the named sources.
func BySource(articles []model.Article, sources []string) []model.Article {
	if len(articles) == 0 || len(sources) == 0 {
		return []model.Article{}
	}

	allowed := make(map[string]bool, len(sources))
	for _, s := range sources {
		allowed[s] = true
	}

	result := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if allowed[a.Source] {
			result = append(result, a)
		}
	}
	return result
}

// ByAge removes articles dated before now-maxAge.
func ByAge(articles []model.Article, maxAge time.Duration, now time.Time) []model.Article {
	cutoff := now.Add(-maxAge)
	result := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		if !a.Date.Before(cutoff) {
			result = append(result, a)
		}
	}
	return result
}

// Page returns articles[offset:offset+limit], clamped to the slice. A
// non-positive limit returns everything from offset.
func Page(articles []model.Article, offset, limit int) []model.Article {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(articles) {
		return []model.Article{}
	}
	end := len(articles)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return articles[offset:end]
}
