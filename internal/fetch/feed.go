package fetch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/model"
)

// excerptLen caps excerpts taken from feed descriptions.
const excerptLen = 500

// FeedRecord is one RSS item or Atom entry before normalization. Published
// is nil when the feed carried no parseable date.
type FeedRecord struct {
	Title       string
	Link        string
	GUID        string
	Description string
	Content     string
	Author      string
	Thumbnail   string
	Categories  []string
	Published   *time.Time
}

// FeedAdapter reads an RSS or Atom feed.
type FeedAdapter struct {
	Source string
	URL    string
	// Author is used when an item names none.
	Author string
	// Transform, if set, adjusts each mapped article (source-specific cleanup).
	Transform func(rec FeedRecord, a *model.Article)
	Client    *Client
	Logger    *log.Logger
	Now       func() time.Time
}

// Name returns the source name.
func (a *FeedAdapter) Name() string { return a.Source }

// Records fetches and parses the feed without normalizing it. Entries with
// neither a title nor a link are dropped.
func (a *FeedAdapter) Records(ctx context.Context) ([]FeedRecord, error) {
	body, err := clientOr(a.Client).Get(ctx, a.URL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", a.URL, err)
	}

	records := make([]FeedRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		rec := toRecord(item)
		if rec.Title == "" && rec.Link == "" {
			logging.OrNop(a.Logger).Warn("dropping feed entry without title or link", "source", a.Source, "guid", rec.GUID)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Fetch implements Adapter.
func (a *FeedAdapter) Fetch(ctx context.Context) ([]model.Article, error) {
	logger := logging.OrNop(a.Logger)
	fetched := nowOr(a.Now)

	records, err := a.Records(ctx)
	if err != nil {
		return nil, err
	}

	articles := make([]model.Article, 0, len(records))
	for _, rec := range records {
		art := a.toArticle(rec)
		if art.ID == "" {
			logger.Warn("dropping feed entry without link or guid", "source", a.Source, "title", rec.Title)
			continue
		}
		if a.Transform != nil {
			a.Transform(rec, &art)
		}
		if art, ok := finalize(art, a.Source, fetched, logger); ok {
			articles = append(articles, art)
		}
	}

	logger.Debug("feed parsed", "source", a.Source, "entries", len(records), "articles", len(articles))
	return articles, nil
}

func (a *FeedAdapter) toArticle(rec FeedRecord) model.Article {
	id := rec.Link
	if id == "" {
		id = rec.GUID
	}

	excerpt := rec.Description
	if excerpt == "" {
		excerpt = rec.Content
	}

	author := rec.Author
	if author == "" {
		author = a.Author
	}

	art := model.Article{
		ID:          id,
		Title:       strings.TrimSpace(rec.Title),
		Excerpt:     Truncate(StripHTML(excerpt), excerptLen),
		Author:      author,
		Link:        rec.Link,
		Thumbnail:   rec.Thumbnail,
		Source:      a.Source,
		Categories:  rec.Categories,
		GUID:        rec.GUID,
		Description: rec.Description,
	}
	if rec.Published != nil {
		art.Date = *rec.Published
	}
	return art
}

func toRecord(item *gofeed.Item) FeedRecord {
	rec := FeedRecord{
		Title:       strings.TrimSpace(item.Title),
		Link:        strings.TrimSpace(item.Link),
		GUID:        strings.TrimSpace(item.GUID),
		Description: strings.TrimSpace(item.Description),
		Content:     strings.TrimSpace(item.Content),
		Categories:  item.Categories,
		Thumbnail:   feedThumbnail(item),
	}
	if rec.Link == "" && len(item.Links) > 0 {
		rec.Link = strings.TrimSpace(item.Links[0])
	}
	if item.Author != nil {
		rec.Author = strings.TrimSpace(item.Author.Name)
	}

	switch {
	case item.PublishedParsed != nil && !item.PublishedParsed.IsZero():
		t := *item.PublishedParsed
		rec.Published = &t
	case item.UpdatedParsed != nil && !item.UpdatedParsed.IsZero():
		t := *item.UpdatedParsed
		rec.Published = &t
	}
	return rec
}

// feedThumbnail looks for media:content, then an image enclosure, then the
// item image.
func feedThumbnail(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, name := range []string{"content", "thumbnail"} {
			for _, e := range media[name] {
				if u := e.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}
