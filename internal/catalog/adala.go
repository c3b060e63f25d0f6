package catalog

import (
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/model"
)

const adalaURL = "https://adala-news.fr/"

func adalaSource(opts Options) fetch.Source {
	return fetch.Source{
		Name:        AdalaNews,
		Granularity: model.Exact,
		Adapter: &fetch.ScrapeAdapter{
			Source:   AdalaNews,
			URL:      opts.url(AdalaNews, adalaURL),
			Selector: ".list-post",
			Extract:  adalaExtractor(opts.loc(), opts.Logger),
			Client:   opts.Client,
			Logger:   opts.Logger,
			Now:      opts.Now,
		},
	}
}

var isoLayouts = []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseISODate reads the datetime attribute formats the sites use. Values
// without a UTC offset are wall-clock times in loc.
func ParseISODate(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func adalaExtractor(loc *time.Location, logger *log.Logger) fetch.ItemExtractor {
	return func(item *goquery.Selection, base *url.URL, fetched time.Time) (model.Article, error) {
		href, err := fetch.RequireAttr(item, ".penci-entry-title a", "href")
		if err != nil {
			return model.Article{}, err
		}
		title, err := fetch.RequireText(item, ".penci-entry-title a")
		if err != nil {
			return model.Article{}, err
		}

		var date time.Time
		if raw := fetch.Attr(item, ".otherl-date time", "datetime"); raw != "" {
			if t, ok := ParseISODate(raw, loc); ok {
				date = t
			} else {
				logger.Warn("adala datetime unreadable", "datetime", raw)
			}
		}

		thumb := fetch.Attr(item, ".penci-image-holder", "data-bgset", "data-src")
		if thumb != "" {
			thumb = fetch.ResolveURL(base, thumb)
		}

		link := fetch.ResolveURL(base, href)
		return model.Article{
			ID:        link,
			Title:     title,
			Link:      link,
			Excerpt:   fetch.Text(item, ".item-content p"),
			Author:    fetch.Text(item, ".author-url"),
			Date:      date,
			Thumbnail: thumb,
			Source:    AdalaNews,
		}, nil
	}
}
