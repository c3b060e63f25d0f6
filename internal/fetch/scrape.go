package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/model"
)

// ErrMissingField is returned by extractors when a required sub-element is
// absent from an item container.
var ErrMissingField = errors.New("missing field")

// ItemExtractor maps one item container to an Article. base is the page URL
// for resolving relative links. A returned error drops the item.
type ItemExtractor func(item *goquery.Selection, base *url.URL, fetched time.Time) (model.Article, error)

// ScrapeAdapter fetches an HTML (or loosely XML) page, selects every item
// container matching Selector and maps each through Extract.
type ScrapeAdapter struct {
	Source   string
	URL      string
	Selector string
	Extract  ItemExtractor
	Client   *Client
	Logger   *log.Logger
	Now      func() time.Time
}

// Name returns the source name.
func (a *ScrapeAdapter) Name() string { return a.Source }

// Fetch implements Adapter.
func (a *ScrapeAdapter) Fetch(ctx context.Context) ([]model.Article, error) {
	logger := logging.OrNop(a.Logger)
	fetched := nowOr(a.Now)

	body, err := clientOr(a.Client).Get(ctx, a.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", a.URL, err)
	}

	base, _ := url.Parse(a.URL)
	items := doc.Find(a.Selector)
	articles := make([]model.Article, 0, items.Length())

	items.Each(func(i int, sel *goquery.Selection) {
		art, err := a.Extract(sel, base, fetched)
		if err != nil {
			logger.Warn("dropping scraped item", "source", a.Source, "index", i, "err", err)
			return
		}
		if art, ok := finalize(art, a.Source, fetched, logger); ok {
			articles = append(articles, art)
		}
	})

	logger.Debug("scraped", "source", a.Source, "containers", items.Length(), "articles", len(articles))
	return articles, nil
}

// Text returns the trimmed text of the first match of css inside sel.
func Text(sel *goquery.Selection, css string) string {
	return strings.TrimSpace(sel.Find(css).First().Text())
}

// RequireText is Text but fails when the element is absent or empty.
func RequireText(sel *goquery.Selection, css string) (string, error) {
	found := sel.Find(css).First()
	if found.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingField, css)
	}
	txt := strings.TrimSpace(found.Text())
	if txt == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingField, css)
	}
	return txt, nil
}

// Attr returns the first non-empty attribute among names on the first match
// of css inside sel.
func Attr(sel *goquery.Selection, css string, names ...string) string {
	found := sel
	if css != "" {
		found = sel.Find(css).First()
	}
	for _, name := range names {
		if v, ok := found.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// RequireAttr is Attr but fails when no attribute is present.
func RequireAttr(sel *goquery.Selection, css string, names ...string) (string, error) {
	v := Attr(sel, css, names...)
	if v == "" {
		return "", fmt.Errorf("%w: %s[%s]", ErrMissingField, css, strings.Join(names, "|"))
	}
	return v, nil
}

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
