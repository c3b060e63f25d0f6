package fetch

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/abelbrown/newsbell/internal/model"
)

// ClampFuture returns fetched when t lies after it. Sites that print
// ambiguous day/month dates otherwise produce articles from the future that
// would pin a checkpoint ahead of every real article.
func ClampFuture(t, fetched time.Time, logger *log.Logger, source string) time.Time {
	if t.After(fetched) {
		if logger != nil {
			logger.Warn("future article date clamped to fetch time",
				"source", source, "date", t.Format(time.RFC3339), "fetched", fetched.Format(time.RFC3339))
		}
		return fetched
	}
	return t
}

// finalize applies the rules every adapter shares: stamp the source, replace
// a missing date with the fetch instant, clamp future dates, and reject
// articles that still cannot be cached.
func finalize(a model.Article, source string, fetched time.Time, logger *log.Logger) (model.Article, bool) {
	if a.Source == "" {
		a.Source = source
	}
	if a.ID == "" {
		a.ID = a.Link
	}
	if a.Date.IsZero() {
		logger.Warn("unparseable article date, using fetch time", "source", source, "id", a.ID)
		a.Date = fetched
	}
	a.Date = ClampFuture(a.Date, fetched, logger, source)

	if err := a.Valid(); err != nil {
		logger.Warn("dropping article", "source", source, "err", err)
		return model.Article{}, false
	}
	return a, true
}

var spaceRe = regexp.MustCompile(`\s+`)

// StripHTML returns the text content of an HTML fragment with entities
// decoded and whitespace collapsed.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Truncate shortens s to maxLen runes, ending in "..." when cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// ResolveURL makes href absolute against base. Protocol-relative URLs get
// https. An unparseable href is returned unchanged.
func ResolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
