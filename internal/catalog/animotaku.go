package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/model"
)

const (
	animotakuURL     = "https://animotaku.fr/category/actualite/"
	animotakuFeedURL = "https://animotaku.fr/feed/"
)

// Animotaku prints only a calendar day, so it is compared by day. Its RSS
// feed carries real timestamps and is merged in by link.
func animotakuSource(opts Options) fetch.Source {
	scrape := &fetch.ScrapeAdapter{
		Source:   Animotaku,
		URL:      opts.url(Animotaku, animotakuURL),
		Selector: ".elementor-post",
		Extract:  animotakuExtractor(opts.loc(), opts.Logger),
		Client:   opts.Client,
		Logger:   opts.Logger,
		Now:      opts.Now,
	}
	feed := &fetch.FeedAdapter{
		Source: Animotaku,
		URL:    opts.url(Animotaku+" RSS", animotakuFeedURL),
		Client: opts.Client,
		Logger: opts.Logger,
		Now:    opts.Now,
	}
	return fetch.Source{
		Name:        Animotaku,
		Granularity: model.Day,
		Adapter:     &fetch.MergeAdapter{Primary: scrape, Enrich: feed, Logger: opts.Logger},
	}
}

func animotakuExtractor(loc *time.Location, logger *log.Logger) fetch.ItemExtractor {
	return func(item *goquery.Selection, base *url.URL, fetched time.Time) (model.Article, error) {
		href, err := fetch.RequireAttr(item, ".elementor-post__title a", "href")
		if err != nil {
			return model.Article{}, err
		}
		title, err := fetch.RequireText(item, ".elementor-post__title a")
		if err != nil {
			return model.Article{}, err
		}
		excerpt, err := fetch.RequireText(item, ".elementor-post__excerpt p")
		if err != nil {
			return model.Article{}, err
		}
		author, err := fetch.RequireText(item, ".elementor-post-author")
		if err != nil {
			return model.Article{}, err
		}

		raw := fetch.Text(item, ".elementor-post-date")
		date, err := ParseFrenchDate(raw, fetched, loc)
		if err != nil {
			logger.Warn("animotaku date unreadable, using fetch time", "date", raw, "err", err)
		}

		var thumb string
		if src := fetch.Attr(item, ".elementor-post__thumbnail img", "data-lazy-src", "src"); src != "" {
			thumb = AbsoluteThumbnail(src)
		}

		link := fetch.ResolveURL(base, href)
		return model.Article{
			ID:        link,
			Title:     title,
			Link:      link,
			Excerpt:   excerpt,
			Author:    author,
			Date:      date,
			Thumbnail: thumb,
			Source:    Animotaku,
		}, nil
	}
}

var frenchMonths = []string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// Unaccented spellings seen in the wild.
var frenchMonthsPlain = []string{
	"janvier", "fevrier", "mars", "avril", "mai", "juin",
	"juillet", "aout", "septembre", "octobre", "novembre", "decembre",
}

// FrenchMonth returns the month named by s ("mars", "Février", "déc."),
// matching full names by prefix and abbreviations of at least three letters.
func FrenchMonth(s string) (time.Month, bool) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
	if s == "" {
		return 0, false
	}
	for _, names := range [][]string{frenchMonths, frenchMonthsPlain} {
		for i, name := range names {
			if strings.HasPrefix(s, name) {
				return time.Month(i + 1), true
			}
		}
	}
	if len([]rune(s)) >= 3 {
		for _, names := range [][]string{frenchMonths, frenchMonthsPlain} {
			for i, name := range names {
				if strings.HasPrefix(name, s) {
					return time.Month(i + 1), true
				}
			}
		}
	}
	return 0, false
}

// ParseFrenchDate reads "12 mars 2024" in loc.
//
// The site gives no time of day, so the result is:
//   - the fetch instant when the day is today (or in the future),
//   - 23:59:59 of that day otherwise, so day-granularity comparisons see the
//     whole day as covered.
//
// On error the fetch instant is returned alongside the error.
func ParseFrenchDate(s string, fetched time.Time, loc *time.Location) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return fetched, fmt.Errorf("want \"day month year\", got %q", s)
	}

	day, err := strconv.Atoi(fields[0])
	if err != nil || day < 1 || day > 31 {
		return fetched, fmt.Errorf("bad day in %q", s)
	}
	month, ok := FrenchMonth(fields[1])
	if !ok {
		return fetched, fmt.Errorf("unknown month in %q", s)
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil {
		return fetched, fmt.Errorf("bad year in %q", s)
	}

	midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if midnight.Day() != day {
		return fetched, fmt.Errorf("no such date %q", s)
	}

	local := fetched.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if !midnight.Before(today) {
		if midnight.After(today) {
			return fetched, fmt.Errorf("date %q is in the future", s)
		}
		return fetched, nil
	}
	return time.Date(year, month, day, 23, 59, 59, 0, loc), nil
}

// AbsoluteThumbnail turns a protocol-relative image URL into https.
func AbsoluteThumbnail(src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}
