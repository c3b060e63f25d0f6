package catalog

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/model"
)

// Anime News Network is read through Feedly's mix endpoint, which returns a
// JSON document rather than the site's own RSS.
const annURL = "https://api.feedly.com/v3/mixes/contents?streamId=feed/http://www.animenewsnetwork.com/newsfeed/rss.xml&count=15&hours=16&backfill=true&boostSource=true"

func annSource(opts Options) fetch.Source {
	return fetch.Source{
		Name:        AnimeNewsNetwork,
		Granularity: model.Exact,
		Adapter: &fetch.APIAdapter{
			Source: AnimeNewsNetwork,
			URL:    opts.url(AnimeNewsNetwork, annURL),
			Items:  fetch.ItemsAt("items"),
			Map:    MapFeedlyItem,
			Client: opts.Client,
			Logger: opts.Logger,
			Now:    opts.Now,
		},
	}
}

type feedlyItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Canonical string `json:"canonicalUrl"`
	Published int64  `json:"published"`
	Alternate []struct {
		Href string `json:"href"`
	} `json:"alternate"`
	Summary *struct {
		Content string `json:"content"`
	} `json:"summary"`
	Visual *struct {
		URL string `json:"url"`
	} `json:"visual"`
}

var citeElement = regexp.MustCompile(`(?is)<cite>.*?</cite>`)

// StripCite removes <cite>…</cite> elements ANN appends to summaries.
func StripCite(s string) string {
	return citeElement.ReplaceAllString(s, "")
}

// MapFeedlyItem converts one Feedly entry. published is epoch milliseconds;
// a visual URL of "none" means no image.
func MapFeedlyItem(raw json.RawMessage, _ time.Time) (model.Article, error) {
	var it feedlyItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return model.Article{}, err
	}
	if strings.TrimSpace(it.Title) == "" {
		return model.Article{}, errors.New("feedly item without title")
	}

	link := it.Canonical
	for _, alt := range it.Alternate {
		if alt.Href != "" {
			link = alt.Href
			break
		}
	}

	id := link
	if id == "" {
		id = it.ID
	}

	var excerpt string
	if it.Summary != nil {
		excerpt = fetch.StripHTML(StripCite(it.Summary.Content))
	}

	var thumb string
	if it.Visual != nil && it.Visual.URL != "none" {
		thumb = it.Visual.URL
	}

	var date time.Time
	if it.Published > 0 {
		date = time.UnixMilli(it.Published).UTC()
	}

	return model.Article{
		ID:        id,
		Title:     strings.TrimSpace(it.Title),
		Excerpt:   excerpt,
		Author:    "Anime News Network",
		Link:      link,
		Thumbnail: thumb,
		Date:      date,
		Source:    AnimeNewsNetwork,
		GUID:      it.ID,
	}, nil
}
