package catalog

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/model"
)

const (
	planeteBDURL  = "https://www.planetebd.com/planete-bd/manga"
	planeteBDHost = "https://www.planetebd.com"
)

// Planète BD publishes an Atom feed whose entry content is URL-encoded HTML
// holding a tiny cover image and a "Note / Editeur / Auteurs" blurb.
func planeteBDSource(opts Options) fetch.Source {
	return fetch.Source{
		Name:        PlaneteBD,
		Granularity: model.Exact,
		Adapter: &fetch.FeedAdapter{
			Source:    PlaneteBD,
			URL:       opts.url(PlaneteBD, planeteBDURL),
			Transform: planeteBDTransform,
			Client:    opts.Client,
			Logger:    opts.Logger,
			Now:       opts.Now,
		},
	}
}

func planeteBDTransform(rec fetch.FeedRecord, a *model.Article) {
	if strings.HasPrefix(rec.Link, "/") {
		a.Link = planeteBDHost + rec.Link
		a.ID = a.Link
	}

	content := rec.Content
	if content == "" {
		content = rec.Description
	}
	if decoded, err := url.PathUnescape(content); err == nil {
		content = decoded
	}

	if thumb := PlaneteBDThumbnail(content); thumb != "" {
		a.Thumbnail = thumb
	}
	a.Excerpt = CleanPlaneteBDExcerpt(content)
}

var (
	planeteBDTinyCover = regexp.MustCompile(`https://www\.planetebd\.com/dynamicImages/album/cover/tiny/(\d+)/(\d+)/album-cover-tiny-(\d+)\.jpg`)

	breakTag    = regexp.MustCompile(`(?i)<br\s*/?>`)
	imgTag      = regexp.MustCompile(`(?i)<img[^>]*>`)
	anyTag      = regexp.MustCompile(`<[^>]+>`)
	spaceRun    = regexp.MustCompile(`[ \t]+`)
	noteLabel   = regexp.MustCompile(`\s*Note\s*:\s*`)
	editorLabel = regexp.MustCompile(`\s*Editeur\s*:\s*`)
	authorLabel = regexp.MustCompile(`\s*Auteurs\s*:\s*`)
)

// PlaneteBDThumbnail finds the tiny album cover in content and returns the
// large variant, or "" when there is none.
func PlaneteBDThumbnail(content string) string {
	m := planeteBDTinyCover.FindStringSubmatch(content)
	if m == nil {
		return ""
	}
	return "https://www.planetebd.com/dynamicImages/album/cover/large/" +
		m[1] + "/" + m[2] + "/album-cover-large-" + m[3] + ".jpg"
}

// CleanPlaneteBDExcerpt turns entry content into plain text: line breaks
// kept, cover image and markup dropped, entities decoded and the rating,
// publisher and authors labels laid out on one line after the summary.
func CleanPlaneteBDExcerpt(content string) string {
	s := breakTag.ReplaceAllString(content, "\n")
	s = imgTag.ReplaceAllString(s, "")
	s = planeteBDTinyCover.ReplaceAllString(s, "")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")

	s = noteLabel.ReplaceAllString(s, "\nNote: ")
	s = editorLabel.ReplaceAllString(s, " | Editeur: ")
	s = authorLabel.ReplaceAllString(s, " | Auteurs: ")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		line = strings.TrimPrefix(line, "| ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
