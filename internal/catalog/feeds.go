package catalog

import (
	"github.com/abelbrown/newsbell/internal/fetch"
	"github.com/abelbrown/newsbell/internal/model"
)

const (
	tokyoOtakuModeURL = "https://otakumode.com/news/feed"
	cbrURL            = "https://www.cbr.com/feed/category/anime/"
)

func tokyoOtakuModeSource(opts Options) fetch.Source {
	return plainFeed(opts, TokyoOtakuMode, tokyoOtakuModeURL, "Tokyo Otaku Mode")
}

func cbrSource(opts Options) fetch.Source {
	return plainFeed(opts, CBR, cbrURL, "CBR")
}

func plainFeed(opts Options, name, url, author string) fetch.Source {
	return fetch.Source{
		Name:        name,
		Granularity: model.Exact,
		Adapter: &fetch.FeedAdapter{
			Source: name,
			URL:    opts.url(name, url),
			Author: author,
			Client: opts.Client,
			Logger: opts.Logger,
			Now:    opts.Now,
		},
	}
}
