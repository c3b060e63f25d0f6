package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/model"
)

// APIAdapter reads a JSON endpoint. Items splits the document into raw
// items; Map converts one item, and an error from Map drops only that item.
type APIAdapter struct {
	Source string
	URL    string
	Items  func(body []byte) ([]json.RawMessage, error)
	Map    func(raw json.RawMessage, fetched time.Time) (model.Article, error)
	Client *Client
	Logger *log.Logger
	Now    func() time.Time
}

// Name returns the source name.
func (a *APIAdapter) Name() string { return a.Source }

// Fetch implements Adapter.
func (a *APIAdapter) Fetch(ctx context.Context) ([]model.Article, error) {
	logger := logging.OrNop(a.Logger)
	fetched := nowOr(a.Now)

	body, err := clientOr(a.Client).Get(ctx, a.URL)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("parse %s: invalid JSON", a.URL)
	}

	raws, err := a.Items(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", a.URL, err)
	}

	articles := make([]model.Article, 0, len(raws))
	for i, raw := range raws {
		art, err := a.Map(raw, fetched)
		if err != nil {
			logger.Warn("dropping api item", "source", a.Source, "index", i, "err", err)
			continue
		}
		if art, ok := finalize(art, a.Source, fetched, logger); ok {
			articles = append(articles, art)
		}
	}

	logger.Debug("api decoded", "source", a.Source, "items", len(raws), "articles", len(articles))
	return articles, nil
}

// ItemsAt returns an Items func that reads the array under key in a JSON
// object, e.g. ItemsAt("items") for {"items": [...]}.
func ItemsAt(key string) func([]byte) ([]json.RawMessage, error) {
	return func(body []byte) ([]json.RawMessage, error) {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, err
		}
		raw, ok := doc[key]
		if !ok {
			return nil, fmt.Errorf("no %q array in response", key)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%q: %w", key, err)
		}
		return items, nil
	}
}
