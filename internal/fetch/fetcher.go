// Package fetch turns raw source content into normalized model.Articles.
//
// Every source is served by an Adapter. Three kinds cover the sources newsbell
// knows about: ScrapeAdapter (HTML + CSS selectors, via goquery), FeedAdapter
// (RSS/Atom, via gofeed) and APIAdapter (JSON). MergeAdapter joins a scrape
// with a feed describing the same items.
//
// Adapters never give up on a whole batch because one item is bad: malformed
// items are logged and dropped. A fetch or document-level parse failure is
// returned as an error alongside whatever was mapped so far, and the caller
// decides what to do with it (the aggregator logs it and moves on).
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abelbrown/newsbell/internal/model"
)

// DefaultTimeout bounds a single HTTP fetch.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 10 << 20

const userAgent = "newsbell/1.0 (+https://github.com/abelbrown/newsbell)"

// Adapter fetches one source and maps it to Articles.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]model.Article, error)
}

// Source binds an adapter to the name and date granularity the pipeline
// keys checkpoints by.
type Source struct {
	Name        string
	Granularity model.Granularity
	Adapter     Adapter
}

// Client performs the HTTP GETs shared by all adapters.
type Client struct {
	http *http.Client
}

// NewClient creates a Client with the given timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

var defaultClient = NewClient(DefaultTimeout)

func clientOr(c *Client) *Client {
	if c != nil {
		return c
	}
	return defaultClient
}

// Get returns the body of url. Non-200 responses are errors.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
