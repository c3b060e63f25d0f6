// Package ui provides the Bubble Tea reader for newsbell: the cached
// articles newest first, the unread counter, and acknowledgment.
package ui

import "github.com/abelbrown/newsbell/internal/model"

// ArticlesLoaded is sent when the cache and counter have been read.
type ArticlesLoaded struct {
	Articles []model.Article
	Unread   int
	Err      error
}

// Acknowledged is sent after the unread counter was reset.
type Acknowledged struct {
	Err error
}

// FetchComplete is sent when a manually triggered cycle finishes.
type FetchComplete struct {
	New  int
	Sent int
	Err  error
}

// RefreshTick triggers periodic refresh.
type RefreshTick struct{}
