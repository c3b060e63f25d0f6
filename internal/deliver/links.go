package deliver

import "sync"

// DefaultLinkCapacity bounds the click-through registry.
const DefaultLinkCapacity = 256

// Links maps notification IDs to article links so a click on a shown
// notification can be resolved later. The oldest entries are evicted once
// capacity is reached.
type Links struct {
	mu    sync.Mutex
	cap   int
	order []string
	links map[string]string
}

// NewLinks creates a registry holding at most capacity entries.
func NewLinks(capacity int) *Links {
	if capacity <= 0 {
		capacity = DefaultLinkCapacity
	}
	return &Links{cap: capacity, links: make(map[string]string, capacity)}
}

// Put records id → link.
func (l *Links) Put(id, link string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.links[id]; !ok {
		l.order = append(l.order, id)
	}
	l.links[id] = link

	for len(l.order) > l.cap {
		delete(l.links, l.order[0])
		l.order = l.order[1:]
	}
}

// Resolve returns the link for id.
func (l *Links) Resolve(id string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	link, ok := l.links[id]
	return link, ok
}

// Len returns the number of registered notifications.
func (l *Links) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.links)
}
