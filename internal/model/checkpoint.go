package model

import "time"

// Checkpoints maps a source name to the most recent article instant recorded
// for it. A missing entry means the source has never been seen.
type Checkpoints map[string]time.Time

// Clone returns an independent copy. A nil receiver yields an empty map.
func (c Checkpoints) Clone() Checkpoints {
	out := make(Checkpoints, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Newest returns the latest Date per source in articles.
func Newest(articles []Article) map[string]time.Time {
	newest := make(map[string]time.Time)
	for _, a := range articles {
		if a.Date.IsZero() {
			continue
		}
		if cur, ok := newest[a.Source]; !ok || a.Date.After(cur) {
			newest[a.Source] = a.Date
		}
	}
	return newest
}

// Advance returns a new Checkpoints in which every source that has at least
// one article in the batch moves to the newest article date for that source.
// Checkpoints never move backwards; sources absent from the batch keep their
// previous value.
func (c Checkpoints) Advance(articles []Article) Checkpoints {
	out := c.Clone()
	for src, t := range Newest(articles) {
		if cur, ok := out[src]; ok && !t.After(cur) {
			continue
		}
		out[src] = t
	}
	return out
}
