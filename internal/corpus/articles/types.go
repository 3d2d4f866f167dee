// Package articles keeps the live news corpus: scraped articles arrive on a
// Kafka topic or over HTTP, are validated and stored in PostgreSQL, and every
// stored change is announced with a CorpusChanged event so search caches and
// snapshots can be refreshed.
package articles

import "time"

// Article is one scraped news article keyed by URL.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// Document returns the text indexed for the article: title and body joined
// by a space.
func (a Article) Document() string {
	return a.Title + " " + a.Text
}

// IngestResponse is returned to HTTP callers after an article is accepted.
type IngestResponse struct {
	URL     string `json:"url"`
	Created bool   `json:"created"`
	Changed bool   `json:"changed"`
}

// CorpusChanged is published after the stored article set changes.
type CorpusChanged struct {
	Corpus    string    `json:"corpus"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	ChangedAt time.Time `json:"changed_at"`
}
