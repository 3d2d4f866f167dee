// Package corpus loads the document collections and query sets the
// retrieval pipeline runs over: the Cranfield benchmark files, the scraped
// news article collection and the stock portfolio that names the news
// queries.
package corpus

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/zeebo/blake3"
)

// Document is one raw text keyed by a unique id.
type Document struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Corpus is an ordered document collection. Order becomes matrix row order.
type Corpus struct {
	Name string
	Docs []Document
}

// QuerySet is an ordered list of named queries.
type QuerySet []query.Query

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.Docs) }

// Keys returns the document keys in order.
func (c *Corpus) Keys() []string {
	keys := make([]string, len(c.Docs))
	for i, d := range c.Docs {
		keys[i] = d.Key
	}
	return keys
}

// BuildIndex normalizes every document and adds it to a new inverted index.
func (c *Corpus) BuildIndex(n normalizer.Normalizer) (*index.Index, error) {
	b := index.NewBuilder()
	for _, d := range c.Docs {
		if err := b.Add(d.Key, n.Normalize(d.Text)); err != nil {
			return nil, fmt.Errorf("indexing corpus %s: %w", c.Name, err)
		}
	}
	return b.Build(), nil
}

// Fingerprint digests the ordered keys and texts. Any change to the
// collection, including reordering, yields a different value.
func Fingerprint(c *Corpus) string {
	h := blake3.New()
	var size [8]byte
	write := func(s string) {
		binary.LittleEndian.PutUint64(size[:], uint64(len(s)))
		h.Write(size[:])
		h.Write([]byte(s))
	}
	for _, d := range c.Docs {
		write(d.Key)
		write(d.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileFingerprint digests the contents of files in order. It keys derived
// query and relevance snapshots to the files they were parsed from.
func FileFingerprint(paths ...string) (string, error) {
	h := blake3.New()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return "", fmt.Errorf("fingerprinting %s: %w", p, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("fingerprinting %s: %w", p, err)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
