// Package index builds the inverted index: for every normalized term, the
// documents containing it and the raw term frequency in each.
package index

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

// Builder accumulates documents. It is safe for concurrent Add calls; the
// resulting document order is the order in which Add calls completed.
type Builder struct {
	mu       sync.Mutex
	postings map[string]PostingList
	docKeys  []string
	seen     map[string]struct{}
	logger   *slog.Logger
}

func NewBuilder() *Builder {
	return &Builder{
		postings: make(map[string]PostingList),
		seen:     make(map[string]struct{}),
		logger:   slog.Default().With("component", "index-builder"),
	}
}

// Add indexes one document given its normalized terms. A document without
// terms produces no postings but still counts toward DocCount. Adding a key
// twice fails with ErrDuplicateDocument and leaves the builder unchanged.
func (b *Builder) Add(key string, terms []string) error {
	counts := make(map[string]int, len(terms))
	for _, term := range terms {
		if term == "" {
			continue
		}
		counts[term]++
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[key]; dup {
		return fmt.Errorf("adding document %q: %w", key, apperrors.ErrDuplicateDocument)
	}
	b.seen[key] = struct{}{}
	b.docKeys = append(b.docKeys, key)
	for term, tf := range counts {
		b.postings[term] = append(b.postings[term], Posting{DocKey: key, Frequency: tf})
	}
	if len(counts) == 0 {
		b.logger.Debug("document has no indexable terms", "doc", key)
	}
	return nil
}

// DocCount returns the number of documents added so far.
func (b *Builder) DocCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docKeys)
}

// Build freezes the accumulated documents into an Index. The builder must
// not be used afterwards.
func (b *Builder) Build() *Index {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := &Index{
		postings: make(map[string]PostingList, len(b.postings)),
		docKeys:  append([]string(nil), b.docKeys...),
	}
	for term, list := range b.postings {
		sorted := append(PostingList(nil), list...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].DocKey < sorted[j].DocKey })
		idx.postings[term] = sorted
	}
	idx.terms = sortedTerms(idx.postings)
	return idx
}

// Index is an immutable inverted index.
type Index struct {
	postings map[string]PostingList
	terms    []string
	docKeys  []string
}

// Postings returns the posting list for term, or nil. Callers must not
// modify the returned slice.
func (x *Index) Postings(term string) PostingList {
	return x.postings[term]
}

// DocFreq is the number of distinct documents containing term.
func (x *Index) DocFreq(term string) int {
	return len(x.postings[term])
}

// TermFrequency returns the raw count of term in the document, or 0.
func (x *Index) TermFrequency(term, docKey string) int {
	list := x.postings[term]
	i := sort.Search(len(list), func(i int) bool { return list[i].DocKey >= docKey })
	if i < len(list) && list[i].DocKey == docKey {
		return list[i].Frequency
	}
	return 0
}

// Terms returns the vocabulary in sorted order.
func (x *Index) Terms() []string {
	return x.terms
}

// DocKeys returns every document key in ingestion order, including
// documents that contributed no terms.
func (x *Index) DocKeys() []string {
	return x.docKeys
}

// DocCount is N, the number of indexed documents.
func (x *Index) DocCount() int {
	return len(x.docKeys)
}

// Snapshot returns the dictionary as entries sorted by term.
func (x *Index) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.terms))
	for _, term := range x.terms {
		entries = append(entries, TermEntry{Term: term, Postings: x.postings[term]})
	}
	return entries
}

// FromEntries rebuilds an Index from a persisted document list and
// dictionary, validating that every posting refers to a known document.
func FromEntries(docKeys []string, entries []TermEntry) (*Index, error) {
	known := make(map[string]struct{}, len(docKeys))
	for _, key := range docKeys {
		if _, dup := known[key]; dup {
			return nil, fmt.Errorf("restoring index: document %q: %w", key, apperrors.ErrDuplicateDocument)
		}
		known[key] = struct{}{}
	}
	idx := &Index{
		postings: make(map[string]PostingList, len(entries)),
		docKeys:  append([]string(nil), docKeys...),
	}
	for _, entry := range entries {
		if len(entry.Postings) == 0 {
			return nil, fmt.Errorf("restoring index: term %q has no postings: %w", entry.Term, apperrors.ErrMalformedRecord)
		}
		if _, dup := idx.postings[entry.Term]; dup {
			return nil, fmt.Errorf("restoring index: term %q repeated: %w", entry.Term, apperrors.ErrMalformedRecord)
		}
		list := append(PostingList(nil), entry.Postings...)
		for _, p := range list {
			if _, ok := known[p.DocKey]; !ok {
				return nil, fmt.Errorf("restoring index: term %q references unknown document %q: %w", entry.Term, p.DocKey, apperrors.ErrMalformedRecord)
			}
			if p.Frequency < 1 {
				return nil, fmt.Errorf("restoring index: term %q in %q has frequency %d: %w", entry.Term, p.DocKey, p.Frequency, apperrors.ErrMalformedRecord)
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i].DocKey < list[j].DocKey })
		idx.postings[entry.Term] = list
	}
	idx.terms = sortedTerms(idx.postings)
	return idx, nil
}

func sortedTerms(postings map[string]PostingList) []string {
	terms := make([]string, 0, len(postings))
	for term := range postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
