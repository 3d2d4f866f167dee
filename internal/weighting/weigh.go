package weighting

import (
	"log/slog"
	"math"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
)

// InverseDocumentFrequency is log2(n / df). It is 0 when the term occurs in
// every document.
func InverseDocumentFrequency(n, df int) float64 {
	if n <= 0 || df <= 0 {
		return 0
	}
	return math.Log2(float64(n) / float64(df))
}

// Weigh computes the tf-idf matrix of idx. Every index term becomes a
// column, including terms whose idf is 0.
func Weigh(idx *index.Index) *Matrix {
	docs := append([]string(nil), idx.DocKeys()...)
	terms := append([]string(nil), idx.Terms()...)
	m := newShell(docs, terms)
	n := idx.DocCount()

	for j, term := range terms {
		postings := idx.Postings(term)
		idf := InverseDocumentFrequency(n, len(postings))
		m.idf[j] = idf
		for _, p := range postings {
			i := m.docIdx[p.DocKey]
			m.rows[i] = append(m.rows[i], Entry{Index: j, Weight: idf * float64(p.Frequency)})
		}
	}
	// Terms are visited in column order, so every row is already sorted.
	m.finish()

	slog.Default().With("component", "weighting").Debug("matrix weighted",
		"docs", len(docs),
		"terms", len(terms),
		"frobenius", m.frob,
	)
	return m
}
