// Package weighting turns an inverted index into the term-document matrix:
// weight(d, t) = idf(t) * tf(t, d) with idf(t) = log2(N / df(t)). The matrix
// is sparse, read-only once built, and safe for concurrent readers.
package weighting

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
)

// Entry is one stored cell of a sparse row or column. Index is a column
// index inside a row and a row index inside a column.
type Entry struct {
	Index  int
	Weight float64
}

// Matrix is the weighted term-document matrix. Rows are documents in
// corpus order; columns are terms in sorted order. Cells for terms a
// document contains are stored even when their weight is 0 (idf 0).
type Matrix struct {
	docs    []string
	terms   []string
	docIdx  map[string]int
	termIdx map[string]int
	idf     []float64

	rows     [][]Entry
	cols     [][]Entry
	rowNorms []float64
	colNorms []float64
	frob     float64
}

// Row is a document's weights keyed by term, used for snapshots.
type Row map[string]float64

// NewMatrix assembles a matrix from explicit rows, as read back from a
// snapshot. docs fixes the row order; idf may be nil, in which case IDF
// reports 0 for every term. Terms referenced by rows become columns.
func NewMatrix(docs []string, rows map[string]Row, idf map[string]float64) (*Matrix, error) {
	termSet := make(map[string]struct{})
	for term := range idf {
		termSet[term] = struct{}{}
	}
	seen := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if _, dup := seen[doc]; dup {
			return nil, fmt.Errorf("building matrix: document %q: %w", doc, apperrors.ErrDuplicateDocument)
		}
		seen[doc] = struct{}{}
		for term := range rows[doc] {
			termSet[term] = struct{}{}
		}
	}
	for doc := range rows {
		if _, ok := seen[doc]; !ok {
			return nil, fmt.Errorf("building matrix: row %q is not in the document list: %w", doc, apperrors.ErrMalformedRecord)
		}
	}
	terms := make([]string, 0, len(termSet))
	for term := range termSet {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	m := newShell(docs, terms)
	for term, v := range idf {
		m.idf[m.termIdx[term]] = v
	}
	for i, doc := range docs {
		row := rows[doc]
		entries := make([]Entry, 0, len(row))
		for term, w := range row {
			if math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("building matrix: weight of %q in %q is not finite: %w", term, doc, apperrors.ErrMalformedRecord)
			}
			entries = append(entries, Entry{Index: m.termIdx[term], Weight: w})
		}
		sort.Slice(entries, func(a, b int) bool { return entries[a].Index < entries[b].Index })
		m.rows[i] = entries
	}
	m.finish()
	return m, nil
}

func newShell(docs, terms []string) *Matrix {
	m := &Matrix{
		docs:    docs,
		terms:   terms,
		docIdx:  make(map[string]int, len(docs)),
		termIdx: make(map[string]int, len(terms)),
		idf:     make([]float64, len(terms)),
		rows:    make([][]Entry, len(docs)),
	}
	for i, doc := range docs {
		m.docIdx[doc] = i
	}
	for j, term := range terms {
		m.termIdx[term] = j
	}
	return m
}

// finish derives columns and norms from rows.
func (m *Matrix) finish() {
	m.cols = make([][]Entry, len(m.terms))
	m.rowNorms = make([]float64, len(m.docs))
	m.colNorms = make([]float64, len(m.terms))
	for i, row := range m.rows {
		for _, e := range row {
			m.cols[e.Index] = append(m.cols[e.Index], Entry{Index: i, Weight: e.Weight})
		}
		m.rowNorms[i] = entryNorm(row)
	}
	for j, col := range m.cols {
		m.colNorms[j] = entryNorm(col)
	}
	m.frob = floats.Norm(m.rowNorms, 2)
}

func entryNorm(entries []Entry) float64 {
	if len(entries) == 0 {
		return 0
	}
	w := make([]float64, len(entries))
	for i, e := range entries {
		w[i] = e.Weight
	}
	return floats.Norm(w, 2)
}

// Docs returns the row order.
func (m *Matrix) Docs() []string { return m.docs }

// Terms returns the column order.
func (m *Matrix) Terms() []string { return m.terms }

func (m *Matrix) DocCount() int  { return len(m.docs) }
func (m *Matrix) TermCount() int { return len(m.terms) }

// HasTerm reports whether term is a column.
func (m *Matrix) HasTerm(term string) bool {
	_, ok := m.termIdx[term]
	return ok
}

// TermIndex returns the column index of term.
func (m *Matrix) TermIndex(term string) (int, bool) {
	j, ok := m.termIdx[term]
	return j, ok
}

// DocIndex returns the row index of doc.
func (m *Matrix) DocIndex(doc string) (int, bool) {
	i, ok := m.docIdx[doc]
	return i, ok
}

// IDF returns the inverse document frequency recorded for term, or 0.
func (m *Matrix) IDF(term string) float64 {
	if j, ok := m.termIdx[term]; ok {
		return m.idf[j]
	}
	return 0
}

// Weight returns the cell for (doc, term); missing cells are 0.
func (m *Matrix) Weight(doc, term string) float64 {
	i, ok := m.docIdx[doc]
	if !ok {
		return 0
	}
	j, ok := m.termIdx[term]
	if !ok {
		return 0
	}
	row := m.rows[i]
	k := sort.Search(len(row), func(k int) bool { return row[k].Index >= j })
	if k < len(row) && row[k].Index == j {
		return row[k].Weight
	}
	return 0
}

// Row returns a copy of the stored cells of doc keyed by term.
func (m *Matrix) Row(doc string) Row {
	i, ok := m.docIdx[doc]
	if !ok {
		return nil
	}
	out := make(Row, len(m.rows[i]))
	for _, e := range m.rows[i] {
		out[m.terms[e.Index]] = e.Weight
	}
	return out
}

// Column returns the dense column of term in row order, or nil if term is
// not a column.
func (m *Matrix) Column(term string) []float64 {
	j, ok := m.termIdx[term]
	if !ok {
		return nil
	}
	out := make([]float64, len(m.docs))
	for _, e := range m.cols[j] {
		out[e.Index] = e.Weight
	}
	return out
}

// RowEntries returns the sparse row i sorted by column. Callers must not
// modify it.
func (m *Matrix) RowEntries(i int) []Entry { return m.rows[i] }

// ColumnEntries returns the sparse column j sorted by row. Callers must not
// modify it.
func (m *Matrix) ColumnEntries(j int) []Entry { return m.cols[j] }

// RowNorm is the Euclidean norm of row i.
func (m *Matrix) RowNorm(i int) float64 { return m.rowNorms[i] }

// ColumnNorm is the Euclidean norm of column j.
func (m *Matrix) ColumnNorm(j int) float64 { return m.colNorms[j] }

// FrobeniusNorm is the Frobenius norm of the whole matrix.
func (m *Matrix) FrobeniusNorm() float64 { return m.frob }

// Dense materializes the matrix with the given column order. Columns naming
// unknown terms are all zero. A nil columns slice uses Terms().
func (m *Matrix) Dense(columns []string) *mat.Dense {
	if columns == nil {
		columns = m.terms
	}
	if len(m.docs) == 0 || len(columns) == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(len(m.docs), len(columns), nil)
	for c, term := range columns {
		j, ok := m.termIdx[term]
		if !ok {
			continue
		}
		for _, e := range m.cols[j] {
			d.Set(e.Index, c, e.Weight)
		}
	}
	return d
}

// Subset returns the matrix restricted to docs, keeping every column and
// every weight unchanged. Rows follow this matrix's order; unknown keys are
// ignored.
func (m *Matrix) Subset(docs []string) *Matrix {
	want := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		want[doc] = struct{}{}
	}
	kept := make([]string, 0, len(want))
	for _, doc := range m.docs {
		if _, ok := want[doc]; ok {
			kept = append(kept, doc)
		}
	}
	sub := newShell(kept, m.terms)
	copy(sub.idf, m.idf)
	for i, doc := range kept {
		sub.rows[i] = m.rows[m.docIdx[doc]]
	}
	sub.finish()
	return sub
}

// Rows returns every row keyed by document, the flat form used for
// snapshots.
func (m *Matrix) Rows() map[string]Row {
	out := make(map[string]Row, len(m.docs))
	for _, doc := range m.docs {
		out[doc] = m.Row(doc)
	}
	return out
}

// IDFs returns the idf of every column keyed by term.
func (m *Matrix) IDFs() map[string]float64 {
	out := make(map[string]float64, len(m.terms))
	for j, term := range m.terms {
		out[term] = m.idf[j]
	}
	return out
}
