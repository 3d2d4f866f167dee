// Package expansion widens queries with co-occurring terms. Co-occurrence is
// read from the weighted term-document matrix M: the similarity between
// columns j and k is entry (j, k) of MᵀM normalized either by the squared
// Frobenius norm of M (Global) or by the two column norms (Cosine).
package expansion

import (
	"log/slog"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/weighting"
)

// Normalization selects how raw co-occurrence dot products are scaled.
type Normalization string

const (
	// Global divides by ‖M‖_F · ‖Mᵀ‖_F, one constant for every pair.
	Global Normalization = "global"
	// Cosine divides by the norms of the two term columns.
	Cosine Normalization = "cosine"
)

// DefaultWidth counts the seed itself, which is normally its own best match.
const DefaultWidth = 5

// Expander adds, for every seed that is a matrix column, the Width terms
// most similar to it.
type Expander struct {
	Width         int
	Normalization Normalization
	logger        *slog.Logger
}

// New returns an Expander; a non-positive width falls back to DefaultWidth
// and an empty normalization to Global.
func New(width int, norm Normalization) *Expander {
	if width <= 0 {
		width = DefaultWidth
	}
	if norm == "" {
		norm = Global
	}
	return &Expander{
		Width:         width,
		Normalization: norm,
		logger:        slog.Default().With("component", "expander"),
	}
}

// Expand returns the expanded term set of every query keyed by name. Each
// set contains the query's seeds, including seeds unknown to the matrix.
func (e *Expander) Expand(m *weighting.Matrix, queries []query.Query) map[string]query.TermSet {
	memo := make(map[int][]string)
	out := make(map[string]query.TermSet, len(queries))
	for _, q := range queries {
		terms := append([]string(nil), q.Seeds...)
		for _, seed := range q.Seeds {
			j, ok := m.TermIndex(seed)
			if !ok {
				continue
			}
			related, done := memo[j]
			if !done {
				related = e.nearest(m, j)
				memo[j] = related
			}
			terms = append(terms, related...)
		}
		set := query.NewTermSet(terms...)
		out[q.Name] = set
		e.log().Debug("query expanded", "query", q.Name, "seeds", len(q.Seeds), "terms", len(set))
	}
	return out
}

// ExpandTerms expands a single ad-hoc list of seeds.
func (e *Expander) ExpandTerms(m *weighting.Matrix, seeds []string) query.TermSet {
	return e.Expand(m, []query.Query{{Seeds: seeds}})[""]
}

// nearest returns the Width columns most similar to column j, ties broken
// by column order. Columns that never co-occur with j rank at similarity 0,
// so min(Width, TermCount) columns are always selected.
func (e *Expander) nearest(m *weighting.Matrix, j int) []string {
	sims := similarityRow(m, j, e.Normalization)
	cols := make([]int, len(sims))
	for k := range cols {
		cols[k] = k
	}
	sort.SliceStable(cols, func(a, b int) bool {
		return sims[cols[a]] > sims[cols[b]]
	})
	width := e.Width
	if width <= 0 {
		width = DefaultWidth
	}
	if len(cols) > width {
		cols = cols[:width]
	}
	terms := m.Terms()
	out := make([]string, len(cols))
	for i, k := range cols {
		out[i] = terms[k]
	}
	return out
}

func (e *Expander) log() *slog.Logger {
	if e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// similarityRow computes row j of the normalized MᵀM without materializing
// the full term-term matrix: only documents containing term j contribute.
// Columns outside those documents stay at 0.
func similarityRow(m *weighting.Matrix, j int, norm Normalization) []float64 {
	sims := make([]float64, m.TermCount())
	seen := make(map[int]struct{})
	for _, cell := range m.ColumnEntries(j) {
		if cell.Weight == 0 {
			continue
		}
		for _, e := range m.RowEntries(cell.Index) {
			if e.Weight == 0 {
				continue
			}
			sims[e.Index] += cell.Weight * e.Weight
			seen[e.Index] = struct{}{}
		}
	}
	touched := make([]int, 0, len(seen))
	for k := range seen {
		touched = append(touched, k)
	}

	switch norm {
	case Cosine:
		nj := m.ColumnNorm(j)
		for _, k := range touched {
			denom := nj * m.ColumnNorm(k)
			if denom == 0 {
				sims[k] = 0
				continue
			}
			sims[k] /= denom
		}
	default:
		frob := m.FrobeniusNorm()
		denom := frob * frob
		for _, k := range touched {
			if denom == 0 {
				sims[k] = 0
				continue
			}
			sims[k] /= denom
		}
	}
	return sims
}
