// Package ranking scores documents against queries by cosine similarity in
// the term-document vector space and turns the scores into rankings, either
// every document above a threshold or the best N.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/weighting"
)

const (
	DefaultThreshold = 0.2
	DefaultTopN      = 3
)

// Policy selects how scores become a ranking.
type Policy string

const (
	PolicyThreshold Policy = "threshold"
	PolicyTopN      Policy = "top"
)

// Options configures a Ranker. Verbose logs every returned document with
// its score.
type Options struct {
	Threshold float64
	TopN      int
	Workers   int
	Verbose   bool
}

// Scores holds one query's similarity to every document in matrix row order.
// Defined[i] is false when the cosine was undefined (a zero-norm vector);
// such entries have Values[i] == 0.
type Scores struct {
	Query   string
	Docs    []string
	Values  []float64
	Defined []bool
}

// Score returns the similarity of doc, 0 when unknown or undefined.
func (s Scores) Score(doc string) float64 {
	for i, d := range s.Docs {
		if d == doc {
			return s.Values[i]
		}
	}
	return 0
}

// AnyDefined reports whether at least one document has a defined score.
func (s Scores) AnyDefined() bool {
	for _, ok := range s.Defined {
		if ok {
			return true
		}
	}
	return false
}

// ScoredDoc is one entry of a ranking.
type ScoredDoc struct {
	DocKey string  `json:"doc"`
	Score  float64 `json:"score"`
}

// Ranking is the ordered result for one query. NoResults distinguishes "no
// document had a defined similarity" from an empty list.
type Ranking struct {
	Query     string      `json:"query"`
	Docs      []ScoredDoc `json:"docs"`
	NoResults bool        `json:"no_results,omitempty"`
}

// Keys returns the ranked document keys in order.
func (r Ranking) Keys() []string {
	keys := make([]string, len(r.Docs))
	for i, d := range r.Docs {
		keys[i] = d.DocKey
	}
	return keys
}

// Ranker computes and orders cosine scores. The matrix is only read, so one
// Ranker may be shared across goroutines.
type Ranker struct {
	opts   Options
	logger *slog.Logger
}

// New fills a zero TopN and Workers with defaults. A zero Threshold is kept:
// every document with a positive score then passes the threshold policy.
func New(opts Options) *Ranker {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Ranker{
		opts:   opts,
		logger: slog.Default().With("component", "ranker"),
	}
}

// Options returns the effective options.
func (r *Ranker) Options() Options { return r.opts }

// Score computes the similarity of every query to every document. Queries
// are independent, so they are scored on up to Options.Workers goroutines;
// the result does not depend on scheduling.
func (r *Ranker) Score(ctx context.Context, m *weighting.Matrix, queries map[string]query.TermSet) (map[string]Scores, error) {
	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]Scores, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("scoring query %q: %w", name, err)
			}
			results[i] = ScoreQuery(m, name, queries[name])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]Scores, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out, nil
}

// ScoreQuery computes the cosine between the binary vector of terms and
// every document row. Terms that are not matrix columns contribute nothing.
func ScoreQuery(m *weighting.Matrix, name string, terms query.TermSet) Scores {
	n := m.DocCount()
	s := Scores{
		Query:   name,
		Docs:    m.Docs(),
		Values:  make([]float64, n),
		Defined: make([]bool, n),
	}
	dots := make([]float64, n)
	present := 0
	for _, term := range terms {
		j, ok := m.TermIndex(term)
		if !ok {
			continue
		}
		present++
		for _, e := range m.ColumnEntries(j) {
			dots[e.Index] += e.Weight
		}
	}
	if present == 0 {
		return s
	}
	qNorm := math.Sqrt(float64(present))
	for i := range dots {
		dNorm := m.RowNorm(i)
		if dNorm == 0 {
			continue
		}
		s.Values[i] = clamp(dots[i] / (qNorm * dNorm))
		s.Defined[i] = true
	}
	return s
}

// Threshold returns every document scoring strictly above the threshold,
// best first, ties in row order.
func (r *Ranker) Threshold(s Scores) Ranking {
	cands := make([]candidate, 0)
	for i, v := range s.Values {
		if s.Defined[i] && v > r.opts.Threshold {
			cands = append(cands, candidate{row: i, score: v})
		}
	}
	sort.SliceStable(cands, func(a, b int) bool { return cands[a].score > cands[b].score })
	ranking := Ranking{Query: s.Query, Docs: toScored(s, cands)}
	r.logRanking(ranking)
	return ranking
}

// TopN returns the N documents with the highest defined scores, ties in row
// order. When no score is defined the ranking is marked NoResults.
func (r *Ranker) TopN(s Scores) Ranking {
	if !s.AnyDefined() {
		r.logger.Debug("no defined similarity", "query", s.Query)
		return Ranking{Query: s.Query, NoResults: true}
	}
	cands := make([]candidate, 0, len(s.Values))
	for i, v := range s.Values {
		if s.Defined[i] {
			cands = append(cands, candidate{row: i, score: v})
		}
	}
	ranking := Ranking{Query: s.Query, Docs: toScored(s, selectTop(cands, r.opts.TopN))}
	r.logRanking(ranking)
	return ranking
}

// Rank applies policy to every query in order. Queries missing from scores
// are skipped.
func (r *Ranker) Rank(scores map[string]Scores, order []string, policy Policy) []Ranking {
	out := make([]Ranking, 0, len(order))
	for _, name := range order {
		s, ok := scores[name]
		if !ok {
			continue
		}
		if policy == PolicyTopN {
			out = append(out, r.TopN(s))
		} else {
			out = append(out, r.Threshold(s))
		}
	}
	return out
}

func toScored(s Scores, cands []candidate) []ScoredDoc {
	docs := make([]ScoredDoc, len(cands))
	for i, c := range cands {
		docs[i] = ScoredDoc{DocKey: s.Docs[c.row], Score: c.score}
	}
	return docs
}

func (r *Ranker) logRanking(ranking Ranking) {
	if !r.opts.Verbose {
		return
	}
	for i, d := range ranking.Docs {
		r.logger.Info("ranked document", "query", ranking.Query, "rank", i+1, "doc", d.DocKey, "cosine", d.Score)
	}
}
