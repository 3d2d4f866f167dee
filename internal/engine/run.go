package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/expansion"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/weighting"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/tracing"
)

// Mode selects where expansion statistics come from.
type Mode string

const (
	// ModeGlobal expands every query against the full matrix.
	ModeGlobal Mode = "global"
	// ModeLocal expands each query against the documents its seeds already
	// match (pseudo-relevance feedback) and ranks within that subset.
	ModeLocal Mode = "local"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGlobal, ModeLocal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q: %w", s, apperrors.ErrInvalidInput)
	}
}

// Options configures one run.
type Options struct {
	Mode          Mode
	Expand        bool
	Width         int
	Normalization expansion.Normalization
	Policy        ranking.Policy
	Ranking       ranking.Options
}

// OptionsFromConfig maps the retrieval configuration onto run options.
func OptionsFromConfig(cfg config.RetrievalConfig, policy ranking.Policy) Options {
	return Options{
		Mode:          Mode(cfg.Mode),
		Expand:        cfg.Expand,
		Width:         cfg.ExpansionWidth,
		Normalization: expansion.Normalization(cfg.Normalization),
		Policy:        policy,
		Ranking: ranking.Options{
			Threshold: cfg.Threshold,
			TopN:      cfg.TopN,
			Workers:   cfg.Workers,
			Verbose:   cfg.Verbose,
		},
	}
}

// Result is the outcome of one run. Scores hold every document of the full
// matrix in row order regardless of mode.
type Result struct {
	Mode     Mode
	Policy   ranking.Policy
	Expanded map[string]query.TermSet
	Scores   map[string]ranking.Scores
	Rankings []ranking.Ranking
}

// Ranking returns the ranking of the named query.
func (r *Result) Ranking(name string) (ranking.Ranking, bool) {
	for _, rk := range r.Rankings {
		if rk.Query == name {
			return rk, true
		}
	}
	return ranking.Ranking{}, false
}

// Run expands and ranks queries against a. Rankings follow the order of
// queries.
func (e *Engine) Run(ctx context.Context, a *Artifacts, queries []query.Query, opts Options) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeGlobal
	}
	if opts.Policy == "" {
		opts.Policy = ranking.PolicyThreshold
	}
	ctx, span := tracing.StartChildSpan(ctx, "run")
	defer span.End()
	span.SetAttr("mode", string(opts.Mode))
	span.SetAttr("queries", len(queries))
	start := time.Now()

	ranker := ranking.New(opts.Ranking)
	expander := expansion.New(opts.Width, opts.Normalization)

	var (
		expanded map[string]query.TermSet
		scores   map[string]ranking.Scores
		err      error
	)
	switch opts.Mode {
	case ModeGlobal:
		expanded = e.expand(ctx, expander, a.Matrix, queries, opts.Expand)
		scores, err = ranker.Score(ctx, a.Matrix, expanded)
	case ModeLocal:
		expanded, scores, err = e.runLocal(ctx, ranker, expander, a.Matrix, queries, opts)
	default:
		err = fmt.Errorf("unknown mode %q: %w", opts.Mode, apperrors.ErrInvalidInput)
	}
	if err != nil {
		e.countQueries(opts.Mode, "error", len(queries))
		return nil, err
	}

	_, rankSpan := tracing.StartChildSpan(ctx, "rank")
	rankings := ranker.Rank(scores, query.Names(queries), opts.Policy)
	rankSpan.End()

	e.observeRun(opts, rankings, expanded, time.Since(start))
	return &Result{
		Mode:     opts.Mode,
		Policy:   opts.Policy,
		Expanded: expanded,
		Scores:   scores,
		Rankings: rankings,
	}, nil
}

func (e *Engine) expand(ctx context.Context, x *expansion.Expander, m *weighting.Matrix, queries []query.Query, enabled bool) map[string]query.TermSet {
	_, span := tracing.StartChildSpan(ctx, "expand")
	defer span.End()
	if !enabled {
		out := make(map[string]query.TermSet, len(queries))
		for _, q := range queries {
			out[q.Name] = q.TermSet()
		}
		return out
	}
	return x.Expand(m, queries)
}

// runLocal ranks each query against the documents its unexpanded seeds
// already match. Documents outside that subset score a defined 0. A query
// whose seeds match nothing falls back to the global computation.
func (e *Engine) runLocal(ctx context.Context, ranker *ranking.Ranker, x *expansion.Expander, m *weighting.Matrix, queries []query.Query, opts Options) (map[string]query.TermSet, map[string]ranking.Scores, error) {
	seeds := make(map[string]query.TermSet, len(queries))
	for _, q := range queries {
		seeds[q.Name] = q.TermSet()
	}
	initial, err := ranker.Score(ctx, m, seeds)
	if err != nil {
		return nil, nil, err
	}

	type localResult struct {
		terms  query.TermSet
		scores ranking.Scores
	}
	results := make([]localResult, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ranker.Options().Workers)
	for i, q := range queries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs := matchedDocs(initial[q.Name])
			if len(docs) == 0 {
				terms := e.expand(gctx, x, m, []query.Query{q}, opts.Expand)[q.Name]
				results[i] = localResult{terms: terms, scores: ranking.ScoreQuery(m, q.Name, terms)}
				return nil
			}
			sub := m.Subset(docs)
			terms := e.expand(gctx, x, sub, []query.Query{q}, opts.Expand)[q.Name]
			results[i] = localResult{terms: terms, scores: widen(m, ranking.ScoreQuery(sub, q.Name, terms))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	expanded := make(map[string]query.TermSet, len(queries))
	scores := make(map[string]ranking.Scores, len(queries))
	for i, q := range queries {
		expanded[q.Name] = results[i].terms
		scores[q.Name] = results[i].scores
	}
	e.logger.Debug("local expansion finished", "queries", len(queries))
	return expanded, scores, nil
}

func matchedDocs(s ranking.Scores) []string {
	var docs []string
	for i, v := range s.Values {
		if s.Defined[i] && v > 0 {
			docs = append(docs, s.Docs[i])
		}
	}
	return docs
}

// widen maps subset scores back onto every row of m.
func widen(m *weighting.Matrix, local ranking.Scores) ranking.Scores {
	byDoc := make(map[string]int, len(local.Docs))
	for i, d := range local.Docs {
		byDoc[d] = i
	}
	docs := m.Docs()
	out := ranking.Scores{
		Query:   local.Query,
		Docs:    docs,
		Values:  make([]float64, len(docs)),
		Defined: make([]bool, len(docs)),
	}
	for i, d := range docs {
		j, ok := byDoc[d]
		if !ok {
			out.Defined[i] = true
			continue
		}
		out.Values[i] = local.Values[j]
		out.Defined[i] = local.Defined[j]
	}
	return out
}

func (e *Engine) observeRun(opts Options, rankings []ranking.Ranking, expanded map[string]query.TermSet, elapsed time.Duration) {
	noResults := 0
	for _, r := range rankings {
		if r.NoResults {
			noResults++
		}
	}
	e.logger.Info("queries ranked",
		"mode", opts.Mode,
		"policy", opts.Policy,
		"queries", len(rankings),
		"no_results", noResults,
		"elapsed", elapsed,
	)
	if e.metrics == nil {
		return
	}
	e.metrics.RankingLatency.WithLabelValues(string(opts.Mode)).Observe(elapsed.Seconds())
	e.countQueries(opts.Mode, "ranked", len(rankings)-noResults)
	e.countQueries(opts.Mode, "no_results", noResults)
	for _, r := range rankings {
		e.metrics.RankedDocuments.WithLabelValues(string(opts.Policy)).Observe(float64(len(r.Docs)))
	}
	for _, terms := range expanded {
		e.metrics.ExpansionTerms.Observe(float64(len(terms)))
	}
}

func (e *Engine) countQueries(mode Mode, outcome string, n int) {
	if e.metrics != nil && n > 0 {
		e.metrics.QueriesTotal.WithLabelValues(string(mode), outcome).Add(float64(n))
	}
}

// ExpandTerms returns the expanded set of seeds without ranking.
func (e *Engine) ExpandTerms(ctx context.Context, a *Artifacts, seeds []string, opts Options) query.TermSet {
	_, span := tracing.StartChildSpan(ctx, "expand")
	defer span.End()
	return expansion.New(opts.Width, opts.Normalization).ExpandTerms(a.Matrix, seeds)
}

// Search normalizes free text into seeds and runs it as a single query
// named by the text.
func (e *Engine) Search(ctx context.Context, a *Artifacts, text string, opts Options) (ranking.Ranking, query.TermSet, error) {
	seeds := e.normalizer.Normalize(text)
	if len(seeds) == 0 {
		return ranking.Ranking{}, nil, fmt.Errorf("query %q has no searchable terms: %w", text, apperrors.ErrInvalidInput)
	}
	res, err := e.Run(ctx, a, []query.Query{{Name: text, Seeds: seeds}}, opts)
	if err != nil {
		return ranking.Ranking{}, nil, err
	}
	return res.Rankings[0], res.Expanded[text], nil
}
