// Package engine runs the retrieval pipeline end to end: it turns a corpus
// into an inverted index and weighted matrix (reusing snapshots when the
// corpus fingerprint matches), expands queries and ranks documents in global
// or local mode.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/weighting"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/tracing"
)

// Artifacts are the read-only structures derived from one corpus.
type Artifacts struct {
	Name        string
	Fingerprint string
	Index       *index.Index
	Matrix      *weighting.Matrix
	// FromSnapshot is true when nothing had to be rebuilt.
	FromSnapshot bool
}

// Engine builds artifacts and runs query sets against them. A nil snapshot
// store disables caching; a nil metrics value disables instrumentation.
type Engine struct {
	store      *snapshot.Store
	normalizer normalizer.Normalizer
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(store *snapshot.Store, n normalizer.Normalizer, m *metrics.Metrics) *Engine {
	if n == nil {
		n = normalizer.NewEnglish()
	}
	return &Engine{
		store:      store,
		normalizer: n,
		metrics:    m,
		logger:     slog.Default().With("component", "engine"),
	}
}

// Normalizer returns the normalizer applied to documents and ad-hoc queries.
func (e *Engine) Normalizer() normalizer.Normalizer { return e.normalizer }

// Build returns the index and matrix of c. When a snapshot with the same
// fingerprint exists it is loaded; a missing, stale or unreadable snapshot
// triggers a full rebuild and the result is saved again.
func (e *Engine) Build(ctx context.Context, c *corpus.Corpus) (*Artifacts, error) {
	if c.Len() == 0 {
		return nil, fmt.Errorf("building corpus %s: no documents: %w", c.Name, apperrors.ErrInvalidInput)
	}
	ctx, span := tracing.StartChildSpan(ctx, "build")
	defer span.End()
	span.SetAttr("corpus", c.Name)

	fp := corpus.Fingerprint(c)
	if a, ok := e.loadArtifacts(c.Name, fp); ok {
		span.SetAttr("snapshot", "hit")
		e.observeVocabulary(a)
		return a, nil
	}
	span.SetAttr("snapshot", "rebuilt")

	idx, err := stage(ctx, e, "index", func() (*index.Index, error) {
		return c.BuildIndex(e.normalizer)
	})
	if err != nil {
		return nil, err
	}
	matrix, err := stage(ctx, e, "weigh", func() (*weighting.Matrix, error) {
		return weighting.Weigh(idx), nil
	})
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(idx.DocCount()))
	}
	a := &Artifacts{Name: c.Name, Fingerprint: fp, Index: idx, Matrix: matrix}
	e.saveArtifacts(ctx, a)
	e.observeVocabulary(a)
	e.logger.Info("corpus built",
		"corpus", c.Name,
		"docs", idx.DocCount(),
		"terms", matrix.TermCount(),
		"fingerprint", fp[:12],
	)
	return a, nil
}

func stage[T any](ctx context.Context, e *Engine, name string, fn func() (T, error)) (T, error) {
	_, span := tracing.StartChildSpan(ctx, name)
	start := time.Now()
	v, err := fn()
	span.End()
	if e.metrics != nil {
		e.metrics.BuildDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}
	return v, err
}

func (e *Engine) loadArtifacts(name, fp string) (*Artifacts, bool) {
	if e.store == nil {
		return nil, false
	}
	idx, err := e.store.LoadIndex(name, fp)
	if err == nil {
		var m *weighting.Matrix
		m, err = e.store.LoadMatrix(name, fp)
		if err == nil {
			e.countSnapshot("hit")
			e.logger.Info("snapshot loaded", "corpus", name, "docs", m.DocCount(), "terms", m.TermCount())
			return &Artifacts{Name: name, Fingerprint: fp, Index: idx, Matrix: m, FromSnapshot: true}, true
		}
	}
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		e.logger.Info("no snapshot, building", "corpus", name)
	case errors.Is(err, apperrors.ErrSnapshotMismatch):
		e.logger.Info("snapshot is stale, rebuilding", "corpus", name)
	default:
		e.logger.Warn("snapshot unreadable, rebuilding", "corpus", name, "error", err)
	}
	e.countSnapshot("rebuilt")
	return nil, false
}

func (e *Engine) saveArtifacts(ctx context.Context, a *Artifacts) {
	if e.store == nil {
		return
	}
	_, span := tracing.StartChildSpan(ctx, "snapshot")
	start := time.Now()
	defer func() {
		span.End()
		if e.metrics != nil {
			e.metrics.BuildDuration.WithLabelValues("snapshot").Observe(time.Since(start).Seconds())
		}
	}()
	if err := e.store.SaveIndex(a.Name, a.Fingerprint, a.Index); err != nil {
		e.logger.Warn("failed to save index snapshot", "corpus", a.Name, "error", err)
		return
	}
	if err := e.store.SaveMatrix(a.Name, a.Fingerprint, a.Matrix); err != nil {
		e.logger.Warn("failed to save matrix snapshot", "corpus", a.Name, "error", err)
	}
}

func (e *Engine) countSnapshot(result string) {
	if e.metrics != nil {
		e.metrics.SnapshotLoadsTotal.WithLabelValues(result).Inc()
	}
}

func (e *Engine) observeVocabulary(a *Artifacts) {
	if e.metrics != nil {
		e.metrics.VocabularySize.WithLabelValues(a.Name).Set(float64(a.Matrix.TermCount()))
	}
}

// Queries returns the query set stored under name with fingerprint, or calls
// load and stores its result.
func (e *Engine) Queries(name, fingerprint string, load func() (corpus.QuerySet, error)) (corpus.QuerySet, error) {
	if e.store != nil {
		qs, err := e.store.LoadQueries(name, fingerprint)
		if err == nil {
			return qs, nil
		}
		e.logger.Debug("query snapshot unavailable", "name", name, "error", err)
	}
	qs, err := load()
	if err != nil {
		return nil, err
	}
	if e.store != nil {
		if err := e.store.SaveQueries(name, fingerprint, qs); err != nil {
			e.logger.Warn("failed to save query snapshot", "name", name, "error", err)
		}
	}
	return qs, nil
}

// Truth is the relevance counterpart of Queries.
func (e *Engine) Truth(name, fingerprint string, load func() (evaluation.Truth, error)) (evaluation.Truth, error) {
	if e.store != nil {
		t, err := e.store.LoadTruth(name, fingerprint)
		if err == nil {
			return t, nil
		}
		e.logger.Debug("relevance snapshot unavailable", "name", name, "error", err)
	}
	t, err := load()
	if err != nil {
		return nil, err
	}
	if e.store != nil {
		if err := e.store.SaveTruth(name, fingerprint, t); err != nil {
			e.logger.Warn("failed to save relevance snapshot", "name", name, "error", err)
		}
	}
	return t, nil
}

// ObserveReport publishes the aggregate of an evaluation run.
func (e *Engine) ObserveReport(r evaluation.Report) {
	r.Log(e.logger)
	if e.metrics == nil {
		return
	}
	e.metrics.EvaluationPrecision.WithLabelValues(r.Label).Set(r.Precision)
	if r.HasRecall {
		e.metrics.EvaluationRecall.WithLabelValues(r.Label).Set(r.Recall)
	}
}
