// Package searcher serves ad-hoc searches over the live corpus. Service
// holds the current artifacts, rebuilds them when the corpus changes and
// answers searches through the ranking cache.
package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus/articles"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/kafka"
)

// CorpusLoader returns the current document collection.
type CorpusLoader func(ctx context.Context) (*corpus.Corpus, error)

type Service struct {
	engine  *engine.Engine
	load    CorpusLoader
	cache   *cache.QueryCache
	current atomic.Pointer[engine.Artifacts]
	reload  sync.Mutex
	logger  *slog.Logger
}

// NewService wires a service. queryCache may be nil.
func NewService(e *engine.Engine, load CorpusLoader, queryCache *cache.QueryCache) *Service {
	return &Service{
		engine: e,
		load:   load,
		cache:  queryCache,
		logger: slog.Default().With("component", "search-service"),
	}
}

// Reload rebuilds the artifacts from the loader and swaps them in. Searches
// in flight keep using the artifacts they started with.
func (s *Service) Reload(ctx context.Context) error {
	s.reload.Lock()
	defer s.reload.Unlock()
	c, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	a, err := s.engine.Build(ctx, c)
	if err != nil {
		return err
	}
	prev := s.current.Swap(a)
	if prev != nil && prev.Fingerprint != a.Fingerprint && s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("cache invalidation failed", "error", err)
		}
	}
	s.logger.Info("corpus loaded", "corpus", a.Name, "docs", a.Matrix.DocCount(), "snapshot", a.FromSnapshot)
	return nil
}

// Ready reports whether artifacts are loaded.
func (s *Service) Ready() bool { return s.current.Load() != nil }

// Artifacts returns the artifacts searches currently run against.
func (s *Service) Artifacts() (*engine.Artifacts, error) {
	a := s.current.Load()
	if a == nil {
		return nil, apperrors.New(apperrors.ErrNotFound, http.StatusServiceUnavailable, "corpus not loaded yet")
	}
	return a, nil
}

// Search ranks text against the current corpus. The bool reports a cache
// hit.
func (s *Service) Search(ctx context.Context, text string, opts engine.Options) (*cache.Entry, bool, error) {
	a, err := s.Artifacts()
	if err != nil {
		return nil, false, err
	}
	compute := func() (*cache.Entry, error) {
		r, terms, err := s.engine.Search(ctx, a, text, opts)
		if err != nil {
			return nil, err
		}
		return &cache.Entry{Ranking: r, Terms: terms}, nil
	}
	if s.cache == nil {
		entry, err := compute()
		return entry, false, err
	}
	key := cache.Key{Fingerprint: a.Fingerprint, Query: text, Params: params(opts)}
	return s.cache.GetOrCompute(ctx, key, compute)
}

// Expand returns the expanded term set of text without ranking.
func (s *Service) Expand(ctx context.Context, text string, opts engine.Options) (query.TermSet, query.TermSet, error) {
	a, err := s.Artifacts()
	if err != nil {
		return nil, nil, err
	}
	seeds := s.engine.Normalizer().Normalize(text)
	if len(seeds) == 0 {
		return nil, nil, fmt.Errorf("query %q has no searchable terms: %w", text, apperrors.ErrInvalidInput)
	}
	return query.NewTermSet(seeds...), s.engine.ExpandTerms(ctx, a, seeds, opts), nil
}

// HandleCorpusChanged is the Kafka handler for corpus change events.
func (s *Service) HandleCorpusChanged(ctx context.Context, _ []byte, value []byte) error {
	ev, err := kafka.DecodeJSON[articles.CorpusChanged](value)
	if err != nil {
		return err
	}
	s.logger.Info("corpus changed", "corpus", ev.Corpus, "url", ev.URL, "count", ev.Count)
	if err := s.Reload(ctx); err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return nil
		}
		return err
	}
	return nil
}

func params(opts engine.Options) string {
	return fmt.Sprintf("%s|%s|%t|%d|%s|%s|%d",
		opts.Mode, opts.Policy, opts.Expand, opts.Width, opts.Normalization,
		strconv.FormatFloat(opts.Ranking.Threshold, 'g', -1, 64), opts.Ranking.TopN)
}
