// Package handler exposes the search service over HTTP JSON.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/searcher/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/logger"
)

// Searcher is satisfied by searcher.Service.
type Searcher interface {
	Search(ctx context.Context, text string, opts engine.Options) (*cache.Entry, bool, error)
	Expand(ctx context.Context, text string, opts engine.Options) (seeds, expanded query.TermSet, err error)
	Reload(ctx context.Context) error
}

// SearchResponse is the body of GET /api/v1/search.
type SearchResponse struct {
	Query     string              `json:"query"`
	Mode      engine.Mode         `json:"mode"`
	Policy    ranking.Policy      `json:"policy"`
	Terms     query.TermSet       `json:"terms"`
	Results   []ranking.ScoredDoc `json:"results"`
	NoResults bool                `json:"no_results,omitempty"`
	CacheHit  bool                `json:"cache_hit"`
	LatencyMs int64               `json:"latency_ms"`
}

type Handler struct {
	searcher   Searcher
	cache      *cache.QueryCache
	defaults   engine.Options
	maxResults int
	logger     *slog.Logger
}

// New wires a handler. queryCache may be nil.
func New(s Searcher, queryCache *cache.QueryCache, defaults engine.Options, maxResults int) *Handler {
	return &Handler{
		searcher:   s,
		cache:      queryCache,
		defaults:   defaults,
		maxResults: maxResults,
		logger:     slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search?q=&mode=&policy=&expand=&n=&threshold=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	opts, err := h.options(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, cacheHit, err := h.searcher.Search(ctx, q, opts)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		log.Error("search failed", "query", q, "error", err, "status_code", status)
		h.writeError(w, status, "search failed")
		return
	}
	resp := SearchResponse{
		Query:     q,
		Mode:      opts.Mode,
		Policy:    opts.Policy,
		Terms:     entry.Terms,
		Results:   entry.Ranking.Docs,
		NoResults: entry.Ranking.NoResults,
		CacheHit:  cacheHit,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if resp.Results == nil {
		resp.Results = []ranking.ScoredDoc{}
	}
	log.Info("search completed",
		"query", q,
		"mode", opts.Mode,
		"returned", len(resp.Results),
		"cache_hit", cacheHit,
		"latency_ms", resp.LatencyMs,
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) options(r *http.Request) (engine.Options, error) {
	opts := h.defaults
	params := r.URL.Query()
	if v := params.Get("mode"); v != "" {
		mode, err := engine.ParseMode(v)
		if err != nil {
			return opts, fmt.Errorf("mode must be global or local")
		}
		opts.Mode = mode
	}
	switch v := params.Get("policy"); v {
	case "":
	case string(ranking.PolicyTopN), string(ranking.PolicyThreshold):
		opts.Policy = ranking.Policy(v)
	default:
		return opts, fmt.Errorf("policy must be top or threshold")
	}
	if v := params.Get("expand"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("expand must be true or false")
		}
		opts.Expand = b
	}
	if v := params.Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, fmt.Errorf("n must be a positive integer")
		}
		if h.maxResults > 0 {
			n = min(n, h.maxResults)
		}
		opts.Ranking.TopN = n
	}
	if v := params.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 1 {
			return opts, fmt.Errorf("threshold must be within [0,1]")
		}
		opts.Ranking.Threshold = t
	}
	return opts, nil
}

// Expand handles GET /api/v1/expand?q=.
func (h *Handler) Expand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	opts, err := h.options(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	seeds, expanded, err := h.searcher.Expand(r.Context(), q, opts)
	if err != nil {
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":    q,
		"seeds":    seeds,
		"expanded": expanded,
	})
}

// Reload handles POST /api/v1/reload.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.searcher.Reload(r.Context()); err != nil {
		h.logger.Error("reload failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "reload failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
