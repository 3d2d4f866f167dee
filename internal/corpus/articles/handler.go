package articles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/metrics"
)

// Handler validates incoming articles, stores them and announces corpus
// changes.
type Handler struct {
	store     Store
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler wires a handler. publisher and m may be nil.
func NewHandler(store Store, publisher kafka.Publisher, m *metrics.Metrics) *Handler {
	return &Handler{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    slog.Default().With("component", "articles"),
		now:       time.Now,
	}
}

// Ingest cleans, validates and stores one article. Article bodies scraped as
// HTML are reduced to their visible text first.
func (h *Handler) Ingest(ctx context.Context, a Article) (*IngestResponse, error) {
	if strings.Contains(a.Text, "<") {
		text, err := corpus.StripHTML(a.Text)
		if err != nil {
			return nil, fmt.Errorf("article %s: %w: %v", a.URL, apperrors.ErrMalformedRecord, err)
		}
		a.Text = text
	}
	a.URL = strings.TrimSpace(a.URL)
	a.Title = strings.TrimSpace(a.Title)
	if err := ValidateArticle(&a); err != nil {
		return nil, fmt.Errorf("article %s: %w", a.URL, err)
	}
	created, changed, err := h.store.Upsert(ctx, a)
	if err != nil {
		return nil, err
	}
	resp := &IngestResponse{URL: a.URL, Created: created, Changed: changed}
	if !changed {
		return resp, nil
	}
	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Inc()
	}
	h.announce(ctx, a.URL)
	return resp, nil
}

// announce publishes CorpusChanged. A failed publish is logged, not
// returned: the article is already stored and the next change re-announces.
func (h *Handler) announce(ctx context.Context, url string) {
	if h.publisher == nil {
		return
	}
	count, err := h.store.Count(ctx)
	if err != nil {
		h.logger.Warn("failed to count articles", "error", err)
	}
	event := kafka.Event{
		Key: "news",
		Value: CorpusChanged{
			Corpus:    "news",
			URL:       url,
			Count:     count,
			ChangedAt: h.now().UTC(),
		},
	}
	if err := h.publisher.Publish(ctx, event); err != nil {
		h.logger.Error("failed to publish corpus change", "url", url, "error", err)
	}
}

// HandleMessage is the Kafka MessageHandler for the article topic.
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) error {
	a, err := kafka.DecodeJSON[Article](value)
	if err != nil {
		return err
	}
	if a.URL == "" {
		a.URL = string(key)
	}
	resp, err := h.Ingest(ctx, a)
	if err != nil {
		return err
	}
	h.logger.Debug("article consumed", "url", resp.URL, "created", resp.Created, "changed", resp.Changed)
	return nil
}

// ServeIngest handles POST /api/v1/articles.
func (h *Handler) ServeIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var a Article
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.Ingest(ctx, a)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("article ingestion failed", "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, "ingestion failed")
		return
	}
	log.Info("article ingested", "url", resp.URL, "created", resp.Created, "changed", resp.Changed)
	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, resp)
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
