package evaluation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/postgres"
)

// JudgmentStore persists relevance labels so interactive runs can be
// repeated without asking again.
type JudgmentStore interface {
	Lookup(ctx context.Context, query, docKey string) (relevant bool, found bool, err error)
	Save(ctx context.Context, query, docKey string, relevant bool) error
}

// StoredJudge answers from store and falls back to next for unseen pairs,
// saving the new label.
type StoredJudge struct {
	store  JudgmentStore
	next   Judge
	logger *slog.Logger
}

func NewStoredJudge(store JudgmentStore, next Judge) *StoredJudge {
	return &StoredJudge{store: store, next: next, logger: slog.Default().With("component", "judgments")}
}

func (s *StoredJudge) Judge(ctx context.Context, query, docKey string) (bool, error) {
	relevant, found, err := s.store.Lookup(ctx, query, docKey)
	if err != nil {
		return false, err
	}
	if found {
		return relevant, nil
	}
	if s.next == nil {
		return false, fmt.Errorf("no stored judgment for %q/%q", query, docKey)
	}
	relevant, err = s.next.Judge(ctx, query, docKey)
	if err != nil {
		return false, err
	}
	if err := s.store.Save(ctx, query, docKey, relevant); err != nil {
		s.logger.Warn("failed to store judgment", "query", query, "doc", docKey, "error", err)
	}
	return relevant, nil
}

// MemoryStore is an in-process JudgmentStore.
type MemoryStore struct {
	mu     sync.RWMutex
	labels map[[2]string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{labels: make(map[[2]string]bool)}
}

func (m *MemoryStore) Lookup(_ context.Context, query, docKey string) (bool, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.labels[[2]string{query, docKey}]
	return v, ok, nil
}

func (m *MemoryStore) Save(_ context.Context, query, docKey string, relevant bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labels[[2]string{query, docKey}] = relevant
	return nil
}

const judgmentsSchema = `CREATE TABLE IF NOT EXISTS relevance_judgments (
	query      TEXT        NOT NULL,
	doc_key    TEXT        NOT NULL,
	relevant   BOOLEAN     NOT NULL,
	judged_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (query, doc_key)
)`

// PostgresStore keeps judgments in the relevance_judgments table.
type PostgresStore struct {
	db *postgres.Client
}

// NewPostgresStore creates the table if needed.
func NewPostgresStore(ctx context.Context, db *postgres.Client) (*PostgresStore, error) {
	if err := db.Migrate(ctx, judgmentsSchema); err != nil {
		return nil, fmt.Errorf("migrating judgments: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Lookup(ctx context.Context, query, docKey string) (bool, bool, error) {
	var relevant bool
	err := p.db.DB.QueryRowContext(ctx,
		`SELECT relevant FROM relevance_judgments WHERE query = $1 AND doc_key = $2`,
		query, docKey,
	).Scan(&relevant)
	if errors.Is(err, sql.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("looking up judgment: %w", err)
	}
	return relevant, true, nil
}

func (p *PostgresStore) Save(ctx context.Context, query, docKey string, relevant bool) error {
	_, err := p.db.DB.ExecContext(ctx,
		`INSERT INTO relevance_judgments (query, doc_key, relevant)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (query, doc_key) DO UPDATE SET relevant = EXCLUDED.relevant, judged_at = NOW()`,
		query, docKey, relevant,
	)
	if err != nil {
		return fmt.Errorf("saving judgment: %w", err)
	}
	return nil
}
