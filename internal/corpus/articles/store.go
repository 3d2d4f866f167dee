package articles

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/postgres"
)

// Store persists articles. Upsert reports whether the URL was new and
// whether the stored content changed.
type Store interface {
	Upsert(ctx context.Context, a Article) (created, changed bool, err error)
	List(ctx context.Context) ([]Article, error)
	Count(ctx context.Context) (int, error)
}

// LoadCorpus reads every stored article into a corpus ordered by URL, the
// same order LoadArticles uses for the file-based collection.
func LoadCorpus(ctx context.Context, s Store) (*corpus.Corpus, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].URL < list[j].URL })
	c := &corpus.Corpus{Name: "news", Docs: make([]corpus.Document, len(list))}
	for i, a := range list {
		c.Docs[i] = corpus.Document{Key: a.URL, Text: a.Document()}
	}
	return c, nil
}

const articlesSchema = `CREATE TABLE IF NOT EXISTS articles (
	url          TEXT        PRIMARY KEY,
	title        TEXT        NOT NULL,
	body         TEXT        NOT NULL,
	source       TEXT        NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	content_hash TEXT        NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps articles in the articles table.
type PostgresStore struct {
	db *postgres.Client
}

// NewPostgresStore creates the articles table if needed.
func NewPostgresStore(ctx context.Context, db *postgres.Client) (*PostgresStore, error) {
	if err := db.Migrate(ctx, articlesSchema); err != nil {
		return nil, fmt.Errorf("migrating articles: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Upsert(ctx context.Context, a Article) (bool, bool, error) {
	hash := contentHash(a)
	var created, changed bool
	err := p.db.InTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT content_hash FROM articles WHERE url = $1 FOR UPDATE`, a.URL).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			created, changed = true, true
			_, err = tx.ExecContext(ctx,
				`INSERT INTO articles (url, title, body, source, published_at, content_hash)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				a.URL, a.Title, a.Text, a.Source, nullableTime(a), hash)
			return err
		case err != nil:
			return err
		case existing == hash:
			return nil
		}
		changed = true
		_, err = tx.ExecContext(ctx,
			`UPDATE articles SET title = $2, body = $3, source = $4, published_at = $5,
			 content_hash = $6, updated_at = NOW() WHERE url = $1`,
			a.URL, a.Title, a.Text, a.Source, nullableTime(a), hash)
		return err
	})
	if err != nil {
		return false, false, fmt.Errorf("upserting article %s: %w", a.URL, err)
	}
	return created, changed, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]Article, error) {
	rows, err := p.db.DB.QueryContext(ctx,
		`SELECT url, title, body, source, published_at FROM articles ORDER BY url`)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()
	var out []Article
	for rows.Next() {
		var a Article
		var published sql.NullTime
		if err := rows.Scan(&a.URL, &a.Title, &a.Text, &a.Source, &published); err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		if published.Valid {
			a.PublishedAt = published.Time
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting articles: %w", err)
	}
	return n, nil
}

func contentHash(a Article) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(a.Title+"\x00"+a.Text)))
}

func nullableTime(a Article) sql.NullTime {
	if a.PublishedAt.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: a.PublishedAt, Valid: true}
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	articles map[string]Article
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{articles: make(map[string]Article)}
}

func (m *MemoryStore) Upsert(_ context.Context, a Article) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.articles[a.URL]
	m.articles[a.URL] = a
	if !ok {
		return true, true, nil
	}
	return false, contentHash(old) != contentHash(a), nil
}

func (m *MemoryStore) List(context.Context) ([]Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Article, 0, len(m.articles))
	for _, a := range m.articles {
		out = append(out, a)
	}
	return out, nil
}

func (m *MemoryStore) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.articles), nil
}
