// Package cache memoizes search rankings in Redis. Keys bind the corpus
// fingerprint, so a rebuilt corpus never serves stale rankings. A circuit
// breaker stops calling Redis while it is failing.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/query"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/resilience"
)

const keyPrefix = "search:"

// opTimeout bounds a single Redis round trip; a slow cache is treated as a miss.
const opTimeout = 200 * time.Millisecond

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Entry is one cached search outcome.
type Entry struct {
	Ranking ranking.Ranking `json:"ranking"`
	Terms   query.TermSet   `json:"terms"`
}

// Key identifies a search. Params should carry every option that changes
// the ranking (mode, policy, width, threshold, n, expansion).
type Key struct {
	Fingerprint string
	Query       string
	Params      string
}

func (k Key) String() string {
	normalized := strings.Join(strings.Fields(strings.ToLower(k.Query)), " ")
	raw := k.Fingerprint + "|" + normalized + "|" + k.Params
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps backend. ttl zero defers to the backend's default TTL. m may
// be nil.
func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	cbCfg := resilience.CircuitBreakerConfig{
		FailureThreshold:    5,
		ResetTimeout:        30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
	if m != nil {
		cbCfg.OnStateChange = func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		}
	}
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", cbCfg),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns a cached entry. Backend failures count as misses.
func (c *QueryCache) Get(ctx context.Context, key Key) (*Entry, bool) {
	k := key.String()
	var (
		data  []byte
		found bool
	)
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, opTimeout, "cache get", func(ctx context.Context) error {
			var err error
			data, found, err = c.backend.Get(ctx, k)
			return err
		})
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Error("cache unmarshal failed", "key", k, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", key.Query, "key", k)
	return &entry, true
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// Set stores entry; failures are logged only.
func (c *QueryCache) Set(ctx context.Context, key Key, entry *Entry) {
	k := key.String()
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", k, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, opTimeout, "cache set", func(ctx context.Context) error {
			return c.backend.Set(ctx, k, data, c.ttl)
		})
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", k, "error", err)
	}
}

// GetOrCompute returns the cached entry or runs computeFn once for all
// concurrent callers of the same key. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(ctx context.Context, key Key, computeFn func() (*Entry, error)) (*Entry, bool, error) {
	if entry, ok := c.Get(ctx, key); ok {
		return entry, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (any, error) {
		entry, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, entry)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate drops every cached search.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.backend.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since start.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the Redis circuit breaker state.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}
