// Command searcher serves ranked, expanded queries over the news corpus.
//
// Articles are read from PostgreSQL when it is reachable and from the
// configured JSON file otherwise. The artifacts are rebuilt when a
// corpus-changed event arrives on Kafka or POST /api/v1/reload is called.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus/articles"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/codec"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "mode", cfg.Retrieval.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	var store *snapshot.Store
	if !cfg.Snapshot.Disable {
		format, err := codec.ParseFormat(cfg.Snapshot.Format)
		if err != nil {
			slog.Error("invalid snapshot format", "error", err)
			os.Exit(1)
		}
		store = snapshot.NewStore(cfg.Snapshot.Dir, format)
	}
	eng := engine.New(store, normalizer.NewEnglish(), m)

	var db *postgres.Client
	load := func(context.Context) (*corpus.Corpus, error) {
		return corpus.LoadArticles(cfg.Corpus.ArticlesPath)
	}
	db, err = postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, serving the article file", "path", cfg.Corpus.ArticlesPath, "error", err)
	} else {
		defer db.Close()
		articleStore, err := articles.NewPostgresStore(ctx, db)
		if err != nil {
			slog.Error("failed to prepare article store", "error", err)
			os.Exit(1)
		}
		load = func(ctx context.Context) (*corpus.Corpus, error) {
			return articles.LoadCorpus(ctx, articleStore)
		}
		slog.Info("serving articles from postgres")
	}

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	svc := searcher.NewService(eng, load, queryCache)
	if err := svc.Reload(ctx); err != nil {
		slog.Warn("initial corpus load failed, waiting for reload", "error", err)
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.CorpusChanged, svc.HandleCorpusChanged)
	defer consumer.Close()
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("corpus-changed consumer stopped", "error", err)
		}
	}()
	slog.Info("listening for corpus changes", "topic", cfg.Kafka.Topics.CorpusChanged)

	checker := health.NewChecker()
	checker.Register("artifacts", health.ReadyCheck(svc.Ready, "corpus not loaded"))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, true))
	}
	if db != nil {
		checker.Register("postgres", health.PingCheck(db.Ping, false))
	}

	defaults := engine.OptionsFromConfig(cfg.Retrieval, ranking.PolicyTopN)
	defaults.Ranking.TopN = cfg.Server.DefaultLimit
	h := handler.New(svc, queryCache, defaults, cfg.Server.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/expand", h.Expand)
	mux.HandleFunc("POST /api/v1/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
