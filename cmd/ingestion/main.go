// Command ingestion starts the article ingestion service.
//
// Articles arrive on the Kafka article topic or via POST /api/v1/articles.
// They are cleaned, validated and upserted into PostgreSQL; every stored
// change is announced on the corpus-changed topic so search services can
// rebuild their artifacts.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus/articles"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/postgres"
)

// main loads configuration, connects to PostgreSQL, starts the article
// consumer and serves the HTTP API. Graceful shutdown is triggered by
// SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting ingestion service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store, err := articles.NewPostgresStore(ctx, db)
	if err != nil {
		slog.Error("failed to prepare article store", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CorpusChanged)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.CorpusChanged)

	m := metrics.New(nil)
	h := articles.NewHandler(store, producer, m)

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Articles, h.HandleMessage)
	defer consumer.Close()
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("article consumer stopped", "error", err)
		}
	}()
	slog.Info("article consumer started", "topic", cfg.Kafka.Topics.Articles)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(db.Ping, false))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/articles", h.ServeIngest)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
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
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
