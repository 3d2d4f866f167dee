package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/corpus/articles"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/normalizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/internal/snapshot"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/codec"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/vector-space-retrieval/pkg/tracing"
)

// app holds what every subcommand shares: configuration, the engine and
// lazily opened connections.
type app struct {
	cfg     *config.Config
	engine  *engine.Engine
	out     io.Writer
	verbose bool

	db              *postgres.Client
	shutdownMetrics func(context.Context) error
}

func newApp(configPath string, verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose {
		cfg.Retrieval.Verbose = true
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var store *snapshot.Store
	if !cfg.Snapshot.Disable {
		format, err := codec.ParseFormat(cfg.Snapshot.Format)
		if err != nil {
			return nil, err
		}
		store = snapshot.NewStore(cfg.Snapshot.Dir, format)
	}

	a := &app{
		cfg:     cfg,
		engine:  engine.New(store, normalizer.NewEnglish(), metrics.New(nil)),
		out:     os.Stdout,
		verbose: cfg.Retrieval.Verbose,
	}
	if cfg.Metrics.Enabled {
		a.shutdownMetrics = metrics.StartServer(cfg.Metrics.Port)
	}
	return a, nil
}

// Close releases connections and stops the metrics server.
func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.shutdownMetrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.shutdownMetrics(ctx); err != nil {
			slog.Warn("metrics server shutdown error", "error", err)
		}
	}
}

func (a *app) postgres() (*postgres.Client, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := postgres.New(a.cfg.Postgres)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

// trace opens the root span of a command. The span tree is logged when
// verbose output is on.
func (a *app) trace(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := tracing.StartSpan(ctx, name, "")
	return ctx, func() {
		span.End()
		if a.verbose {
			span.Log(slog.Default())
		}
	}
}

func parseModes(s string) ([]engine.Mode, error) {
	if s == "both" {
		return []engine.Mode{engine.ModeGlobal, engine.ModeLocal}, nil
	}
	m, err := engine.ParseMode(s)
	if err != nil {
		return nil, err
	}
	return []engine.Mode{m}, nil
}

func (a *app) options(mode engine.Mode, policy ranking.Policy, expand bool) engine.Options {
	opts := engine.OptionsFromConfig(a.cfg.Retrieval, policy)
	opts.Mode = mode
	opts.Expand = expand
	return opts
}

func (a *app) build(ctx context.Context, which string, fromDB bool) error {
	ctx, done := a.trace(ctx, "build")
	defer done()
	var names []string
	switch which {
	case "all":
		names = []string{"cranfield", "news"}
	case "cranfield", "news":
		names = []string{which}
	default:
		return fmt.Errorf("unknown corpus %q", which)
	}
	for _, name := range names {
		c, err := a.loadCorpus(ctx, name, fromDB)
		if err != nil {
			return err
		}
		art, err := a.engine.Build(ctx, c)
		if err != nil {
			return err
		}
		source := "built"
		if art.FromSnapshot {
			source = "snapshot"
		}
		fmt.Fprintf(a.out, "%s: %d documents, %d terms (%s)\n",
			name, art.Matrix.DocCount(), art.Matrix.TermCount(), source)
	}
	return nil
}

func (a *app) loadCorpus(ctx context.Context, name string, fromDB bool) (*corpus.Corpus, error) {
	switch name {
	case "cranfield":
		return corpus.LoadCranfieldDocuments(a.cfg.Corpus.CranfieldDocs)
	case "news":
		if !fromDB {
			return corpus.LoadArticles(a.cfg.Corpus.ArticlesPath)
		}
		db, err := a.postgres()
		if err != nil {
			return nil, err
		}
		store, err := articles.NewPostgresStore(ctx, db)
		if err != nil {
			return nil, err
		}
		return articles.LoadCorpus(ctx, store)
	default:
		return nil, fmt.Errorf("unknown corpus %q", name)
	}
}

func (a *app) cranfieldQueries() (corpus.QuerySet, error) {
	path := a.cfg.Corpus.CranfieldQueries
	fp, err := corpus.FileFingerprint(path)
	if err != nil {
		return nil, err
	}
	return a.engine.Queries("cranfield", fp, func() (corpus.QuerySet, error) {
		return corpus.LoadCranfieldQueries(path, a.engine.Normalizer())
	})
}

func (a *app) cranfieldTruth(queries corpus.QuerySet) (evaluation.Truth, error) {
	fp, err := corpus.FileFingerprint(a.cfg.Corpus.CranfieldQueries, a.cfg.Corpus.CranfieldRelevance)
	if err != nil {
		return nil, err
	}
	return a.engine.Truth("cranfield", fp, func() (evaluation.Truth, error) {
		return corpus.LoadCranfieldRelevance(a.cfg.Corpus.CranfieldRelevance, queries)
	})
}

func (a *app) portfolioQueries() (corpus.QuerySet, error) {
	path := a.cfg.Corpus.PortfolioPath
	fp, err := corpus.FileFingerprint(path)
	if err != nil {
		return nil, err
	}
	return a.engine.Queries("portfolio", fp, func() (corpus.QuerySet, error) {
		return corpus.LoadPortfolio(path, a.engine.Normalizer())
	})
}

func (a *app) benchmark(ctx context.Context, modes []engine.Mode, expand bool) error {
	ctx, done := a.trace(ctx, "benchmark")
	defer done()
	c, err := a.loadCorpus(ctx, "cranfield", false)
	if err != nil {
		return err
	}
	art, err := a.engine.Build(ctx, c)
	if err != nil {
		return err
	}
	queries, err := a.cranfieldQueries()
	if err != nil {
		return err
	}
	truth, err := a.cranfieldTruth(queries)
	if err != nil {
		return err
	}

	for _, mode := range modes {
		res, err := a.engine.Run(ctx, art, queries, a.options(mode, ranking.PolicyThreshold, expand))
		if err != nil {
			return err
		}
		_, span := tracing.StartChildSpan(ctx, "evaluate")
		report, err := evaluation.Evaluate(res.Rankings, truth, evaluation.Options{
			Label:     label("cranfield", mode),
			KeyMapper: evaluation.OffsetKeys(a.cfg.Corpus.RelevanceOffset),
			Verbose:   a.verbose,
		})
		span.End()
		if err != nil {
			return err
		}
		if err := report.Write(a.out, a.verbose); err != nil {
			return err
		}
		a.engine.ObserveReport(report)
	}
	return nil
}

type newsOptions struct {
	modes       []engine.Mode
	expand      bool
	fromDB      bool
	interactive bool
	judgmentsDB bool
}

func (a *app) news(ctx context.Context, o newsOptions) error {
	ctx, done := a.trace(ctx, "news")
	defer done()
	c, err := a.loadCorpus(ctx, "news", o.fromDB)
	if err != nil {
		return err
	}
	art, err := a.engine.Build(ctx, c)
	if err != nil {
		return err
	}
	queries, err := a.portfolioQueries()
	if err != nil {
		return err
	}

	var judge evaluation.Judge
	if o.interactive {
		judge, err = a.judge(ctx, o.judgmentsDB)
		if err != nil {
			return err
		}
	}

	for _, mode := range o.modes {
		res, err := a.engine.Run(ctx, art, queries, a.options(mode, ranking.PolicyTopN, o.expand))
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "== %s ==\n", label("news", mode))
		for _, r := range res.Rankings {
			writeRanking(a.out, r)
		}
		if judge == nil {
			continue
		}
		report, err := evaluation.EvaluateInteractive(ctx, res.Rankings, judge, label("news", mode))
		if err != nil {
			return err
		}
		if err := report.Write(a.out, a.verbose); err != nil {
			return err
		}
		a.engine.ObserveReport(report)
	}
	return nil
}

func (a *app) judge(ctx context.Context, persist bool) (evaluation.Judge, error) {
	prompt := evaluation.NewPromptJudge(os.Stdin, a.out)
	if !persist {
		return prompt, nil
	}
	db, err := a.postgres()
	if err != nil {
		return nil, err
	}
	store, err := evaluation.NewPostgresStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return evaluation.NewStoredJudge(store, prompt), nil
}

func (a *app) expand(ctx context.Context, name string, mode engine.Mode, fromDB bool) error {
	ctx, done := a.trace(ctx, "expand")
	defer done()
	c, err := a.loadCorpus(ctx, name, fromDB)
	if err != nil {
		return err
	}
	art, err := a.engine.Build(ctx, c)
	if err != nil {
		return err
	}
	var queries corpus.QuerySet
	if name == "cranfield" {
		queries, err = a.cranfieldQueries()
	} else {
		queries, err = a.portfolioQueries()
	}
	if err != nil {
		return err
	}

	res, err := a.engine.Run(ctx, art, queries, a.options(mode, ranking.PolicyTopN, true))
	if err != nil {
		return err
	}
	for _, q := range queries {
		fmt.Fprintf(a.out, "%s: %s -> %s\n",
			q.Name, strings.Join(q.TermSet(), " "), strings.Join(res.Expanded[q.Name], " "))
	}
	return nil
}

func writeRanking(w io.Writer, r ranking.Ranking) {
	if r.NoResults {
		fmt.Fprintf(w, "%s: no results\n", r.Query)
		return
	}
	fmt.Fprintf(w, "%s:\n", r.Query)
	for i, d := range r.Docs {
		fmt.Fprintf(w, "  %d. %s (%.4f)\n", i+1, d.DocKey, d.Score)
	}
}

func label(corpusName string, mode engine.Mode) string {
	return corpusName + " " + string(mode)
}
