// Command retrieval builds vector-space artifacts for the configured corpora,
// runs query expansion and ranking over them and evaluates the results.
//
// Usage:
//
//	retrieval build [--corpus cranfield|news]
//	retrieval benchmark [--mode global|local|both]
//	retrieval news [--interactive] [--judgments-db]
//	retrieval expand --corpus cranfield|news
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	var (
		configPath   string
		verbose      bool
		buildCorpus  string
		expandCorpus string
		benchMode    string
		newsMode     string
		expandMode   string
		fromDB       bool
		interactive  bool
		judgmentsDB  bool
		noExpand     bool
	)

	rootCmd := &cobra.Command{
		Use:           "retrieval",
		Short:         "Vector-space retrieval with co-occurrence query expansion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/development.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print per-query results")

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build and snapshot the index and weight matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(configPath, verbose)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.build(cmd.Context(), buildCorpus, fromDB)
		},
	}
	buildCmd.Flags().StringVar(&buildCorpus, "corpus", "all", "Corpus to build: cranfield, news or all")
	buildCmd.Flags().BoolVar(&fromDB, "from-db", false, "Load news articles from Postgres instead of the JSON file")

	benchmarkCmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Evaluate threshold retrieval on the Cranfield collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(configPath, verbose)
			if err != nil {
				return err
			}
			defer app.Close()
			modes, err := parseModes(benchMode)
			if err != nil {
				return err
			}
			return app.benchmark(cmd.Context(), modes, !noExpand)
		},
	}
	benchmarkCmd.Flags().StringVar(&benchMode, "mode", "both", "Expansion mode: global, local or both")
	benchmarkCmd.Flags().BoolVar(&noExpand, "no-expand", false, "Rank with seed terms only")

	newsCmd := &cobra.Command{
		Use:   "news",
		Short: "Rank news articles for every stock in the portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(configPath, verbose)
			if err != nil {
				return err
			}
			defer app.Close()
			modes, err := parseModes(newsMode)
			if err != nil {
				return err
			}
			return app.news(cmd.Context(), newsOptions{
				modes:       modes,
				expand:      !noExpand,
				fromDB:      fromDB,
				interactive: interactive,
				judgmentsDB: judgmentsDB,
			})
		},
	}
	newsCmd.Flags().StringVar(&newsMode, "mode", "both", "Expansion mode: global, local or both")
	newsCmd.Flags().BoolVar(&noExpand, "no-expand", false, "Rank with seed terms only")
	newsCmd.Flags().BoolVar(&fromDB, "from-db", false, "Load news articles from Postgres instead of the JSON file")
	newsCmd.Flags().BoolVar(&interactive, "interactive", false, "Ask for relevance labels and report precision")
	newsCmd.Flags().BoolVar(&judgmentsDB, "judgments-db", false, "Reuse and record relevance labels in Postgres")

	expandCmd := &cobra.Command{
		Use:   "expand",
		Short: "Print the expanded term set of every query",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(configPath, verbose)
			if err != nil {
				return err
			}
			defer app.Close()
			m, err := parseModes(expandMode)
			if err != nil {
				return err
			}
			if len(m) != 1 {
				return fmt.Errorf("expand needs a single mode, got %q", expandMode)
			}
			return app.expand(cmd.Context(), expandCorpus, m[0], fromDB)
		},
	}
	expandCmd.Flags().StringVar(&expandCorpus, "corpus", "cranfield", "Corpus whose queries are expanded: cranfield or news")
	expandCmd.Flags().StringVar(&expandMode, "mode", "global", "Expansion mode: global or local")
	expandCmd.Flags().BoolVar(&fromDB, "from-db", false, "Load news articles from Postgres instead of the JSON file")

	rootCmd.AddCommand(buildCmd, benchmarkCmd, newsCmd, expandCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
