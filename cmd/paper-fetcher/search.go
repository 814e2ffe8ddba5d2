// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-fetcher/internal/engine"
	"github.com/pdiddy/paper-fetcher/internal/httputil"
	"github.com/pdiddy/paper-fetcher/internal/input"
	"github.com/pdiddy/paper-fetcher/internal/ratelimit"
	"github.com/pdiddy/paper-fetcher/internal/search"
	"github.com/pdiddy/paper-fetcher/internal/source"
)

var searchCmd = &cobra.Command{
	Use:   "search <citations-file>",
	Short: "Show ranked candidates for every paper without downloading",
	Long: `Search runs the source queries and matching for each citation and prints
the acceptable candidates, best first. Nothing is downloaded or recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	addRunFlags(searchCmd)
	searchCmd.Flags().String("format", "table", "output format: table, json, or csl")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "table" && format != "json" && format != "csl" {
		return fmt.Errorf("unknown format %q", format)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	queries, err := input.ReadFile(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := httputil.NewClient(cfg.HTTP)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(0)
	engine.ConfigureLimiter(limiter, cfg)
	sources, err := source.Build(cfg, client, limiter, source.Credentials(loadedSecrets))
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return engine.ErrNoSources
	}
	orch := search.New(sources, cfg, search.WithLogger(logger))

	results := make([]search.PaperResult, len(queries))
	var g errgroup.Group
	g.SetLimit(cfg.Concurrency)
	for i, q := range queries {
		results[i].Query = q
		if !q.Valid() {
			continue
		}
		g.Go(func() error {
			results[i].Result = orch.Search(ctx, q)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return search.FormatJSON(results, out)
	case "csl":
		return search.FormatCSL(results, out)
	default:
		search.FormatTable(results, out)
		return nil
	}
}
