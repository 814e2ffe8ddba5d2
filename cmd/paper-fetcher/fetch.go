// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-fetcher/internal/engine"
	"github.com/pdiddy/paper-fetcher/internal/httputil"
	"github.com/pdiddy/paper-fetcher/internal/input"
	"github.com/pdiddy/paper-fetcher/internal/ledger"
	"github.com/pdiddy/paper-fetcher/internal/observability"
	"github.com/pdiddy/paper-fetcher/internal/ratelimit"
	"github.com/pdiddy/paper-fetcher/internal/server"
	"github.com/pdiddy/paper-fetcher/internal/source"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <citations-file>",
	Short: "Search for and download every paper in a citations file",
	Long: `Fetch reads citations from a .txt, .csv, .json, or .yaml file, searches the
enabled sources for each paper, and downloads the best match into
<output>/pdfs with a metadata record in <output>/metadata. Papers whose PDF
already exists are skipped unless --overwrite is set.

The run ends with report.yaml and an entry in ledger.db under the output
directory. The exit status is non-zero when any paper failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var fetchFlagKeys = map[string]string{
	"overwrite":    "overwrite",
	"dry-run":      "dry_run",
	"workers":      "download.workers",
	"max-attempts": "download.max_attempts",
	"fallback":     "download.fallback_candidates",
}

func init() {
	addRunFlags(fetchCmd)
	f := fetchCmd.Flags()
	f.Bool("overwrite", false, "replace existing PDFs")
	f.Bool("dry-run", false, "search only; do not download")
	f.Int("workers", 0, "concurrent downloads (default 3)")
	f.Int("max-attempts", 0, "download attempts per candidate (default 3)")
	f.Int("fallback", 0, "lower-ranked candidates to try after the best one fails")
	f.String("listen", "", "serve /metrics, /healthz, /outcomes, and /tasks on this address during the run")
	f.String("metrics-file", "", "write Prometheus metrics to this file when the run ends")
	f.Bool("no-db", false, "do not record the run in ledger.db")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	applyFlags(cmd, fetchFlagKeys)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	queries, err := input.ReadFile(args[0])
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		return fmt.Errorf("no citations in %s", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics("paper_fetcher")
	client, err := httputil.NewClient(cfg.HTTP)
	if err != nil {
		return err
	}
	limiter := ratelimit.New(0)
	sources, err := source.Build(cfg, client, limiter, source.Credentials(loadedSecrets))
	if err != nil {
		return err
	}

	persisters := []ledger.Persister{ledger.NewYAMLReport(cfg.OutputDir)}
	if noDB, _ := cmd.Flags().GetBool("no-db"); !noDB {
		store, err := ledger.OpenStore(filepath.Join(cfg.OutputDir, ledger.DBFile))
		if err != nil {
			return err
		}
		defer store.Close()
		persisters = append(persisters, store)
	}

	eng, err := engine.New(cfg, sources,
		engine.WithHTTPClient(client),
		engine.WithLimiter(limiter),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
		engine.WithProgress(cmd.OutOrStdout()),
		engine.WithPersisters(persisters...),
	)
	if err != nil {
		return err
	}

	if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
		srvCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := server.Serve(srvCtx, addr, server.NewRouter(eng, metrics.Registry(), logger), logger); err != nil {
				logger.Error().Err(err).Msg("status server failed")
			}
		}()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "fetching %d paper(s) from %s\n", len(queries), sourceNames(cfg))
	report, runErr := eng.Run(ctx, queries)

	if path, _ := cmd.Flags().GetString("metrics-file"); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.HasFailures() {
		return fmt.Errorf("%d of %d paper(s) failed", report.Counts.Failures(), report.Counts.Total())
	}
	return nil
}

func sourceNames(cfg types.Config) []string {
	var names []string
	for _, s := range cfg.EnabledSources() {
		names = append(names, s.Name)
	}
	return names
}

