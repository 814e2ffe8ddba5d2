// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine drives a fetch run: for every paper query it searches the
// configured sources, hands the best candidates to the download manager,
// and records exactly one terminal outcome in the run ledger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-fetcher/internal/acquire"
	"github.com/pdiddy/paper-fetcher/internal/httputil"
	"github.com/pdiddy/paper-fetcher/internal/ledger"
	"github.com/pdiddy/paper-fetcher/internal/observability"
	"github.com/pdiddy/paper-fetcher/internal/ratelimit"
	"github.com/pdiddy/paper-fetcher/internal/search"
	"github.com/pdiddy/paper-fetcher/internal/source"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Precondition failures reported by New.
var (
	ErrNoSources       = errors.New("no enabled sources")
	ErrOutputNotUsable = errors.New("output directory is not writable")
)

// Engine processes paper queries end to end.
type Engine struct {
	cfg        types.Config
	orch       *search.Orchestrator
	downloads  *acquire.Manager
	ledger     *ledger.Ledger
	persisters []ledger.Persister
	log        zerolog.Logger
	metrics    *observability.Metrics

	progressMu sync.Mutex
	progress   io.Writer
}

type options struct {
	client     *http.Client
	limiter    *ratelimit.Limiter
	log        zerolog.Logger
	metrics    *observability.Metrics
	progress   io.Writer
	persisters []ledger.Persister
}

// Option configures an Engine.
type Option func(*options)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

// WithLimiter sets the shared rate limiter. The engine installs the
// per-source search and download delays from the config on it.
func WithLimiter(l *ratelimit.Limiter) Option { return func(o *options) { o.limiter = l } }

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option { return func(o *options) { o.log = l } }

// WithMetrics records run metrics.
func WithMetrics(m *observability.Metrics) Option { return func(o *options) { o.metrics = m } }

// WithProgress writes one human-readable line per finished paper to w.
func WithProgress(w io.Writer) Option { return func(o *options) { o.progress = w } }

// WithPersisters sets where the final report is stored.
func WithPersisters(p ...ledger.Persister) Option {
	return func(o *options) { o.persisters = append(o.persisters, p...) }
}

// New validates cfg, checks that the output directory can be written, and
// wires the orchestrator, download manager, and ledger. sources must be in
// priority order.
func New(cfg types.Config, sources []source.Source, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if err := checkWritable(cfg.OutputDir); err != nil {
		return nil, err
	}

	o := options{log: zerolog.Nop(), progress: io.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.client == nil {
		c, err := httputil.NewClient(cfg.HTTP)
		if err != nil {
			return nil, err
		}
		o.client = c
	}
	if o.limiter != nil {
		ConfigureLimiter(o.limiter, cfg)
	}

	mopts := []acquire.Option{
		acquire.WithLogger(o.log),
		acquire.WithMetrics(o.metrics),
		acquire.WithUserAgent(cfg.HTTP.UserAgent),
		acquire.WithOverwrite(cfg.Overwrite),
		acquire.WithYearWindow(cfg.Match.YearWindow),
	}
	if o.limiter != nil {
		mopts = append(mopts, acquire.WithGate(o.limiter))
	}

	e := &Engine{
		cfg:        cfg,
		orch:       search.New(sources, cfg, search.WithLogger(o.log), search.WithMetrics(o.metrics)),
		downloads:  acquire.NewManager(o.client, cfg.OutputDir, cfg.Download, mopts...),
		ledger:     ledger.New(),
		persisters: o.persisters,
		metrics:    o.metrics,
		progress:   o.progress,
	}
	e.log = observability.WithRunContext(o.log, e.ledger.RunID())
	return e, nil
}

// ConfigureLimiter installs the search and download delays of every
// configured source on l.
func ConfigureLimiter(l *ratelimit.Limiter, cfg types.Config) {
	for _, sc := range cfg.Sources {
		l.SetDelay(sc.Name, sc.Delay)
		l.SetDelay(ratelimit.DownloadKey(sc.Name), sc.DownloadDelay)
	}
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrOutputNotUsable, err)
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputNotUsable, err)
	}
	f.Close()
	os.Remove(f.Name())
	return nil
}

// Ledger returns the run ledger.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Snapshot returns the outcomes recorded so far.
func (e *Engine) Snapshot() ledger.Report {
	r := e.ledger.Snapshot()
	r.Sources = e.orch.Stats()
	return r
}

// Tasks returns a snapshot of the download manager's tasks.
func (e *Engine) Tasks() []types.DownloadTask { return e.downloads.Tasks() }

// SourceStats returns per-source search counters so far.
func (e *Engine) SourceStats() map[string]types.SourceStats { return e.orch.Stats() }

// Run processes every query with bounded paper concurrency and returns the
// final report after handing it to the persisters. Queries sharing an
// identity, with years inside the match window, are processed once. Every processed query ends with exactly one
// outcome, including when ctx is cancelled mid-run.
func (e *Engine) Run(ctx context.Context, queries []types.PaperQuery) (ledger.Report, error) {
	e.log.Info().Int("papers", len(queries)).Msg("run started")

	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	var kept []types.PaperQuery
	for i, q := range queries {
		id := q.ID()
		if !q.Valid() {
			id = fmt.Sprintf("input#%d", i+1)
		} else if e.duplicate(kept, q) {
			e.log.Info().Str("paper_id", id).Msg("duplicate query skipped")
			e.printf("duplicate %s\n", label(q))
			continue
		} else {
			kept = append(kept, q)
		}

		g.Go(func() error {
			e.process(ctx, q, id)
			return nil
		})
	}
	g.Wait()

	e.ledger.SetSourceStats(e.orch.Stats())
	report, err := e.ledger.Finalize(context.WithoutCancel(ctx), e.persisters...)
	c := report.Counts
	e.printf("\ndownloaded: %d, skipped: %d, searched: %d, failed: %d\n",
		c.Downloaded, c.SkippedExisting, c.Searched, c.Failures())
	e.log.Info().
		Int("downloaded", c.Downloaded).
		Int("skipped", c.SkippedExisting).
		Int("failed", c.Failures()).
		Dur("duration", report.TotalDuration).
		Msg("run finished")
	if err != nil {
		return report, fmt.Errorf("persisting report: %w", err)
	}
	return report, nil
}

func (e *Engine) duplicate(kept []types.PaperQuery, q types.PaperQuery) bool {
	for _, k := range kept {
		if k.SameIdentity(q, e.cfg.Match.YearWindow) {
			return true
		}
	}
	return false
}

// ProcessPaper runs one query through the state machine and records its
// outcome.
func (e *Engine) ProcessPaper(ctx context.Context, q types.PaperQuery) types.Outcome {
	return e.process(ctx, q, q.ID())
}

func (e *Engine) process(ctx context.Context, q types.PaperQuery, id string) types.Outcome {
	out := e.resolve(ctx, q, id)
	out.PaperID = id
	out.Title = q.Title
	if out.FinishedAt.IsZero() {
		out.FinishedAt = time.Now()
	}
	out.Duration = out.FinishedAt.Sub(out.StartedAt)

	if err := e.ledger.Record(out); err != nil {
		e.log.Warn().Err(err).Str("paper_id", id).Msg("outcome not recorded")
		return out
	}
	e.metrics.ObserveOutcome(out.State)
	e.report(q, out)
	return out
}

func (e *Engine) resolve(ctx context.Context, q types.PaperQuery, id string) types.Outcome {
	start := time.Now()
	out := types.Outcome{StartedAt: start}
	log := observability.WithPaperContext(e.log, id, q.Title)

	if !q.Valid() {
		out.State = types.StateMalformedQuery
		out.ErrorKind = types.KindValidation
		out.Error = "query has no title"
		return out
	}

	if !e.cfg.Overwrite && !e.cfg.DryRun {
		if path, info, ok := acquire.FindExisting(e.cfg.OutputDir, q, e.cfg.Match.YearWindow); ok {
			out.State = types.StateSkippedExisting
			out.FilePath = path
			out.FileSize = info.Size()
			return out
		}
	}

	if err := ctx.Err(); err != nil {
		return cancelled(out, err)
	}

	res := e.orch.Search(ctx, q)
	out.Diagnostics = res.Diagnostics
	if err := ctx.Err(); err != nil {
		return cancelled(out, err)
	}
	best, ok := res.Best()
	if !ok {
		out.State = types.StateSearchFailed
		log.Info().Strs("tried", res.Tried).Msg("no acceptable candidate")
		return out
	}
	out.ChosenSource = best.Candidate.SourceID
	out.Locator = best.Candidate.Locator
	out.Score = best.Score

	if e.cfg.DryRun {
		out.State = types.StateSearched
		return out
	}

	fut := e.downloads.Submit(ctx, acquire.Request{Query: q, Candidates: res.Ranked})
	dl, _ := fut.Wait(context.WithoutCancel(ctx))
	dl.StartedAt = start
	dl.Diagnostics = append(append([]string(nil), res.Diagnostics...), dl.Diagnostics...)
	if dl.ChosenSource == "" {
		dl.ChosenSource, dl.Locator, dl.Score = out.ChosenSource, out.Locator, out.Score
	}
	return dl
}

func cancelled(out types.Outcome, err error) types.Outcome {
	out.State = types.StateCancelled
	out.Error = err.Error()
	return out
}

func (e *Engine) report(q types.PaperQuery, o types.Outcome) {
	switch o.State {
	case types.StateDownloaded:
		e.printf("downloaded %s from %s (%d bytes)\n", label(q), o.ChosenSource, o.FileSize)
	case types.StateSkippedExisting:
		e.printf("skipped    %s (exists)\n", label(q))
	case types.StateSearched:
		e.printf("found      %s on %s (score %.2f)\n", label(q), o.ChosenSource, o.Score)
	case types.StateSearchFailed:
		e.printf("not found  %s\n", label(q))
	case types.StateDownloadFailed:
		e.printf("failed     %s: %s\n", label(q), o.Error)
	case types.StateMalformedQuery:
		e.printf("malformed  %s\n", label(q))
	case types.StateCancelled:
		e.printf("cancelled  %s\n", label(q))
	}
}

func (e *Engine) printf(format string, args ...any) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	fmt.Fprintf(e.progress, format, args...)
}

func label(q types.PaperQuery) string {
	if q.Title != "" {
		return fmt.Sprintf("%q", q.Title)
	}
	if q.RawCitation != "" {
		return fmt.Sprintf("%q", q.RawCitation)
	}
	return "(empty query)"
}
