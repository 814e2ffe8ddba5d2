// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire is the download manager. It transfers matched candidates
// into the output directory under a bounded worker pool, retries transient
// failures with exponential backoff, falls back to lower-ranked candidates,
// and writes a YAML metadata record next to every PDF it keeps.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/paper-fetcher/internal/httputil"
	"github.com/pdiddy/paper-fetcher/internal/match"
	"github.com/pdiddy/paper-fetcher/internal/observability"
	"github.com/pdiddy/paper-fetcher/internal/ratelimit"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Gate is the rate limiter consulted before every transfer.
type Gate interface {
	Acquire(ctx context.Context, key string) error
}

// Request asks the manager to fetch one paper. Candidates are tried in
// order; the first is the primary choice and the rest are fallbacks.
type Request struct {
	Query      types.PaperQuery
	Candidates []match.Scored
}

// Future is the pending outcome of a submitted request.
type Future struct {
	done    chan struct{}
	outcome types.Outcome
}

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the outcome is ready or ctx ends.
func (f *Future) Wait(ctx context.Context) (types.Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, nil
	case <-ctx.Done():
		return types.Outcome{}, ctx.Err()
	}
}

type entry struct {
	task   types.DownloadTask
	future *Future
}

// Manager schedules and executes downloads.
type Manager struct {
	client    *http.Client
	cfg       types.DownloadConfig
	root      string
	userAgent string
	overwrite bool
	window    int
	gate      Gate
	log       zerolog.Logger
	metrics   *observability.Metrics

	sem *semaphore.Weighted

	mu    sync.Mutex
	tasks map[string]*entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithGate sets the limiter for download hosts.
func WithGate(g Gate) Option { return func(m *Manager) { m.gate = g } }

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) Option { return func(m *Manager) { m.log = l } }

// WithMetrics records transfer metrics.
func WithMetrics(mt *observability.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// WithUserAgent overrides the User-Agent sent with transfers.
func WithUserAgent(ua string) Option { return func(m *Manager) { m.userAgent = ua } }

// WithOverwrite replaces existing artifacts instead of skipping them.
func WithOverwrite(v bool) Option { return func(m *Manager) { m.overwrite = v } }

// WithYearWindow lets requests whose years differ by up to w count as the
// same paper when coalescing and when looking for existing artifacts.
func WithYearWindow(w int) Option { return func(m *Manager) { m.window = w } }

// NewManager returns a manager that writes under root.
func NewManager(client *http.Client, root string, cfg types.DownloadConfig, opts ...Option) *Manager {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	m := &Manager{
		client:    client,
		cfg:       cfg,
		root:      root,
		userAgent: types.DefaultConfig().HTTP.UserAgent,
		log:       zerolog.Nop(),
		sem:       semaphore.NewWeighted(int64(cfg.Workers)),
		tasks:     make(map[string]*entry),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Submit schedules req and returns its future. A request for a paper that
// is already queued or running, within the year window, is coalesced onto
// the existing task.
func (m *Manager) Submit(ctx context.Context, req Request) *Future {
	id := req.Query.ID()

	m.mu.Lock()
	if e := m.pending(req.Query); e != nil {
		m.mu.Unlock()
		m.log.Debug().Str("paper_id", id).Str("coalesced_into", e.task.PaperID).Msg("coalesced duplicate download")
		return e.future
	}
	e := &entry{
		task: types.DownloadTask{
			PaperID:    id,
			Query:      req.Query,
			TargetPath: PDFPath(m.root, req.Query),
			State:      types.TaskQueued,
		},
		future: &Future{done: make(chan struct{})},
	}
	if len(req.Candidates) > 0 {
		e.task.Candidate = req.Candidates[0].Candidate
	}
	m.tasks[id] = e
	m.mu.Unlock()

	go m.run(ctx, e, req)
	return e.future
}

// pending returns the unfinished task for the paper q describes. m.mu must
// be held.
func (m *Manager) pending(q types.PaperQuery) *entry {
	if e, ok := m.tasks[q.ID()]; ok && e.task.State != types.TaskDone {
		return e
	}
	for _, e := range m.tasks {
		if e.task.State != types.TaskDone && e.task.Query.SameIdentity(q, m.window) {
			return e
		}
	}
	return nil
}

// Tasks returns a snapshot of all tasks, ordered by paper ID.
func (m *Manager) Tasks() []types.DownloadTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.DownloadTask, 0, len(m.tasks))
	for _, e := range m.tasks {
		out = append(out, e.task)
	}
	slices.SortFunc(out, func(a, b types.DownloadTask) int { return strings.Compare(a.PaperID, b.PaperID) })
	return out
}

func (m *Manager) update(e *entry, fn func(t *types.DownloadTask)) {
	m.mu.Lock()
	fn(&e.task)
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context, e *entry, req Request) {
	start := time.Now()
	out := types.Outcome{
		PaperID:   e.task.PaperID,
		Title:     req.Query.Title,
		StartedAt: start,
	}
	defer func() {
		out.FinishedAt = time.Now()
		out.Duration = out.FinishedAt.Sub(start)
		m.update(e, func(t *types.DownloadTask) { t.State = types.TaskDone })
		e.future.outcome = out
		close(e.future.done)
	}()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		out.State = types.StateCancelled
		out.Error = err.Error()
		return
	}
	defer m.sem.Release(1)

	m.update(e, func(t *types.DownloadTask) { t.State = types.TaskRunning })
	m.metrics.TrackInFlight(1)
	defer m.metrics.TrackInFlight(-1)

	m.download(ctx, e, req, &out)
	m.metrics.ObserveDownload(out.ChosenSource, out.State, out.FileSize, time.Since(start))
}

func (m *Manager) download(ctx context.Context, e *entry, req Request, out *types.Outcome) {
	log := observability.WithPaperContext(m.log, e.task.PaperID, req.Query.Title)
	pdfPath := e.task.TargetPath
	metaPath := SidecarPath(m.root, req.Query)

	if !m.overwrite {
		if path, info, ok := FindExisting(m.root, req.Query, m.window); ok {
			out.State = types.StateSkippedExisting
			out.FilePath = path
			out.FileSize = info.Size()
			log.Debug().Str("path", path).Msg("artifact exists, skipping")
			return
		}
	}

	for _, dir := range []string{filepath.Dir(pdfPath), filepath.Dir(metaPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fail(out, fsError("creating output directory", err))
			return
		}
	}

	candidates := req.Candidates
	if limit := 1 + m.cfg.FallbackCandidates; len(candidates) > limit {
		candidates = candidates[:limit]
	}
	if len(candidates) == 0 {
		fail(out, &DownloadError{Kind: types.KindValidation, Permanent: true, Err: errors.New("no candidate to download")})
		return
	}

	var lastErr error
	for i, sc := range candidates {
		c := sc.Candidate
		m.update(e, func(t *types.DownloadTask) { t.Candidate = c })
		out.ChosenSource = c.SourceID
		out.Locator = c.Locator
		out.Score = sc.Score
		if i > 0 {
			log.Info().Str("source", c.SourceID).Str("locator", c.Locator).Msg("trying fallback candidate")
		}

		n, err := m.attempt(ctx, e, c, pdfPath, out)
		if err == nil {
			side := newSidecar(req.Query, c, sc.Score, pdfPath, n, out.Attempts)
			if err := writeSidecar(side, metaPath); err != nil {
				os.Remove(pdfPath)
				fail(out, fsError("writing metadata", err))
				return
			}
			out.State = types.StateDownloaded
			out.FilePath = pdfPath
			out.FileSize = n
			out.ErrorKind = types.KindNone
			out.Error = ""
			log.Info().Str("source", c.SourceID).Int64("bytes", n).Int("attempts", out.Attempts).Msg("downloaded")
			return
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.State = types.StateCancelled
			out.Error = ctxErr.Error()
			return
		}
		lastErr = err
		var de *DownloadError
		if errors.As(err, &de) && de.Kind == types.KindFilesystem {
			break
		}
	}
	fail(out, lastErr)
	log.Warn().Err(lastErr).Int("attempts", out.Attempts).Msg("download failed")
}

// attempt transfers one candidate, retrying transient failures up to
// MaxAttempts times. A 403 reply is retried once with browser-like headers.
func (m *Manager) attempt(ctx context.Context, e *entry, c types.Candidate, dest string, out *types.Outcome) (int64, error) {
	altHeaders := false
	var err error
	for a := 1; a <= m.cfg.MaxAttempts; a++ {
		if a > 1 {
			if err := httputil.Sleep(ctx, httputil.Backoff(m.cfg.BackoffBase, m.cfg.BackoffMax, a-1)); err != nil {
				return 0, err
			}
		}
		if m.gate != nil {
			if err := m.gate.Acquire(ctx, ratelimit.DownloadKey(c.SourceID)); err != nil {
				return 0, err
			}
		}

		out.Attempts++
		m.update(e, func(t *types.DownloadTask) { t.AttemptCount++ })
		m.metrics.ObserveAttempt(c.SourceID)

		var n int64
		n, err = m.transfer(ctx, c.Locator, dest, altHeaders)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		out.Diagnostics = append(out.Diagnostics, fmt.Sprintf("%s attempt %d: %v", c.SourceID, a, err))

		var de *DownloadError
		if !errors.As(err, &de) {
			return 0, err
		}
		if de.Status == http.StatusForbidden {
			if altHeaders {
				return 0, err
			}
			altHeaders = true
			continue
		}
		if !de.Retryable() {
			return 0, err
		}
	}
	return 0, err
}

func fail(out *types.Outcome, err error) {
	out.State = types.StateDownloadFailed
	if err == nil {
		return
	}
	out.Error = err.Error()
	var de *DownloadError
	if errors.As(err, &de) {
		out.ErrorKind = de.Kind
	} else {
		out.ErrorKind = types.KindNetwork
	}
}
