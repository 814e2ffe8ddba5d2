// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs a paper query against sources in strict priority
// order, scores every candidate, and returns the acceptable ones ranked.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-fetcher/internal/match"
	"github.com/pdiddy/paper-fetcher/internal/observability"
	"github.com/pdiddy/paper-fetcher/internal/source"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Result is the outcome of searching for one paper.
type Result struct {
	// Ranked holds the acceptable candidates, best first.
	Ranked []match.Scored `json:"ranked" yaml:"ranked"`

	// Tried lists the sources invoked, in invocation order.
	Tried []string `json:"tried" yaml:"tried"`

	// Diagnostics records one line per failed source.
	Diagnostics []string `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Found reports whether at least one acceptable candidate was collected.
func (r Result) Found() bool { return len(r.Ranked) > 0 }

// Best returns the top-ranked candidate.
func (r Result) Best() (match.Scored, bool) {
	if len(r.Ranked) == 0 {
		return match.Scored{}, false
	}
	return r.Ranked[0], true
}

// Orchestrator searches sources for papers. It is safe for concurrent use
// by several papers at once; each Search call is sequential across sources.
type Orchestrator struct {
	sources        []source.Source
	priority       map[string]int
	maxResults     map[string]int
	matcher        match.Matcher
	maxCandidates  int
	highConfidence float64
	log            zerolog.Logger
	metrics        *observability.Metrics

	mu    sync.Mutex
	stats map[string]*types.SourceStats
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New returns an Orchestrator over sources, which must already be in
// priority order. Priorities and per-source result caps come from cfg.
func New(sources []source.Source, cfg types.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sources:        sources,
		priority:       make(map[string]int),
		maxResults:     make(map[string]int),
		matcher:        match.New(cfg.Match),
		maxCandidates:  cfg.Match.MaxCandidates,
		highConfidence: cfg.Match.HighConfidence,
		log:            zerolog.Nop(),
		stats:          make(map[string]*types.SourceStats),
	}
	for i, s := range sources {
		o.priority[s.ID()] = i
		if sc, ok := cfg.Source(s.ID()); ok {
			o.maxResults[s.ID()] = sc.MaxResults
		}
	}
	if o.maxCandidates <= 0 {
		o.maxCandidates = 1
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search tries each source in order until enough acceptable candidates are
// collected or one scores at or above the high-confidence cutoff. Source
// failures are recorded as diagnostics and the next source is tried.
// Candidates repeating an already collected locator are dropped.
func (o *Orchestrator) Search(ctx context.Context, q types.PaperQuery) Result {
	var res Result
	var accepted []match.Scored
	seen := make(map[string]bool)

	for _, s := range o.sources {
		if ctx.Err() != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("%s: %v", s.ID(), ctx.Err()))
			break
		}
		res.Tried = append(res.Tried, s.ID())
		log := observability.WithSourceContext(o.log, s.ID())

		start := time.Now()
		results := s.Search(ctx, q, o.maxResults[s.ID()])
		hits, done := 0, false
		for c := range results.All() {
			score := o.matcher.Score(q, c)
			log.Debug().Str("candidate", c.Title).Float64("score", score).Msg("scored candidate")
			if !o.matcher.Acceptable(score) || seen[c.Locator] {
				continue
			}
			seen[c.Locator] = true
			hits++
			accepted = append(accepted, match.Scored{Candidate: c, Score: score, Priority: o.priority[s.ID()]})
			if score >= o.highConfidence || len(accepted) >= o.maxCandidates {
				done = true
				break
			}
		}
		err := results.Err()
		o.record(s.ID(), hits, err, time.Since(start))

		if err != nil {
			res.Diagnostics = append(res.Diagnostics, describe(s.ID(), err))
			log.Warn().Err(err).Msg("source failed")
		} else {
			log.Debug().Int("accepted", hits).Msg("source searched")
		}
		if done {
			break
		}
	}

	res.Ranked = match.Rank(accepted)
	return res
}

func (o *Orchestrator) record(id string, hits int, err error, d time.Duration) {
	o.metrics.ObserveSearch(id, hits, err, d)

	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.stats[id]
	if !ok {
		st = &types.SourceStats{}
		o.stats[id] = st
	}
	st.Searches++
	st.Accepted += hits
	if err != nil {
		st.Errors++
	}
}

// Stats returns a copy of the per-source counters.
func (o *Orchestrator) Stats() map[string]types.SourceStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]types.SourceStats, len(o.stats))
	for k, v := range o.stats {
		out[k] = *v
	}
	return out
}

// Priority returns the position of source id in the fallback order.
func (o *Orchestrator) Priority(id string) int {
	return o.priority[id]
}

func describe(id string, err error) string {
	var se *source.SourceError
	if errors.As(err, &se) {
		return fmt.Sprintf("%s: %s: %v", id, se.Kind, se.Err)
	}
	return fmt.Sprintf("%s: %v", id, err)
}
