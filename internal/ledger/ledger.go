// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records the terminal outcome of every paper in a run and
// hands the finished report to persisters (a YAML report file and a SQLite
// run database).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// ErrAlreadyRecorded is returned when a paper already has an outcome.
var ErrAlreadyRecorded = errors.New("outcome already recorded")

// Counts tallies outcomes by state.
type Counts struct {
	Searched        int `json:"searched" yaml:"searched"`
	Downloaded      int `json:"downloaded" yaml:"downloaded"`
	SearchFailed    int `json:"search_failed" yaml:"search_failed"`
	DownloadFailed  int `json:"download_failed" yaml:"download_failed"`
	SkippedExisting int `json:"skipped_existing" yaml:"skipped_existing"`
	Malformed       int `json:"malformed" yaml:"malformed"`
	Cancelled       int `json:"cancelled" yaml:"cancelled"`
}

func (c *Counts) add(s types.OutcomeState) {
	switch s {
	case types.StateSearched:
		c.Searched++
	case types.StateDownloaded:
		c.Downloaded++
	case types.StateSearchFailed:
		c.SearchFailed++
	case types.StateDownloadFailed:
		c.DownloadFailed++
	case types.StateSkippedExisting:
		c.SkippedExisting++
	case types.StateMalformedQuery:
		c.Malformed++
	case types.StateCancelled:
		c.Cancelled++
	}
}

// Total returns the number of outcomes counted.
func (c Counts) Total() int {
	return c.Searched + c.Downloaded + c.SearchFailed + c.DownloadFailed +
		c.SkippedExisting + c.Malformed + c.Cancelled
}

// Failures returns the number of outcomes in a failed state.
func (c Counts) Failures() int {
	return c.SearchFailed + c.DownloadFailed + c.Malformed + c.Cancelled
}

// Report is a snapshot of the ledger.
type Report struct {
	RunID         string                        `json:"run_id" yaml:"run_id"`
	StartedAt     time.Time                     `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time                     `json:"finished_at" yaml:"finished_at"`
	TotalDuration time.Duration                 `json:"total_duration" yaml:"total_duration"`
	Counts        Counts                        `json:"counts" yaml:"counts"`
	Sources       map[string]types.SourceStats `json:"sources,omitempty" yaml:"sources,omitempty"`
	Outcomes      []types.Outcome               `json:"outcomes" yaml:"outcomes"`
}

// HasFailures reports whether any paper ended in a failed state.
func (r Report) HasFailures() bool {
	return r.Counts.Failures() > 0
}

// Persister stores a finished report.
type Persister interface {
	Persist(ctx context.Context, r Report) error
}

// Ledger is the append-only outcome table of one run. It is safe for
// concurrent use.
type Ledger struct {
	runID   string
	started time.Time

	mu       sync.Mutex
	index    map[string]int
	outcomes []types.Outcome
	counts   Counts
	sources  map[string]types.SourceStats
}

// New returns an empty ledger with a fresh run ID.
func New() *Ledger {
	return &Ledger{
		runID:   uuid.NewString(),
		started: time.Now(),
		index:   make(map[string]int),
	}
}

// RunID returns the run identifier.
func (l *Ledger) RunID() string { return l.runID }

// Record appends o. A second outcome for the same paper ID is rejected.
func (l *Ledger) Record(o types.Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[o.PaperID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRecorded, o.PaperID)
	}
	l.index[o.PaperID] = len(l.outcomes)
	l.outcomes = append(l.outcomes, o)
	l.counts.add(o.State)
	return nil
}

// Get returns the outcome recorded for paperID.
func (l *Ledger) Get(paperID string) (types.Outcome, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[paperID]
	if !ok {
		return types.Outcome{}, false
	}
	return l.outcomes[i], true
}

// Len returns the number of recorded outcomes.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.outcomes)
}

// SetSourceStats attaches per-source counters to the report.
func (l *Ledger) SetSourceStats(stats map[string]types.SourceStats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources = maps.Clone(stats)
}

// Snapshot returns the outcomes in completion order with aggregates.
func (l *Ledger) Snapshot() Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	return Report{
		RunID:         l.runID,
		StartedAt:     l.started,
		FinishedAt:    now,
		TotalDuration: now.Sub(l.started),
		Counts:        l.counts,
		Sources:       maps.Clone(l.sources),
		Outcomes:      append([]types.Outcome(nil), l.outcomes...),
	}
}

// Finalize snapshots the ledger and hands the report to every persister.
// All persisters run even when one fails; their errors are joined.
func (l *Ledger) Finalize(ctx context.Context, persisters ...Persister) (Report, error) {
	r := l.Snapshot()
	var errs []error
	for _, p := range persisters {
		if err := p.Persist(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return r, errors.Join(errs...)
}
