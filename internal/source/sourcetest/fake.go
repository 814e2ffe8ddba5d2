// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sourcetest provides an in-memory Source for tests.
package sourcetest

import (
	"context"
	"sync"

	"github.com/pdiddy/paper-fetcher/internal/source"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// CallLog records the order in which fake sources were queried.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

// Calls returns the source IDs in query order.
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *CallLog) add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, id)
}

// Fake is a Source returning fixed candidates or a fixed error. Queries
// are counted when the results are iterated.
type Fake struct {
	Name       string
	Candidates []types.Candidate
	Err        error
	Log        *CallLog

	// Respond, when set, overrides Candidates and Err per query.
	Respond func(q types.PaperQuery) ([]types.Candidate, error)

	mu      sync.Mutex
	queries []types.PaperQuery
}

// ID returns the fake's name.
func (f *Fake) ID() string { return f.Name }

// Search returns lazy results over the configured response.
func (f *Fake) Search(ctx context.Context, q types.PaperQuery, maxResults int) *source.Results {
	return source.NewResults(ctx, f.Name, nil, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		f.mu.Lock()
		f.queries = append(f.queries, q)
		f.mu.Unlock()
		if f.Log != nil {
			f.Log.add(f.Name)
		}
		if f.Respond != nil {
			return f.Respond(q)
		}
		return f.Candidates, f.Err
	})
}

// Calls returns how many queries reached the fake.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// Queries returns the queries that reached the fake.
func (f *Fake) Queries() []types.PaperQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.PaperQuery(nil), f.queries...)
}
