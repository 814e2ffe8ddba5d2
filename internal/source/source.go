// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source adapts external paper search services to one interface.
// Each adapter turns a PaperQuery into a lazy, finite sequence of
// Candidates and reports failures as a classified SourceError.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Source searches one external service for a paper.
type Source interface {
	// ID returns the source identifier used in configuration and outcomes.
	ID() string

	// Search returns the candidates for q. No request is made until the
	// returned Results are iterated.
	Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results
}

// Gate is the rate limiter consulted before every search request.
type Gate interface {
	Acquire(ctx context.Context, key string) error
}

// SourceError is the classified failure of one source search.
type SourceError struct {
	Source string
	Kind   types.ErrorKind
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ErrorKind returns the failure classification.
func (e *SourceError) ErrorKind() types.ErrorKind { return e.Kind }

// ErrRateLimited is wrapped by SourceErrors of kind rate_limited.
var ErrRateLimited = errors.New("rate limited by source")

// FetchFunc performs the source request and returns the candidates in
// source order. Errors that are not SourceErrors are reported as network
// failures.
type FetchFunc func(ctx context.Context) ([]types.Candidate, error)

// Results is the lazily evaluated candidate sequence of one search. It can
// be iterated once; later iterations yield nothing.
type Results struct {
	ctx        context.Context
	sourceID   string
	gate       Gate
	maxResults int
	fetch      FetchFunc

	mu       sync.Mutex
	consumed bool
	err      error
}

// NewResults wraps fetch in a lazy sequence. The gate is consulted with
// sourceID before fetch runs; a nil gate disables throttling.
func NewResults(ctx context.Context, sourceID string, gate Gate, maxResults int, fetch FetchFunc) *Results {
	return &Results{
		ctx:        ctx,
		sourceID:   sourceID,
		gate:       gate,
		maxResults: maxResults,
		fetch:      fetch,
	}
}

// FailedResults returns Results that yield nothing and report err with kind.
func FailedResults(sourceID string, kind types.ErrorKind, err error) *Results {
	r := &Results{sourceID: sourceID, consumed: true}
	r.err = &SourceError{Source: sourceID, Kind: kind, Err: err}
	return r
}

// All returns the candidate sequence. Candidates without a locator are
// skipped; at most maxResults candidates are yielded.
func (r *Results) All() iter.Seq[types.Candidate] {
	return func(yield func(types.Candidate) bool) {
		r.mu.Lock()
		if r.consumed {
			r.mu.Unlock()
			return
		}
		r.consumed = true
		r.mu.Unlock()

		cands, err := r.run()
		if err != nil {
			r.setErr(err)
		}
		n := 0
		for i, c := range cands {
			if r.maxResults > 0 && n >= r.maxResults {
				return
			}
			if c.Locator == "" {
				continue
			}
			c.SourceID = r.sourceID
			c.Rank = i
			n++
			if !yield(c) {
				return
			}
		}
	}
}

// Err returns the failure observed while iterating, or nil.
func (r *Results) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Results) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Results) run() ([]types.Candidate, error) {
	if r.gate != nil {
		if err := r.gate.Acquire(r.ctx, r.sourceID); err != nil {
			return nil, &SourceError{Source: r.sourceID, Kind: types.KindNetwork, Err: err}
		}
	}
	cands, err := r.fetch(r.ctx)
	if err != nil {
		var se *SourceError
		if errors.As(err, &se) {
			return cands, err
		}
		return cands, &SourceError{Source: r.sourceID, Kind: types.KindNetwork, Err: err}
	}
	return cands, nil
}

// Collect drains r into a slice.
func Collect(r *Results) []types.Candidate {
	var out []types.Candidate
	for c := range r.All() {
		out = append(out, c)
	}
	return out
}

// Base carries what every HTTP-backed adapter needs.
type Base struct {
	Client    *http.Client
	Gate      Gate
	UserAgent string
}

func (b Base) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}
	return req, nil
}

// get issues req and returns the response body of a 200 reply. Non-200
// replies become classified SourceErrors.
func (b Base) get(sourceID string, req *http.Request) ([]byte, error) {
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, &SourceError{Source: sourceID, Kind: types.KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	return readOK(sourceID, resp)
}

// getJSON fetches reqURL with the extra header values and decodes the
// reply into v.
func (b Base) getJSON(ctx context.Context, sourceID, reqURL string, header http.Header, v any) error {
	req, err := b.newRequest(ctx, reqURL)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	body, err := b.get(sourceID, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return parseError(sourceID, fmt.Errorf("parsing %s response: %w", sourceID, err))
	}
	return nil
}

func readOK(sourceID string, resp *http.Response) ([]byte, error) {
	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		return nil, &SourceError{Source: sourceID, Kind: types.KindRateLimited,
			Err: fmt.Errorf("%w: HTTP %d", ErrRateLimited, resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &SourceError{Source: sourceID, Kind: types.KindNetwork,
			Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &SourceError{Source: sourceID, Kind: types.KindNetwork, Err: err}
	}
	return body, nil
}

const maxPageBytes = 10 << 20

func parseError(sourceID string, err error) error {
	return &SourceError{Source: sourceID, Kind: types.KindParse, Err: err}
}

// positionConfidence maps a zero-based result position to a relevance
// signal decaying from 1.0 to 0.1.
func positionConfidence(i, total int) float64 {
	if total <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(total-1)*0.9
}

// phrase quotes s for fielded search syntaxes, dropping inner quotes.
func phrase(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, " ") + `"`
}

// leadingYear returns the year a date string such as "2019-03-01" or
// "2019 Mar 1" starts with, or 0.
func leadingYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}
