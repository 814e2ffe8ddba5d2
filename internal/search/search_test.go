// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/internal/source"
	"github.com/pdiddy/paper-fetcher/internal/source/sourcetest"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

var laserQuery = types.PaperQuery{
	Title:   "Pico- and femtosecond laser micromachining for surface texturing",
	Authors: []string{"Aizawa T.", "Inohara T."},
	Year:    2019,
}

// goodMatch scores 0.975 against laserQuery.
func goodMatch(locator string) types.Candidate {
	return types.Candidate{
		Title:   "Pico- and femtosecond laser micromachining for surface texturing",
		Authors: []string{"Tatsuhiko Aizawa", "Tadahiro Inohara"},
		Year:    2019,
		Locator: locator,
	}
}

// fairMatch scores between the threshold and the high-confidence cutoff.
func fairMatch(locator string) types.Candidate {
	return types.Candidate{
		Title:   "Femtosecond laser micromachining for surface texturing",
		Authors: []string{"Someone Else"},
		Year:    2019,
		Locator: locator,
	}
}

func testConfig(maxCandidates int) types.Config {
	cfg := types.DefaultConfig()
	cfg.Match.MaxCandidates = maxCandidates
	return cfg
}

func sources(fakes ...*sourcetest.Fake) []source.Source {
	out := make([]source.Source, len(fakes))
	for i, f := range fakes {
		out[i] = f
	}
	return out
}

func TestSearch_FallbackOrder(t *testing.T) {
	log := &sourcetest.CallLog{}
	a := &sourcetest.Fake{Name: "a", Log: log}
	b := &sourcetest.Fake{Name: "b", Log: log, Candidates: []types.Candidate{fairMatch("http://b/1.pdf")}}
	c := &sourcetest.Fake{Name: "c", Log: log, Candidates: []types.Candidate{goodMatch("http://c/1.pdf")}}

	o := New(sources(a, b, c), testConfig(1))
	res := o.Search(context.Background(), laserQuery)

	assert.Equal(t, []string{"a", "b"}, log.Calls())
	assert.Equal(t, 0, c.Calls())
	assert.Equal(t, []string{"a", "b"}, res.Tried)
	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, "b", best.Candidate.SourceID)
}

func TestSearch_HighConfidenceStopsEarly(t *testing.T) {
	a := &sourcetest.Fake{Name: "a", Candidates: []types.Candidate{
		goodMatch("http://a/1.pdf"),
		fairMatch("http://a/2.pdf"),
	}}
	b := &sourcetest.Fake{Name: "b", Candidates: []types.Candidate{fairMatch("http://b/1.pdf")}}

	o := New(sources(a, b), testConfig(5))
	res := o.Search(context.Background(), laserQuery)

	require.Len(t, res.Ranked, 1)
	assert.Equal(t, "http://a/1.pdf", res.Ranked[0].Candidate.Locator)
	assert.Equal(t, 0, b.Calls())
}

func TestSearch_CollectsUpToMaxCandidates(t *testing.T) {
	a := &sourcetest.Fake{Name: "a", Candidates: []types.Candidate{fairMatch("http://a/1.pdf")}}
	b := &sourcetest.Fake{Name: "b", Candidates: []types.Candidate{
		fairMatch("http://b/1.pdf"),
		fairMatch("http://a/1.pdf"),
	}}
	c := &sourcetest.Fake{Name: "c", Candidates: []types.Candidate{fairMatch("http://c/1.pdf")}}

	o := New(sources(a, b, c), testConfig(3))
	res := o.Search(context.Background(), laserQuery)

	require.Len(t, res.Ranked, 3, "duplicate locator from b is merged")
	assert.Equal(t, "a", res.Ranked[0].Candidate.SourceID, "equal scores rank by source priority")
	assert.Equal(t, "b", res.Ranked[1].Candidate.SourceID)
	assert.Equal(t, "c", res.Ranked[2].Candidate.SourceID)
}

func TestSearch_SourceErrorsBecomeDiagnostics(t *testing.T) {
	a := &sourcetest.Fake{Name: "a", Err: &source.SourceError{Source: "a", Kind: types.KindRateLimited, Err: source.ErrRateLimited}}
	b := &sourcetest.Fake{Name: "b", Err: errors.New("boom")}
	c := &sourcetest.Fake{Name: "c", Candidates: []types.Candidate{goodMatch("http://c/1.pdf")}}

	o := New(sources(a, b, c), testConfig(1))
	res := o.Search(context.Background(), laserQuery)

	require.True(t, res.Found())
	require.Len(t, res.Diagnostics, 2)
	assert.Contains(t, res.Diagnostics[0], "a: rate_limited")
	assert.Contains(t, res.Diagnostics[1], "b: network")

	stats := o.Stats()
	assert.Equal(t, types.SourceStats{Searches: 1, Errors: 1}, stats["a"])
	assert.Equal(t, types.SourceStats{Searches: 1, Accepted: 1}, stats["c"])
}

func TestSearch_NoAcceptableCandidates(t *testing.T) {
	a := &sourcetest.Fake{Name: "a", Candidates: []types.Candidate{
		{Title: "Protein folding", Authors: []string{"Smith"}, Year: 1990, Locator: "http://a/x.pdf"},
	}}
	o := New(sources(a), testConfig(1))
	res := o.Search(context.Background(), laserQuery)
	assert.False(t, res.Found())
	_, ok := res.Best()
	assert.False(t, ok)
}

func TestSearch_Cancelled(t *testing.T) {
	a := &sourcetest.Fake{Name: "a"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := New(sources(a), testConfig(1)).Search(ctx, laserQuery)
	assert.Equal(t, 0, a.Calls())
	assert.False(t, res.Found())
	require.Len(t, res.Diagnostics, 1)
}

// Two sources: the first returns nothing, the second one acceptable
// candidate; the candidate is chosen from the second source.
func TestSearch_SecondSourceChosen(t *testing.T) {
	first := &sourcetest.Fake{Name: "scholar"}
	second := &sourcetest.Fake{Name: "mirror", Candidates: []types.Candidate{fairMatch("http://m/p.pdf")}}

	res := New(sources(first, second), testConfig(1)).Search(context.Background(), laserQuery)
	best, ok := res.Best()
	require.True(t, ok)
	assert.Equal(t, "mirror", best.Candidate.SourceID)
	assert.GreaterOrEqual(t, best.Score, 0.5)
}

func TestFormatTable(t *testing.T) {
	a := &sourcetest.Fake{Name: "a", Candidates: []types.Candidate{goodMatch("http://a/1.pdf")}}
	res := New(sources(a), testConfig(1)).Search(context.Background(), laserQuery)

	var buf bytes.Buffer
	FormatTable([]PaperResult{
		{Query: laserQuery, Result: res},
		{Query: types.PaperQuery{Title: "Missing"}, Result: Result{Diagnostics: []string{"a: network: HTTP 500"}}},
	}, &buf)
	out := buf.String()
	assert.Contains(t, out, "Tatsuhiko A... et al.")
	assert.Contains(t, out, "  0.9")
	assert.Contains(t, out, "no acceptable candidates")
	assert.Contains(t, out, "warning: a: network: HTTP 500")
	assert.Contains(t, out, "1 of 2 papers")

	buf.Reset()
	FormatTable(nil, &buf)
	assert.Contains(t, buf.String(), "No papers searched.")
}

func TestFormatJSON(t *testing.T) {
	a := &sourcetest.Fake{Name: "a", Candidates: []types.Candidate{goodMatch("http://a/1.pdf")}}
	res := New(sources(a), testConfig(1)).Search(context.Background(), laserQuery)

	var buf bytes.Buffer
	require.NoError(t, FormatJSON([]PaperResult{{Query: laserQuery, Result: res}}, &buf))

	var decoded []PaperResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "http://a/1.pdf", decoded[0].Result.Ranked[0].Candidate.Locator)
}
