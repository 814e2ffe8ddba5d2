// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

var laserQuery = types.PaperQuery{
	Title:   "Pico- and femtosecond laser micromachining for surface texturing",
	Authors: []string{"Aizawa T.", "Inohara T."},
	Year:    2019,
}

func defaultMatcher() Matcher {
	return New(types.DefaultConfig().Match)
}

func TestScore_ExactMatch(t *testing.T) {
	c := types.Candidate{
		Title:   "Pico- and Femtosecond Laser Micromachining for Surface Texturing",
		Authors: []string{"Tatsuhiko Aizawa", "Tadahiro Inohara"},
		Year:    2019,
	}
	b := defaultMatcher().Explain(laserQuery, c)
	assert.InDelta(t, 1.0, b.Title, 1e-9)
	assert.InDelta(t, 0.9, b.Author, 1e-9)
	assert.InDelta(t, 1.0, b.Year, 1e-9)
	assert.InDelta(t, 0.975, b.Total, 1e-9)
}

func TestScore_Range(t *testing.T) {
	m := defaultMatcher()
	cands := []types.Candidate{
		{},
		{Title: "Completely unrelated topic", Authors: []string{"Nobody"}, Year: 1950},
		{Title: laserQuery.Title},
		{Title: laserQuery.Title, Authors: laserQuery.Authors, Year: laserQuery.Year},
	}
	for _, c := range cands {
		s := m.Score(laserQuery, c)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	assert.InDelta(t, 1.0, m.Score(laserQuery, cands[3]), 1e-9)
}

func TestScore_Deterministic(t *testing.T) {
	m := defaultMatcher()
	c := types.Candidate{Title: "Laser micromachining for texturing", Authors: []string{"T Aizawa"}, Year: 2020}
	first := m.Score(laserQuery, c)
	for range 10 {
		assert.Equal(t, first, m.Score(laserQuery, c))
	}
}

func TestScore_MissingDataIsNeutral(t *testing.T) {
	m := defaultMatcher()
	q := types.PaperQuery{Title: "Deep learning"}
	c := types.Candidate{Title: "Deep learning", Authors: []string{"LeCun"}, Year: 2015}
	b := m.Explain(q, c)
	assert.InDelta(t, neutral, b.Author, 1e-9)
	assert.InDelta(t, neutral, b.Year, 1e-9)
	assert.InDelta(t, 0.6+0.25*0.5+0.15*0.5, b.Total, 1e-9)
}

func TestAcceptable(t *testing.T) {
	m := defaultMatcher()
	assert.True(t, m.Acceptable(0.5))
	assert.True(t, m.Acceptable(0.8))
	assert.False(t, m.Acceptable(0.49))

	unrelated := types.Candidate{Title: "Protein folding dynamics", Authors: []string{"Smith"}, Year: 2001}
	assert.False(t, m.Acceptable(m.Score(laserQuery, unrelated)))
}

func TestYearProximity(t *testing.T) {
	assert.InDelta(t, 1.0, YearProximity(2019, 2019, 1), 1e-9)
	assert.InDelta(t, 1.0, YearProximity(2019, 2020, 1), 1e-9)
	assert.InDelta(t, 0.5, YearProximity(2019, 2021, 1), 1e-9)
	assert.InDelta(t, 0.0, YearProximity(2019, 2025, 1), 1e-9)
	assert.InDelta(t, neutral, YearProximity(0, 2019, 1), 1e-9)
	assert.InDelta(t, neutral, YearProximity(2019, 0, 1), 1e-9)
}

func TestRank_TieBreaking(t *testing.T) {
	in := []Scored{
		{Candidate: types.Candidate{SourceID: "c", Confidence: 0.9, Rank: 0}, Score: 0.7, Priority: 3},
		{Candidate: types.Candidate{SourceID: "b-low", Confidence: 0.2, Rank: 1}, Score: 0.7, Priority: 2},
		{Candidate: types.Candidate{SourceID: "b-high", Confidence: 0.8, Rank: 4}, Score: 0.7, Priority: 2},
		{Candidate: types.Candidate{SourceID: "b-high-early", Confidence: 0.8, Rank: 2}, Score: 0.7, Priority: 2},
		{Candidate: types.Candidate{SourceID: "best"}, Score: 0.95, Priority: 9},
	}
	got := Rank(in)
	require.Len(t, got, 5)
	var order []string
	for _, s := range got {
		order = append(order, s.Candidate.SourceID)
	}
	assert.Equal(t, []string{"best", "b-high-early", "b-high", "b-low", "c"}, order)
	assert.Equal(t, "c", in[0].Candidate.SourceID, "input not modified")
}
