// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match scores search candidates against a paper query and ranks
// them. Every function here is pure: the same inputs always produce the
// same result.
package match

import (
	"cmp"
	"slices"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Component weights of the overall score.
const (
	TitleWeight  = 0.60
	AuthorWeight = 0.25
	YearWeight   = 0.15
)

// neutral is the component score used when either side lacks the data.
const neutral = 0.5

// Matcher scores candidates with a fixed configuration.
type Matcher struct {
	Threshold  float64
	YearWindow int
}

// New returns a Matcher configured from cfg.
func New(cfg types.MatchConfig) Matcher {
	return Matcher{Threshold: cfg.Threshold, YearWindow: cfg.YearWindow}
}

// Breakdown holds the component scores behind an overall score.
type Breakdown struct {
	Title  float64 `json:"title" yaml:"title"`
	Author float64 `json:"author" yaml:"author"`
	Year   float64 `json:"year" yaml:"year"`
	Total  float64 `json:"total" yaml:"total"`
}

// Explain returns the weighted components of the score of c against q.
func (m Matcher) Explain(q types.PaperQuery, c types.Candidate) Breakdown {
	b := Breakdown{
		Title:  TitleSimilarity(q.Title, c.Title),
		Author: authorScore(q.Authors, c.Authors),
		Year:   YearProximity(q.Year, c.Year, m.YearWindow),
	}
	b.Total = clamp(TitleWeight*b.Title + AuthorWeight*b.Author + YearWeight*b.Year)
	return b
}

// Score returns the match score of c against q in [0,1].
func (m Matcher) Score(q types.PaperQuery, c types.Candidate) float64 {
	return m.Explain(q, c).Total
}

// Acceptable reports whether score clears the configured threshold.
func (m Matcher) Acceptable(score float64) bool {
	return score >= m.Threshold
}

func authorScore(query, cand []string) float64 {
	if len(query) == 0 || len(cand) == 0 {
		return neutral
	}
	return AuthorOverlap(query, cand)
}

// YearProximity is 1 within window years, then loses 0.5 per extra year.
// A missing year on either side scores neutral.
func YearProximity(qYear, cYear, window int) float64 {
	if qYear <= 0 || cYear <= 0 {
		return neutral
	}
	d := qYear - cYear
	if d < 0 {
		d = -d
	}
	if d <= window {
		return 1
	}
	return clamp(1 - 0.5*float64(d-window))
}

// Scored pairs a candidate with its score and its source's priority.
type Scored struct {
	Candidate types.Candidate `json:"candidate" yaml:"candidate"`
	Score     float64         `json:"score" yaml:"score"`
	Priority  int             `json:"priority" yaml:"priority"`
}

// Rank sorts scored candidates best first: higher score, then lower source
// priority, then higher source confidence, then earlier result position.
// The input slice is not modified.
func Rank(in []Scored) []Scored {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b Scored) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Candidate.Confidence, a.Candidate.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.Candidate.Rank, b.Candidate.Rank)
	})
	return out
}

func clamp(x float64) float64 {
	return max(0, min(1, x))
}
