// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-fetcher engine:
// the paper query, search candidates, download tasks, per-paper outcomes,
// and engine configuration.
package types

// Candidate is one search result returned by a source for a paper query.
// Candidates are values; nothing downstream of the source mutates them.
type Candidate struct {
	// SourceID names the source that produced the candidate (e.g. "arxiv").
	SourceID string `json:"source_id" yaml:"source_id"`

	// Title is the title as reported by the source.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in source order.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, or 0 when the source did not report one.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Locator is the URL expected to serve the PDF.
	Locator string `json:"locator" yaml:"locator"`

	// Confidence is the source's own relevance signal in [0,1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// Rank is the zero-based position of the candidate within its source's
	// result sequence.
	Rank int `json:"rank" yaml:"rank"`

	// RawPayload keeps the source-specific record for diagnostics.
	RawPayload []byte `json:"-" yaml:"-"`
}

// FormattedAuthors renders the author list the way citations do:
// "A", "A & B", or "A et al.".
func (c Candidate) FormattedAuthors() string {
	return formatAuthors(c.Authors)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return authors[0]
	case 2:
		return authors[0] + " & " + authors[1]
	default:
		return authors[0] + " et al."
	}
}

// SourceStats accumulates per-source search counters across a run.
type SourceStats struct {
	Searches int `json:"searches" yaml:"searches"`
	Accepted int `json:"accepted" yaml:"accepted"`
	Errors   int `json:"errors" yaml:"errors"`
}
