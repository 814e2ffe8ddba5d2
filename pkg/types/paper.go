// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// PaperQuery is the normalized bibliographic description of one paper to
// locate. It is built once by the input reader and not modified afterwards.
type PaperQuery struct {
	// Title is the paper title. A query without a title is malformed.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names, surnames alone or full names.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, or 0 when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// DOI is an optional digital object identifier (e.g. "10.1000/xyz").
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// RawCitation is the citation text the query was parsed from, if any.
	RawCitation string `json:"raw_citation,omitempty" yaml:"raw_citation,omitempty"`
}

// Valid reports whether the query carries a non-empty title.
func (q PaperQuery) Valid() bool {
	return NormalizeTitle(q.Title) != ""
}

// Surnames returns the normalized surnames of the query authors, sorted.
func (q PaperQuery) Surnames() []string {
	var out []string
	for _, a := range q.Authors {
		if s := Surname(a); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}

// ID returns the identity key of the query: normalized title, sorted
// author surnames, and year, joined by "|". Two queries with the same ID
// describe the same paper.
func (q PaperQuery) ID() string {
	year := "-"
	if q.Year > 0 {
		year = strconv.Itoa(q.Year)
	}
	return NormalizeTitle(q.Title) + "|" + strings.Join(q.Surnames(), ",") + "|" + year
}

// SameIdentity reports whether q and other describe the same paper. Titles
// and surnames must match after normalization; years may differ by up to
// window, and a missing year on either side matches any year.
func (q PaperQuery) SameIdentity(other PaperQuery, window int) bool {
	if NormalizeTitle(q.Title) != NormalizeTitle(other.Title) {
		return false
	}
	if !slices.Equal(q.Surnames(), other.Surnames()) {
		return false
	}
	if q.Year == 0 || other.Year == 0 {
		return true
	}
	d := q.Year - other.Year
	if d < 0 {
		d = -d
	}
	return d <= window
}

// FirstAuthorSurname returns the normalized surname of the first listed
// author, or "" when the query has no authors.
func (q PaperQuery) FirstAuthorSurname() string {
	for _, a := range q.Authors {
		if s := Surname(a); s != "" {
			return s
		}
	}
	return ""
}

// FormattedAuthors renders the author list as "A", "A & B", or "A et al.".
func (q PaperQuery) FormattedAuthors() string {
	return formatAuthors(q.Authors)
}

// EffectiveDOI returns the query DOI, falling back to one found in the raw
// citation text.
func (q PaperQuery) EffectiveDOI() string {
	if q.DOI != "" {
		return q.DOI
	}
	return ExtractDOI(q.RawCitation)
}

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s"<>]+`)

// ExtractDOI returns the first DOI found in s, without trailing
// punctuation, or "" if there is none.
func ExtractDOI(s string) string {
	m := doiPattern.FindString(s)
	return strings.TrimRight(m, ".,;)]}")
}
