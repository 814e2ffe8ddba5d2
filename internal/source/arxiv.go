// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv searches the arXiv Atom API by title and first author.
type Arxiv struct {
	Base
}

// ID returns the source identifier.
func (s *Arxiv) ID() string { return types.SourceArxiv }

// Search queries arXiv for q.
func (s *Arxiv) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	query := buildArxivQuery(q)
	if query == "" {
		return FailedResults(s.ID(), types.KindParse, fmt.Errorf("empty arXiv query"))
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{
		"search_query": {query},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	reqURL := arxivAPIBase + "?" + params.Encode()

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		req, err := s.newRequest(ctx, reqURL)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		body, err := s.get(s.ID(), req)
		if err != nil {
			return nil, err
		}

		var feed arxivFeed
		if err := xml.Unmarshal(body, &feed); err != nil {
			return nil, parseError(s.ID(), fmt.Errorf("parsing arXiv response: %w", err))
		}

		total := len(feed.Entries)
		cands := make([]types.Candidate, 0, total)
		for i, entry := range feed.Entries {
			c := types.Candidate{
				Title:      strings.Join(strings.Fields(entry.Title), " "),
				Locator:    arxivPDFLink(entry),
				Confidence: positionConfidence(i, total),
			}
			for _, a := range entry.Authors {
				c.Authors = append(c.Authors, strings.TrimSpace(a.Name))
			}
			if len(entry.Published) >= 4 {
				if y, err := strconv.Atoi(entry.Published[:4]); err == nil {
					c.Year = y
				}
			}
			c.RawPayload, _ = xml.Marshal(entry)
			cands = append(cands, c)
		}
		return cands, nil
	})
}

// buildArxivQuery searches title words and, when known, the first author's
// surname.
func buildArxivQuery(q types.PaperQuery) string {
	title := types.NormalizeTitle(q.Title)
	if title == "" {
		return ""
	}
	query := fmt.Sprintf(`ti:"%s"`, title)
	if s := q.FirstAuthorSurname(); s != "" {
		query += " AND au:" + s
	}
	return query
}

// arxivPDFLink prefers the feed's PDF link and falls back to rewriting the
// abstract URL.
func arxivPDFLink(e arxivEntry) string {
	for _, l := range e.Links {
		if l.Type == "application/pdf" || l.Title == "pdf" {
			return l.Href
		}
	}
	if idx := strings.Index(e.ID, "/abs/"); idx >= 0 {
		return e.ID[:idx] + "/pdf/" + e.ID[idx+len("/abs/"):]
	}
	return ""
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Published string        `xml:"published"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}
