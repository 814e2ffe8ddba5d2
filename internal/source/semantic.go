// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pdiddy/paper-fetcher/internal/httputil"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,authors,year,externalIds,openAccessPdf"

// SemanticScholar searches the Semantic Scholar Graph API and yields
// open-access PDF links.
type SemanticScholar struct {
	Base
	APIKey string
}

// ID returns the source identifier.
func (s *SemanticScholar) ID() string { return types.SourceSemanticScholar }

// Search queries Semantic Scholar for q. HTTP 429 replies are retried with
// backoff before being reported as rate limiting.
func (s *SemanticScholar) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{
		"query":  {q.Title},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}
	if q.Year > 0 {
		params.Set("year", fmt.Sprintf("%d-%d", q.Year-1, q.Year+1))
	}
	reqURL := semanticAPIBase + "?" + params.Encode()

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		req, err := s.newRequest(ctx, reqURL)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if s.APIKey != "" {
			req.Header.Set("x-api-key", s.APIKey)
		}

		resp, err := httputil.DoWithRetry(ctx, s.Client, req, 2)
		if err != nil {
			return nil, &SourceError{Source: s.ID(), Kind: types.KindNetwork, Err: err}
		}
		defer resp.Body.Close()
		body, err := readOK(s.ID(), resp)
		if err != nil {
			return nil, err
		}

		var sr semanticResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return nil, parseError(s.ID(), fmt.Errorf("parsing Semantic Scholar response: %w", err))
		}

		total := len(sr.Data)
		cands := make([]types.Candidate, 0, total)
		for i, p := range sr.Data {
			c := types.Candidate{
				Title:      p.Title,
				Year:       p.Year,
				Confidence: positionConfidence(i, total),
			}
			if p.OpenAccessPDF != nil {
				c.Locator = p.OpenAccessPDF.URL
			}
			for _, a := range p.Authors {
				c.Authors = append(c.Authors, a.Name)
			}
			c.RawPayload, _ = json.Marshal(p)
			cands = append(cands, c)
		}
		return cands, nil
	})
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Year          int                 `json:"year"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
	OpenAccessPDF *semanticPDF        `json:"openAccessPdf"`
}

type semanticAuthor struct {
	Name string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}

type semanticPDF struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}
