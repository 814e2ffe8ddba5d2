// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// coreSearchBase is the CORE v3 works search endpoint. Declared as a var so
// tests can substitute an httptest server.
var coreSearchBase = "https://api.core.ac.uk/v3/search/works"

// CORE searches the CORE aggregator of repository full texts.
type CORE struct {
	Base
	// APIKey is sent as a bearer token; CORE throttles anonymous use hard.
	APIKey string
}

// ID returns the source identifier.
func (s *CORE) ID() string { return types.SourceCORE }

// Search queries CORE for q.
func (s *CORE) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if maxResults <= 0 {
		maxResults = 10
	}
	query := "title:" + phrase(q.Title)
	if doi := q.EffectiveDOI(); doi != "" {
		query = "doi:" + phrase(doi)
	}
	reqURL := coreSearchBase + "?" + url.Values{
		"q":     {query},
		"limit": {strconv.Itoa(maxResults)},
	}.Encode()

	var header http.Header
	if s.APIKey != "" {
		header = http.Header{"Authorization": {"Bearer " + s.APIKey}}
	}

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		var resp coreResponse
		if err := s.getJSON(ctx, s.ID(), reqURL, header, &resp); err != nil {
			return nil, err
		}
		total := len(resp.Results)
		cands := make([]types.Candidate, 0, total)
		for i, w := range resp.Results {
			c := types.Candidate{
				Title:      w.Title,
				Year:       w.YearPublished,
				Locator:    w.DownloadURL,
				Confidence: positionConfidence(i, total),
			}
			if c.Locator == "" && len(w.SourceFulltextURLs) > 0 {
				c.Locator = w.SourceFulltextURLs[0]
			}
			for _, a := range w.Authors {
				if a.Name != "" {
					c.Authors = append(c.Authors, a.Name)
				}
			}
			c.RawPayload, _ = json.Marshal(w)
			cands = append(cands, c)
		}
		return cands, nil
	})
}

// CORE API JSON structures.
type coreResponse struct {
	Results []coreWork `json:"results"`
}

type coreWork struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	DOI           string `json:"doi"`
	YearPublished int    `json:"yearPublished"`
	Authors       []struct {
		Name string `json:"name"`
	} `json:"authors"`
	DownloadURL        string   `json:"downloadUrl"`
	SourceFulltextURLs []string `json:"sourceFulltextUrls"`
}
