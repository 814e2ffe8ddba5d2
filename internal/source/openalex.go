// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlex searches OpenAlex Works and yields open-access PDF locations.
type OpenAlex struct {
	Base
	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// ID returns the source identifier.
func (s *OpenAlex) ID() string { return types.SourceOpenAlex }

// Search queries OpenAlex for q. A DOI, when known, is looked up directly.
func (s *OpenAlex) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if maxResults <= 0 {
		maxResults = 10
	}
	maxResults = min(maxResults, 200)

	params := url.Values{
		"per_page": {strconv.Itoa(maxResults)},
	}
	if doi := q.EffectiveDOI(); doi != "" {
		params.Set("filter", "doi:"+strings.ToLower(doi))
	} else {
		params.Set("search", q.Title)
		if q.Year > 0 {
			params.Set("filter", fmt.Sprintf("publication_year:%d-%d", q.Year-1, q.Year+1))
		}
	}
	if s.Email != "" {
		params.Set("mailto", s.Email)
	}
	reqURL := openAlexSearchBase + "?" + params.Encode()

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		req, err := s.newRequest(ctx, reqURL)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		body, err := s.get(s.ID(), req)
		if err != nil {
			return nil, err
		}

		var resp openAlexResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, parseError(s.ID(), fmt.Errorf("parsing OpenAlex response: %w", err))
		}

		total := len(resp.Results)
		cands := make([]types.Candidate, 0, total)
		for i, w := range resp.Results {
			c := types.Candidate{
				Title:      w.Title,
				Year:       w.PublicationYear,
				Locator:    w.pdfURL(),
				Confidence: positionConfidence(i, total),
			}
			if c.Title == "" {
				c.Title = w.DisplayName
			}
			for _, a := range w.Authorships {
				if a.Author.DisplayName != "" {
					c.Authors = append(c.Authors, a.Author.DisplayName)
				}
			}
			c.RawPayload, _ = json.Marshal(w)
			cands = append(cands, c)
		}
		return cands, nil
	})
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string             `json:"id"`
	DOI             string             `json:"doi"`
	Title           string             `json:"title"`
	DisplayName     string             `json:"display_name"`
	PublicationYear int                `json:"publication_year"`
	Authorships     []openAlexAuthor   `json:"authorships"`
	BestOALocation  *openAlexLocation  `json:"best_oa_location"`
	PrimaryLocation *openAlexLocation  `json:"primary_location"`
	OpenAccess      openAlexOpenAccess `json:"open_access"`
}

type openAlexAuthor struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type openAlexLocation struct {
	PDFURL         string `json:"pdf_url"`
	LandingPageURL string `json:"landing_page_url"`
}

type openAlexOpenAccess struct {
	IsOA  bool   `json:"is_oa"`
	OAURL string `json:"oa_url"`
}

// pdfURL picks the best PDF location: best open-access location, then the
// primary location, then the generic open-access URL.
func (w openAlexWork) pdfURL() string {
	if w.BestOALocation != nil && w.BestOALocation.PDFURL != "" {
		return w.BestOALocation.PDFURL
	}
	if w.PrimaryLocation != nil && w.PrimaryLocation.PDFURL != "" {
		return w.PrimaryLocation.PDFURL
	}
	if w.OpenAccess.IsOA {
		return w.OpenAccess.OAURL
	}
	return ""
}
