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

// NCBI E-utilities endpoints for PubMed Central. Declared as vars so tests
// can substitute an httptest server.
var (
	pmcSearchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pmcSummaryBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
	pmcArticleBase = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
)

// PMC searches PubMed Central through E-utilities. Every PMC record is open
// access, so each hit yields the article's PDF rendition.
type PMC struct {
	Base
	// APIKey raises the NCBI request quota when set.
	APIKey string
}

// ID returns the source identifier.
func (s *PMC) ID() string { return types.SourcePMC }

// Search looks q up by DOI when known and by title otherwise, then fetches
// summaries for the matching PMC ids.
func (s *PMC) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if maxResults <= 0 {
		maxResults = 10
	}
	term := phrase(q.Title) + "[Title]"
	if doi := q.EffectiveDOI(); doi != "" {
		term = doi + "[DOI]"
	} else if q.Year > 0 {
		term += fmt.Sprintf(" AND %d:%d[pdat]", q.Year-1, q.Year+1)
	}
	params := url.Values{
		"db":      {"pmc"},
		"term":    {term},
		"retmax":  {strconv.Itoa(maxResults)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	if s.APIKey != "" {
		params.Set("api_key", s.APIKey)
	}
	searchURL := pmcSearchBase + "?" + params.Encode()

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		var sr pmcSearchResponse
		if err := s.getJSON(ctx, s.ID(), searchURL, nil, &sr); err != nil {
			return nil, err
		}
		ids := sr.Result.IDList
		if len(ids) == 0 {
			return nil, nil
		}

		params := url.Values{
			"db":      {"pmc"},
			"id":      {strings.Join(ids, ",")},
			"retmode": {"json"},
		}
		if s.APIKey != "" {
			params.Set("api_key", s.APIKey)
		}
		var sum pmcSummaryResponse
		if err := s.getJSON(ctx, s.ID(), pmcSummaryBase+"?"+params.Encode(), nil, &sum); err != nil {
			return nil, err
		}

		cands := make([]types.Candidate, 0, len(ids))
		for i, id := range ids {
			raw, ok := sum.Result[id]
			if !ok {
				continue
			}
			var doc pmcSummary
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, parseError(s.ID(), fmt.Errorf("parsing PMC summary %s: %w", id, err))
			}
			c := types.Candidate{
				Title:      strings.TrimSuffix(doc.Title, "."),
				Year:       leadingYear(doc.PubDate),
				Locator:    pmcArticleBase + doc.pmcID(id) + "/pdf/",
				Confidence: positionConfidence(i, len(ids)),
				RawPayload: raw,
			}
			for _, a := range doc.Authors {
				if a.Name != "" {
					c.Authors = append(c.Authors, a.Name)
				}
			}
			cands = append(cands, c)
		}
		return cands, nil
	})
}

// E-utilities JSON structures.
type pmcSearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// pmcSummaryResponse keys summaries by uid next to a "uids" list.
type pmcSummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type pmcSummary struct {
	Title   string `json:"title"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

// pmcID returns the "PMC<n>" accession of the record.
func (d pmcSummary) pmcID(uid string) string {
	for _, a := range d.ArticleIDs {
		if a.IDType == "pmcid" && strings.HasPrefix(a.Value, "PMC") {
			return a.Value
		}
	}
	return "PMC" + uid
}
