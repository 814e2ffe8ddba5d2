// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// halSearchBase is the HAL Solr search endpoint. Declared as a var so tests
// can substitute an httptest server.
var halSearchBase = "https://api.archives-ouvertes.fr/search/"

const halFields = "halId_s,title_s,authFullName_s,producedDateY_i,doiId_s,fileMain_s"

// HAL searches the French open archive HAL and yields the main file of
// deposits that carry one.
type HAL struct {
	Base
}

// ID returns the source identifier.
func (s *HAL) ID() string { return types.SourceHAL }

// Search queries HAL for q.
func (s *HAL) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{
		"q":    {"title_t:" + phrase(q.Title)},
		"rows": {strconv.Itoa(maxResults)},
		"wt":   {"json"},
		"fl":   {halFields},
	}
	if doi := q.EffectiveDOI(); doi != "" {
		params.Set("q", "doiId_s:"+phrase(doi))
	} else if q.Year > 0 {
		params.Set("fq", fmt.Sprintf("producedDateY_i:[%d TO %d]", q.Year-1, q.Year+1))
	}
	reqURL := halSearchBase + "?" + params.Encode()

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		var resp halResponse
		if err := s.getJSON(ctx, s.ID(), reqURL, nil, &resp); err != nil {
			return nil, err
		}
		docs := resp.Response.Docs
		cands := make([]types.Candidate, 0, len(docs))
		for i, d := range docs {
			c := types.Candidate{
				Year:       d.Year,
				Authors:    d.Authors,
				Locator:    d.FileMain,
				Confidence: positionConfidence(i, len(docs)),
			}
			if len(d.Titles) > 0 {
				c.Title = d.Titles[0]
			}
			c.RawPayload, _ = json.Marshal(d)
			cands = append(cands, c)
		}
		return cands, nil
	})
}

// HAL API JSON structures.
type halResponse struct {
	Response struct {
		Docs []halDoc `json:"docs"`
	} `json:"response"`
}

type halDoc struct {
	HalID    string   `json:"halId_s"`
	Titles   []string `json:"title_s"`
	Authors  []string `json:"authFullName_s"`
	Year     int      `json:"producedDateY_i"`
	DOI      string   `json:"doiId_s"`
	FileMain string   `json:"fileMain_s"`
}
