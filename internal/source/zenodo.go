// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// zenodoSearchBase is the Zenodo records endpoint. Declared as a var so
// tests can substitute an httptest server.
var zenodoSearchBase = "https://zenodo.org/api/records"

// Zenodo searches open-access publication records on Zenodo and yields the
// first PDF file attached to each.
type Zenodo struct {
	Base
}

// ID returns the source identifier.
func (s *Zenodo) ID() string { return types.SourceZenodo }

// Search queries Zenodo for q.
func (s *Zenodo) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if maxResults <= 0 {
		maxResults = 10
	}
	query := "title:" + phrase(q.Title)
	if doi := q.EffectiveDOI(); doi != "" {
		query = "doi:" + phrase(doi)
	}
	reqURL := zenodoSearchBase + "?" + url.Values{
		"q":            {query},
		"size":         {strconv.Itoa(maxResults)},
		"type":         {"publication"},
		"access_right": {"open"},
		"sort":         {"bestmatch"},
	}.Encode()

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		var resp zenodoResponse
		if err := s.getJSON(ctx, s.ID(), reqURL, nil, &resp); err != nil {
			return nil, err
		}
		total := len(resp.Hits.Hits)
		cands := make([]types.Candidate, 0, total)
		for i, r := range resp.Hits.Hits {
			c := types.Candidate{
				Title:      r.Metadata.Title,
				Year:       leadingYear(r.Metadata.PublicationDate),
				Locator:    r.pdfURL(),
				Confidence: positionConfidence(i, total),
			}
			for _, a := range r.Metadata.Creators {
				if a.Name != "" {
					c.Authors = append(c.Authors, a.Name)
				}
			}
			c.RawPayload, _ = json.Marshal(r)
			cands = append(cands, c)
		}
		return cands, nil
	})
}

// Zenodo API JSON structures.
type zenodoResponse struct {
	Hits struct {
		Hits []zenodoRecord `json:"hits"`
	} `json:"hits"`
}

type zenodoRecord struct {
	ID       int `json:"id"`
	Metadata struct {
		Title           string `json:"title"`
		PublicationDate string `json:"publication_date"`
		DOI             string `json:"doi"`
		Creators        []struct {
			Name string `json:"name"`
		} `json:"creators"`
	} `json:"metadata"`
	Files []struct {
		Key   string `json:"key"`
		Links struct {
			Self string `json:"self"`
		} `json:"links"`
	} `json:"files"`
}

func (r zenodoRecord) pdfURL() string {
	for _, f := range r.Files {
		if strings.HasSuffix(strings.ToLower(f.Key), ".pdf") && f.Links.Self != "" {
			return f.Links.Self
		}
	}
	return ""
}
