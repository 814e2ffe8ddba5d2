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

// doajSearchBase is the DOAJ article search endpoint; the query is the last
// path segment. Declared as a var so tests can substitute an httptest
// server.
var doajSearchBase = "https://doaj.org/api/search/articles/"

// DOAJ searches the Directory of Open Access Journals and yields the
// full-text links of matching articles.
type DOAJ struct {
	Base
}

// ID returns the source identifier.
func (s *DOAJ) ID() string { return types.SourceDOAJ }

// Search queries DOAJ for q.
func (s *DOAJ) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if maxResults <= 0 {
		maxResults = 10
	}
	query := "bibjson.title:" + phrase(q.Title)
	if doi := q.EffectiveDOI(); doi != "" {
		query = "doi:" + phrase(doi)
	}
	reqURL := doajSearchBase + url.PathEscape(query) + "?" + url.Values{
		"pageSize": {strconv.Itoa(min(maxResults, 100))},
	}.Encode()

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		var resp doajResponse
		if err := s.getJSON(ctx, s.ID(), reqURL, nil, &resp); err != nil {
			return nil, err
		}
		total := len(resp.Results)
		cands := make([]types.Candidate, 0, total)
		for i, r := range resp.Results {
			b := r.Bibjson
			c := types.Candidate{
				Title:      b.Title,
				Year:       leadingYear(b.Year),
				Locator:    b.fulltext(),
				Confidence: positionConfidence(i, total),
			}
			for _, a := range b.Author {
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

// DOAJ API JSON structures.
type doajResponse struct {
	Results []doajArticle `json:"results"`
}

type doajArticle struct {
	ID      string      `json:"id"`
	Bibjson doajBibjson `json:"bibjson"`
}

type doajBibjson struct {
	Title  string `json:"title"`
	Year   string `json:"year"`
	Author []struct {
		Name string `json:"name"`
	} `json:"author"`
	Link []struct {
		Type        string `json:"type"`
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"link"`
}

// fulltext prefers a link declared as PDF over any other full-text link.
func (b doajBibjson) fulltext() string {
	var first string
	for _, l := range b.Link {
		if l.Type != "fulltext" || l.URL == "" {
			continue
		}
		if strings.EqualFold(l.ContentType, "pdf") {
			return l.URL
		}
		if first == "" {
			first = l.URL
		}
	}
	return first
}
