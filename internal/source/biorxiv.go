// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// bioRxiv API and content hosts. Declared as vars so tests can substitute
// an httptest server.
var (
	bioRxivAPIBase = "https://api.biorxiv.org/details/"
	bioRxivContent = map[string]string{
		"biorxiv": "https://www.biorxiv.org/content/",
		"medrxiv": "https://www.medrxiv.org/content/",
	}
)

// bioRxivPrefix is the DOI prefix shared by bioRxiv and medRxiv preprints.
const bioRxivPrefix = "10.1101/"

// BioRxiv resolves bioRxiv and medRxiv preprints by DOI. The public API has
// no keyword search, so queries without a 10.1101 DOI yield nothing and make
// no request.
type BioRxiv struct {
	Base
}

// ID returns the source identifier.
func (s *BioRxiv) ID() string { return types.SourceBioRxiv }

// Search looks up the latest version of the preprint named by q's DOI on
// bioRxiv, then medRxiv.
func (s *BioRxiv) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	doi := strings.ToLower(q.EffectiveDOI())
	if !strings.HasPrefix(doi, bioRxivPrefix) {
		return NewResults(ctx, s.ID(), nil, maxResults, func(context.Context) ([]types.Candidate, error) {
			return nil, nil
		})
	}

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		for _, server := range []string{"biorxiv", "medrxiv"} {
			var resp bioRxivResponse
			if err := s.getJSON(ctx, s.ID(), bioRxivAPIBase+server+"/"+doi, nil, &resp); err != nil {
				return nil, err
			}
			if len(resp.Collection) == 0 {
				continue
			}
			// Versions are listed oldest first.
			p := resp.Collection[len(resp.Collection)-1]
			c := types.Candidate{
				Title:      p.Title,
				Authors:    splitSemicolons(p.Authors),
				Year:       leadingYear(p.Date),
				Locator:    fmt.Sprintf("%s%sv%s.full.pdf", bioRxivContent[server], p.DOI, p.Version),
				Confidence: 1.0,
			}
			c.RawPayload, _ = json.Marshal(p)
			return []types.Candidate{c}, nil
		}
		return nil, nil
	})
}

// bioRxiv API JSON structures.
type bioRxivResponse struct {
	Collection []bioRxivPreprint `json:"collection"`
}

type bioRxivPreprint struct {
	DOI     string `json:"doi"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Date    string `json:"date"`
	Version string `json:"version"`
	Server  string `json:"server"`
}

func splitSemicolons(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
