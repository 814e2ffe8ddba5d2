// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// Mirror looks a paper up on configured mirror sites, by DOI when one is
// known and by title otherwise, and yields the PDF embedded in the landing
// page. Mirrors are tried in order until one serves a PDF link. Title
// lookups describe the candidate with the page's citation_* metadata and
// yield nothing from pages that carry none.
type Mirror struct {
	Base
	Mirrors []string
}

// ID returns the source identifier.
func (s *Mirror) ID() string { return types.SourceMirror }

// Search queries the mirrors for q.
func (s *Mirror) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if len(s.Mirrors) == 0 {
		return FailedResults(s.ID(), types.KindNetwork, errors.New("no mirrors configured"))
	}
	doi := q.EffectiveDOI()
	path := doi
	if path == "" {
		path = url.PathEscape(q.Title)
	}

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		var errs []error
		for _, m := range s.Mirrors {
			pageURL := strings.TrimRight(m, "/") + "/" + path
			page, err := s.fetch(ctx, pageURL)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				errs = append(errs, err)
				continue
			}
			link, meta := scanMirrorPage(page)
			if link == "" {
				continue
			}
			// A title lookup only proves a match through the page's own
			// citation metadata.
			if doi == "" && meta.title == "" {
				continue
			}
			base, _ := url.Parse(pageURL)
			c := types.Candidate{
				Title:      q.Title,
				Authors:    q.Authors,
				Year:       q.Year,
				Locator:    resolveURL(base, link),
				Confidence: 1.0,
				RawPayload: []byte(pageURL),
			}
			if doi == "" {
				c.Title = meta.title
				c.Authors = meta.authors
				c.Year = meta.year
				c.Confidence = 0.5
			}
			return []types.Candidate{c}, nil
		}
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, nil
	})
}

func (s *Mirror) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := s.newRequest(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	return s.get(s.ID(), req)
}

type pageMeta struct {
	title   string
	authors []string
	year    int
}

// scanMirrorPage walks the landing page and returns the first embedded PDF
// link (iframe or embed src, or an anchor ending in .pdf) along with any
// citation_* meta tags.
func scanMirrorPage(page []byte) (string, pageMeta) {
	var meta pageMeta
	var link string
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return link, meta
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		tok := z.Token()
		switch tok.Data {
		case "iframe", "embed":
			if src := attr(tok, "src"); src != "" && link == "" {
				link = src
			}
		case "a":
			if href := attr(tok, "href"); link == "" && isPDFHref(href) {
				link = href
			}
		case "meta":
			content := attr(tok, "content")
			switch attr(tok, "name") {
			case "citation_title":
				meta.title = content
			case "citation_author":
				meta.authors = append(meta.authors, content)
			case "citation_publication_date", "citation_date":
				if m := yearPattern.FindString(content); m != "" {
					fmt.Sscanf(m, "%d", &meta.year)
				}
			}
		}
	}
}

func isPDFHref(href string) bool {
	h := strings.ToLower(href)
	if i := strings.IndexAny(h, "?#"); i >= 0 {
		h = h[:i]
	}
	return strings.HasSuffix(h, ".pdf")
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
