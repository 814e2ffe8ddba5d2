// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// scholarBase is the Scholar-style results page. Declared as a var so
// tests can substitute an httptest server.
var scholarBase = "https://scholar.google.com/scholar"

// PageFetcher retrieves a rendered HTML page. The default implementation
// uses plain HTTP; a headless-browser fetcher can be plugged in for pages
// that require script execution.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) ([]byte, error)
}

// HTTPPageFetcher fetches pages with an HTTP client.
type HTTPPageFetcher struct {
	Base
	SourceID string
}

// FetchPage GETs pageURL with browser-like headers.
func (f HTTPPageFetcher) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := f.newRequest(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return f.get(f.SourceID, req)
}

// Scholar searches a Scholar-style HTML results page and yields the PDF
// links shown next to results.
type Scholar struct {
	Base
	// Fetcher overrides how result pages are loaded. Nil uses HTTP.
	Fetcher PageFetcher
}

// ID returns the source identifier.
func (s *Scholar) ID() string { return types.SourceScholar }

// Search queries the results page for q's title and first author.
func (s *Scholar) Search(ctx context.Context, q types.PaperQuery, maxResults int) *Results {
	if maxResults <= 0 {
		maxResults = 10
	}
	terms := `"` + strings.TrimSpace(q.Title) + `"`
	if a := q.FirstAuthorSurname(); a != "" {
		terms += " author:" + a
	}
	params := url.Values{"q": {terms}, "hl": {"en"}}
	if q.Year > 0 {
		params.Set("as_ylo", strconv.Itoa(q.Year-1))
		params.Set("as_yhi", strconv.Itoa(q.Year+1))
	}
	pageURL := scholarBase + "?" + params.Encode()

	fetcher := s.Fetcher
	if fetcher == nil {
		fetcher = HTTPPageFetcher{Base: s.Base, SourceID: s.ID()}
	}

	return NewResults(ctx, s.ID(), s.Gate, maxResults, func(ctx context.Context) ([]types.Candidate, error) {
		page, err := fetcher.FetchPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		return parseScholarPage(s.ID(), page, pageURL)
	})
}

var yearPattern = regexp.MustCompile(`\b(1[89]|20)\d{2}\b`)

var errCaptcha = errors.New("captcha challenge served")

// parseScholarPage extracts result blocks from a results page.
func parseScholarPage(sourceID string, page []byte, pageURL string) ([]types.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, parseError(sourceID, fmt.Errorf("parsing results page: %w", err))
	}
	if doc.Find("#gs_captcha_ccl, form#captcha-form, #recaptcha").Length() > 0 {
		return nil, &SourceError{Source: sourceID, Kind: types.KindRateLimited,
			Err: fmt.Errorf("%w: %w", ErrRateLimited, errCaptcha)}
	}
	base, _ := url.Parse(pageURL)

	blocks := doc.Find("div.gs_r")
	total := blocks.Length()
	var cands []types.Candidate
	blocks.Each(func(i int, sel *goquery.Selection) {
		titleSel := sel.Find("h3.gs_rt")
		if titleSel.Length() == 0 {
			return
		}
		title := strings.TrimSpace(titleSel.Find("a").First().Text())
		if title == "" {
			clone := titleSel.Clone()
			clone.Find("span").Remove()
			title = strings.TrimSpace(clone.Text())
		}
		byline := sel.Find("div.gs_a").Text()
		c := types.Candidate{
			Title:      strings.Join(strings.Fields(title), " "),
			Authors:    scholarAuthors(byline),
			Confidence: positionConfidence(i, total),
		}
		if m := yearPattern.FindString(byline); m != "" {
			c.Year, _ = strconv.Atoi(m)
		}

		href, ok := sel.Find("div.gs_or_ggsm a").First().Attr("href")
		if !ok {
			if h, ok2 := titleSel.Find("a").First().Attr("href"); ok2 && strings.HasSuffix(strings.ToLower(h), ".pdf") {
				href = h
			}
		}
		c.Locator = resolveURL(base, href)

		if html, err := goquery.OuterHtml(sel); err == nil {
			c.RawPayload = []byte(html)
		}
		cands = append(cands, c)
	})
	return cands, nil
}

// scholarAuthors parses the author part of a byline such as
// "A Aizawa, K Inohara - Wear, 2019 - Elsevier".
func scholarAuthors(byline string) []string {
	part, _, _ := strings.Cut(byline, " - ")
	part = strings.ReplaceAll(part, "…", "")
	var out []string
	for _, a := range strings.Split(part, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// resolveURL resolves href against base. It returns "" for empty or
// unparseable links.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}

var _ PageFetcher = HTTPPageFetcher{}
