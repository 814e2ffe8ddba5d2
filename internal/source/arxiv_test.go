// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

const arxivFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762v7</id>
    <title>Attention Is All
      You Need</title>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
    <author><name>Noam Shazeer</name></author>
    <link href="http://arxiv.org/abs/1706.03762v7" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1706.03762v7" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2001.00001v1</id>
    <title>Other</title>
    <published>2020-01-01T00:00:00Z</published>
  </entry>
</feed>`

func TestArxiv_Search(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		assert.Equal(t, "paper-fetcher/test", r.Header.Get("User-Agent"))
		w.Write([]byte(arxivFeedXML))
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	s := &Arxiv{Base: Base{Client: ts.Client(), UserAgent: "paper-fetcher/test"}}
	q := types.PaperQuery{Title: "Attention is all you need", Authors: []string{"Vaswani"}, Year: 2017}

	cands := Collect(s.Search(context.Background(), q, 5))
	require.Len(t, cands, 2)
	assert.Equal(t, `ti:"attention is all you need" AND au:vaswani`, gotQuery)

	c := cands[0]
	assert.Equal(t, "arxiv", c.SourceID)
	assert.Equal(t, "Attention Is All You Need", c.Title)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, c.Authors)
	assert.Equal(t, 2017, c.Year)
	assert.Equal(t, "http://arxiv.org/pdf/1706.03762v7", c.Locator)
	assert.InDelta(t, 1.0, c.Confidence, 1e-9)

	assert.Equal(t, "http://arxiv.org/pdf/2001.00001v1", cands[1].Locator)
}

func TestArxiv_ParseError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<feed><entry>"))
	}))
	defer ts.Close()

	old := arxivAPIBase
	arxivAPIBase = ts.URL
	defer func() { arxivAPIBase = old }()

	s := &Arxiv{Base: Base{Client: ts.Client()}}
	r := s.Search(context.Background(), types.PaperQuery{Title: "x"}, 5)
	assert.Empty(t, Collect(r))

	var se *SourceError
	require.ErrorAs(t, r.Err(), &se)
	assert.Equal(t, types.KindParse, se.Kind)
}

func TestArxiv_EmptyTitle(t *testing.T) {
	s := &Arxiv{}
	r := s.Search(context.Background(), types.PaperQuery{Title: "!!"}, 5)
	assert.Empty(t, Collect(r))
	assert.Error(t, r.Err())
}
