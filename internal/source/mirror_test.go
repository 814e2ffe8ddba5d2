// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/internal/match"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

func TestScanMirrorPage(t *testing.T) {
	page := `<html><head>
<meta name="citation_title" content="Friction of MoS2">
<meta name="citation_author" content="Aizawa, A.">
<meta name="citation_publication_date" content="2019/03/01">
</head><body>
<a href="/about.html">about</a>
<div id="article"><iframe src="//cdn.mirror.example/pdf/abc.pdf#view=FitH"></iframe></div>
</body></html>`
	link, meta := scanMirrorPage([]byte(page))
	assert.Equal(t, "//cdn.mirror.example/pdf/abc.pdf#view=FitH", link)
	assert.Equal(t, "Friction of MoS2", meta.title)
	assert.Equal(t, []string{"Aizawa, A."}, meta.authors)
	assert.Equal(t, 2019, meta.year)

	link, _ = scanMirrorPage([]byte(`<a href="/download/x.PDF?token=1">get</a>`))
	assert.Equal(t, "/download/x.PDF?token=1", link)

	link, _ = scanMirrorPage([]byte(`<p>not found</p>`))
	assert.Empty(t, link)
}

func TestMirror_FailoverByDOI(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	var gotPath string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`<embed type="application/pdf" src="/storage/paper.pdf">`))
	}))
	defer up.Close()

	s := &Mirror{Base: Base{Client: up.Client()}, Mirrors: []string{down.URL, up.URL + "/"}}
	q := types.PaperQuery{Title: "Friction", Authors: []string{"Aizawa"}, Year: 2019,
		RawCitation: "Aizawa (2019). Friction. doi:10.1016/j.wear.2019.01.002"}

	r := s.Search(context.Background(), q, 1)
	cands := Collect(r)
	require.NoError(t, r.Err())
	require.Len(t, cands, 1)
	assert.Equal(t, "/10.1016/j.wear.2019.01.002", gotPath)
	assert.Equal(t, up.URL+"/storage/paper.pdf", cands[0].Locator)
	assert.Equal(t, "Friction", cands[0].Title)
	assert.Equal(t, 2019, cands[0].Year)
}

func TestMirror_TitleLookupNeedsPageMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><a href="/some-unrelated-paper.pdf">download</a></body></html>`))
	}))
	defer srv.Close()

	s := &Mirror{Base: Base{Client: srv.Client()}, Mirrors: []string{srv.URL}}
	q := types.PaperQuery{Title: "Pico- and femtosecond laser micromachining", Authors: []string{"Aizawa T."}, Year: 2019}

	r := s.Search(context.Background(), q, 1)
	assert.Empty(t, Collect(r))
	assert.NoError(t, r.Err())
}

func TestMirror_TitleLookupUsesPageMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><head>
<meta name="citation_title" content="Corrosion of welded steel joints">
<meta name="citation_author" content="Novak, P.">
<meta name="citation_date" content="2004">
</head><body><a href="/files/weld.pdf">download</a></body></html>`))
	}))
	defer srv.Close()

	s := &Mirror{Base: Base{Client: srv.Client()}, Mirrors: []string{srv.URL}}
	q := types.PaperQuery{Title: "Pico- and femtosecond laser micromachining", Authors: []string{"Aizawa T."}, Year: 2019}

	r := s.Search(context.Background(), q, 1)
	cands := Collect(r)
	require.NoError(t, r.Err())
	require.Len(t, cands, 1)
	assert.Equal(t, "Corrosion of welded steel joints", cands[0].Title)
	assert.Equal(t, 2004, cands[0].Year)
	assert.Equal(t, srv.URL+"/files/weld.pdf", cands[0].Locator)

	m := match.New(types.DefaultConfig().Match)
	assert.False(t, m.Acceptable(m.Score(q, cands[0])))
}

func TestMirror_AllDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	s := &Mirror{Base: Base{Client: down.Client()}, Mirrors: []string{down.URL}}
	r := s.Search(context.Background(), types.PaperQuery{Title: "x", DOI: "10.1/x"}, 1)
	assert.Empty(t, Collect(r))

	var se *SourceError
	require.ErrorAs(t, r.Err(), &se)
	assert.Equal(t, types.KindNetwork, se.Kind)
}

func TestMirror_NoMirrors(t *testing.T) {
	s := &Mirror{}
	r := s.Search(context.Background(), types.PaperQuery{Title: "x"}, 1)
	assert.Empty(t, Collect(r))
	assert.Error(t, r.Err())
}
