// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/internal/httputil"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

const semanticJSON = `{"total":2,"data":[
 {"paperId":"abc","title":"Friction of MoS2","year":2019,
  "authors":[{"name":"A. Aizawa"}],
  "openAccessPdf":{"url":"https://s2.example/abc.pdf","status":"GREEN"}},
 {"paperId":"def","title":"No PDF","year":2019,"authors":[],"openAccessPdf":null}
]}`

func TestSemanticScholar_Search(t *testing.T) {
	var apiKey, year string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("x-api-key")
		year = r.URL.Query().Get("year")
		w.Write([]byte(semanticJSON))
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	s := &SemanticScholar{Base: Base{Client: ts.Client()}, APIKey: "k"}
	cands := Collect(s.Search(context.Background(), types.PaperQuery{Title: "Friction", Year: 2019}, 5))

	assert.Equal(t, "k", apiKey)
	assert.Equal(t, "2018-2020", year)
	require.Len(t, cands, 1)
	assert.Equal(t, "https://s2.example/abc.pdf", cands[0].Locator)
	assert.Equal(t, "semantic_scholar", cands[0].SourceID)
	assert.Equal(t, []string{"A. Aizawa"}, cands[0].Authors)
}

func TestSemanticScholar_RetriesThenRateLimited(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	old := semanticAPIBase
	semanticAPIBase = ts.URL
	defer func() { semanticAPIBase = old }()

	s := &SemanticScholar{Base: Base{Client: ts.Client()}}
	r := s.Search(context.Background(), types.PaperQuery{Title: "x"}, 5)
	assert.Empty(t, Collect(r))

	var se *SourceError
	require.ErrorAs(t, r.Err(), &se)
	assert.Equal(t, types.KindRateLimited, se.Kind)
	assert.Equal(t, int32(3), calls.Load())
}
