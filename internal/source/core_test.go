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

const coreJSON = `{"totalHits":2,"results":[
 {"id":101,"title":"Femtosecond ablation","yearPublished":2019,"authors":[{"name":"Aizawa, Tatsuhiko"}],
  "downloadUrl":"https://core.example/download/101.pdf"},
 {"id":102,"title":"Repository copy","yearPublished":2018,"authors":[],
  "downloadUrl":"","sourceFulltextUrls":["https://repo.example/102.pdf"]}
]}`

func TestCORE_Search(t *testing.T) {
	var gotAuth, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(coreJSON))
	}))
	defer ts.Close()

	old := coreSearchBase
	coreSearchBase = ts.URL
	defer func() { coreSearchBase = old }()

	s := &CORE{Base: Base{Client: ts.Client()}, APIKey: "secret"}
	r := s.Search(context.Background(), types.PaperQuery{Title: "Femtosecond ablation", DOI: "10.1/abc"}, 10)
	cands := Collect(r)
	require.NoError(t, r.Err())

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, `doi:"10.1/abc"`, gotQuery)
	require.Len(t, cands, 2)
	assert.Equal(t, "https://core.example/download/101.pdf", cands[0].Locator)
	assert.Equal(t, []string{"Aizawa, Tatsuhiko"}, cands[0].Authors)
	assert.Equal(t, "https://repo.example/102.pdf", cands[1].Locator)
}

func TestCORE_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	old := coreSearchBase
	coreSearchBase = ts.URL
	defer func() { coreSearchBase = old }()

	s := &CORE{Base: Base{Client: ts.Client()}}
	r := s.Search(context.Background(), types.PaperQuery{Title: "x"}, 10)
	assert.Empty(t, Collect(r))
	var se *SourceError
	require.ErrorAs(t, r.Err(), &se)
	assert.Equal(t, types.KindNetwork, se.Kind)
}
