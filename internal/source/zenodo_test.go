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

const zenodoJSON = `{"hits":{"total":2,"hits":[
 {"id":77,"metadata":{"title":"Surface texturing dataset and paper","publication_date":"2021-06-30",
  "creators":[{"name":"Inohara, Tomoaki"}]},
  "files":[{"key":"data.csv","links":{"self":"https://zenodo.example/77/data.csv"}},
           {"key":"Paper.PDF","links":{"self":"https://zenodo.example/77/Paper.PDF"}}]},
 {"id":78,"metadata":{"title":"Only data"},"files":[{"key":"x.zip","links":{"self":"https://zenodo.example/78/x.zip"}}]}
]}}`

func TestZenodo_Search(t *testing.T) {
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"q":            r.URL.Query().Get("q"),
			"access_right": r.URL.Query().Get("access_right"),
			"type":         r.URL.Query().Get("type"),
		}
		w.Write([]byte(zenodoJSON))
	}))
	defer ts.Close()

	old := zenodoSearchBase
	zenodoSearchBase = ts.URL
	defer func() { zenodoSearchBase = old }()

	s := &Zenodo{Base: Base{Client: ts.Client()}}
	r := s.Search(context.Background(), types.PaperQuery{Title: `Surface "texturing"`}, 10)
	cands := Collect(r)
	require.NoError(t, r.Err())

	assert.Equal(t, `title:"Surface  texturing "`, got["q"])
	assert.Equal(t, "open", got["access_right"])
	assert.Equal(t, "publication", got["type"])
	require.Len(t, cands, 1)
	assert.Equal(t, "https://zenodo.example/77/Paper.PDF", cands[0].Locator)
	assert.Equal(t, 2021, cands[0].Year)
	assert.Equal(t, []string{"Inohara, Tomoaki"}, cands[0].Authors)
}
