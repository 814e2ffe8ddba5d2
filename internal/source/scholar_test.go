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

const scholarHTML = `<html><body><div id="gs_res_ccl_mid">
<div class="gs_r gs_or gs_scl">
  <div class="gs_ggs gs_fl"><div class="gs_ggsd"><div class="gs_or_ggsm">
    <a href="https://repo.example/aizawa2019.pdf"><span class="gs_ctg2">[PDF]</span> repo.example</a>
  </div></div></div>
  <div class="gs_ri">
    <h3 class="gs_rt"><a href="https://publisher.example/article/1">Tribological properties of MoS2 coatings</a></h3>
    <div class="gs_a">A Aizawa, K Inohara - Wear, 2019 - Elsevier</div>
  </div>
</div>
<div class="gs_r gs_or gs_scl">
  <div class="gs_ri">
    <h3 class="gs_rt"><span class="gs_ctc"><span class="gs_ct1">[BOOK]</span></span> Tribology handbook</h3>
    <div class="gs_a">B Bhushan - 2013 - books.example</div>
  </div>
</div>
<div class="gs_r gs_or gs_scl">
  <div class="gs_ri">
    <h3 class="gs_rt"><a href="/files/direct.pdf">Direct PDF result</a></h3>
    <div class="gs_a">C Author… - 2020</div>
  </div>
</div>
</div></body></html>`

func TestParseScholarPage(t *testing.T) {
	cands, err := parseScholarPage("scholar", []byte(scholarHTML), "https://scholar.example/scholar?q=x")
	require.NoError(t, err)
	require.Len(t, cands, 3)

	assert.Equal(t, "Tribological properties of MoS2 coatings", cands[0].Title)
	assert.Equal(t, []string{"A Aizawa", "K Inohara"}, cands[0].Authors)
	assert.Equal(t, 2019, cands[0].Year)
	assert.Equal(t, "https://repo.example/aizawa2019.pdf", cands[0].Locator)

	assert.Equal(t, "Tribology handbook", cands[1].Title)
	assert.Empty(t, cands[1].Locator)
	assert.Equal(t, 2013, cands[1].Year)

	assert.Equal(t, "https://scholar.example/files/direct.pdf", cands[2].Locator)
	assert.Equal(t, []string{"C Author"}, cands[2].Authors)
}

func TestParseScholarPage_Captcha(t *testing.T) {
	page := `<html><body><div id="gs_captcha_ccl">please verify</div></body></html>`
	_, err := parseScholarPage("scholar", []byte(page), "https://scholar.example/")
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.KindRateLimited, se.Kind)
	assert.ErrorIs(t, err, ErrRateLimited)
}

type stubFetcher struct {
	page []byte
	urls []string
}

func (f *stubFetcher) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	f.urls = append(f.urls, pageURL)
	return f.page, nil
}

func TestScholar_PluggableFetcher(t *testing.T) {
	f := &stubFetcher{page: []byte(scholarHTML)}
	s := &Scholar{Fetcher: f}
	q := types.PaperQuery{Title: "Tribological properties", Authors: []string{"Aizawa"}, Year: 2019}

	cands := Collect(s.Search(context.Background(), q, 10))
	require.Len(t, cands, 2, "result without PDF link is skipped")
	require.Len(t, f.urls, 1)
	assert.Contains(t, f.urls[0], "as_ylo=2018")
	assert.Contains(t, f.urls[0], "author%3Aaizawa")
}

func TestScholar_HTTPFetcher(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		w.Write([]byte(scholarHTML))
	}))
	defer ts.Close()

	old := scholarBase
	scholarBase = ts.URL
	defer func() { scholarBase = old }()

	s := &Scholar{Base: Base{Client: ts.Client()}}
	cands := Collect(s.Search(context.Background(), types.PaperQuery{Title: "x"}, 1))
	require.Len(t, cands, 1)
	assert.Equal(t, "scholar", cands[0].SourceID)
}
