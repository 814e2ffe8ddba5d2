// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-fetcher/internal/match"
	"github.com/pdiddy/paper-fetcher/pkg/types"
)

func TestParseAuthorName(t *testing.T) {
	assert.Equal(t, CSLName{Given: "Tatsuhiko", Family: "Aizawa"}, parseAuthorName("Tatsuhiko Aizawa"))
	assert.Equal(t, CSLName{Family: "Aizawa", Given: "T."}, parseAuthorName("Aizawa, T."))
	assert.Equal(t, CSLName{Literal: "Aristotle"}, parseAuthorName("Aristotle"))
	assert.Equal(t, CSLName{}, parseAuthorName(" "))
}

func TestFormatCSL(t *testing.T) {
	q := types.PaperQuery{Title: "Deep Learning", Authors: []string{"LeCun"}, Year: 2015, DOI: "10.1038/nature14539"}
	found := PaperResult{Query: q, Result: Result{Ranked: []match.Scored{{
		Candidate: types.Candidate{SourceID: "arxiv", Title: "Deep learning", Authors: []string{"Yann LeCun"}, Year: 2015, Locator: "http://x/dl.pdf"},
		Score:     0.95,
	}}}}
	missing := PaperResult{Query: types.PaperQuery{Title: "Nothing"}}

	var buf bytes.Buffer
	require.NoError(t, FormatCSL([]PaperResult{found, missing}, &buf))

	var items []CSLItem
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, q.ID(), items[0].ID)
	assert.Equal(t, "10.1038/nature14539", items[0].DOI)
	assert.Equal(t, "http://x/dl.pdf", items[0].URL)
	assert.Equal(t, [][]int{{2015}}, items[0].Issued.DateParts)
	assert.Equal(t, "LeCun", items[0].Author[0].Family)
}
