// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSourcesCommand(t *testing.T) {
	out, err := execute(t, "sources")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Contains(t, lines[0], "PRIORITY")
	assert.Contains(t, lines[1], "arxiv")
	assert.Contains(t, lines[2], "openalex")
	assert.Contains(t, lines[3], "semantic_scholar")
}

func TestSearchCommand_RejectsUnknownFormat(t *testing.T) {
	_, err := execute(t, "search", "--format", "xml", "refs.txt")
	assert.ErrorContains(t, err, "unknown format")
}

func TestFetchCommand_RequiresFile(t *testing.T) {
	_, err := execute(t, "fetch")
	assert.Error(t, err)
}
