// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

func openTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), DBFile)
	s, err := OpenStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpenStore_CreatesSchema(t *testing.T) {
	s, _ := openTestStore(t)
	for _, table := range []string{"runs", "outcomes"} {
		var n int
		err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestOpenStore_Reopen(t *testing.T) {
	s, path := openTestStore(t)
	require.NoError(t, s.Close())
	again, err := OpenStore(path)
	require.NoError(t, err)
	again.Close()
}

func TestSQLiteStore_PersistAndRead(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	l := New()
	ok := outcome("a", types.StateDownloaded)
	ok.ChosenSource = "openalex"
	ok.FilePath = "/out/pdfs/a.pdf"
	ok.FileSize = 4096
	ok.Score = 0.97
	l.Record(ok)
	bad := outcome("b", types.StateDownloadFailed)
	bad.ErrorKind = types.KindNetwork
	bad.Diagnostics = []string{"x", "y"}
	l.Record(bad)

	r, err := l.Finalize(ctx, s)
	require.NoError(t, err)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, r.RunID, runs[0].RunID)
	assert.Equal(t, 1, runs[0].Counts.Downloaded)
	assert.Equal(t, 1, runs[0].Counts.DownloadFailed)

	got, err := s.Outcomes(ctx, r.RunID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].PaperID)
	assert.Equal(t, "openalex", got[0].ChosenSource)
	assert.EqualValues(t, 4096, got[0].FileSize)
	assert.InDelta(t, 0.97, got[0].Score, 1e-9)
	assert.Equal(t, types.KindNetwork, got[1].ErrorKind)
	assert.Equal(t, []string{"x", "y"}, got[1].Diagnostics)
}

func TestSQLiteStore_KeepsHistoryAcrossRuns(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	first := New()
	first.Record(outcome("a", types.StateDownloadFailed))
	_, err := first.Finalize(ctx, s)
	require.NoError(t, err)

	second := New()
	second.Record(outcome("a", types.StateDownloaded))
	_, err = second.Finalize(ctx, s)
	require.NoError(t, err)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	last, found, err := s.LastOutcome(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.StateDownloaded, last.State)

	_, found, err = s.LastOutcome(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}
