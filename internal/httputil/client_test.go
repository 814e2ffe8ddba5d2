// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, base, Backoff(base, 0, 1))
	assert.Equal(t, 200*time.Millisecond, Backoff(base, 0, 2))
	assert.Equal(t, 400*time.Millisecond, Backoff(base, 0, 3))
	assert.Equal(t, 300*time.Millisecond, Backoff(base, 300*time.Millisecond, 3))
	assert.Equal(t, base, Backoff(base, time.Second, 0))
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleep_Elapses(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
}

func TestNewClient_Proxy(t *testing.T) {
	c, err := NewClient(types.HTTPConfig{Timeout: 5 * time.Second, Proxy: "http://proxy.local:8080"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.Timeout)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	req := &http.Request{URL: &url.URL{Scheme: "https", Host: "arxiv.org"}}
	proxyURL, err := tr.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy.local:8080", proxyURL.Host)
}

func TestNewClient_NoProxy(t *testing.T) {
	c, err := NewClient(types.HTTPConfig{})
	require.NoError(t, err)
	assert.NotNil(t, c.Transport)
}
