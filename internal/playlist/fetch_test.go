// SPDX-License-Identifier: MIT
package playlist

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fetchTestPlaylist = "#EXTM3U\n" +
	"#EXTINF:-1 tvg-id=\"1\",Channel A\n" +
	"https://example.com/a.m3u8\n"

func TestFetcherRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fetchTestPlaylist))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, true, 5*time.Second)
	channels, stale, err := f.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, stale)
	require.Len(t, channels, 1)
	assert.Equal(t, "Channel A", channels[0].Name)
}

func TestFetcherStaleFallback(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(fetchTestPlaylist))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, true, 5*time.Second)

	first, stale, err := f.Refresh(context.Background())
	require.NoError(t, err)
	require.False(t, stale)
	require.Len(t, first, 1)

	fail.Store(true)
	second, stale, err := f.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, first, second)
}

func TestFetcherNoCacheReturnsEmptyOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, true, 5*time.Second)
	channels, stale, err := f.Refresh(context.Background())
	require.Error(t, err)
	assert.False(t, stale)
	assert.Empty(t, channels)
}

func TestFetcherEmptyListDoesNotOverwriteCache(t *testing.T) {
	var empty atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if empty.Load() {
			_, _ = w.Write([]byte("#EXTM3U\n"))
			return
		}
		_, _ = w.Write([]byte(fetchTestPlaylist))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, true, 5*time.Second)
	_, _, err := f.Refresh(context.Background())
	require.NoError(t, err)

	empty.Store(true)
	channels, _, err := f.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, channels)

	// The cached copy survives for the next outage.
	f.mu.Lock()
	cached := len(f.cached)
	f.mu.Unlock()
	assert.Equal(t, 1, cached)
}
