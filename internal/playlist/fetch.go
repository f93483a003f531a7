// SPDX-License-Identifier: MIT
package playlist

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/metrics"
)

// Fetcher retrieves the playlist document and keeps the last non-empty
// channel list in memory so a flaky content server degrades to stale
// data instead of an empty channel grid.
type Fetcher struct {
	url        string
	secureOnly bool
	http       *http.Client

	group singleflight.Group

	mu     sync.Mutex
	cached []Channel
}

// NewFetcher creates a Fetcher for the given playlist URL. secureOnly
// mirrors the player origin: an https player cannot embed http streams.
func NewFetcher(url string, secureOnly bool, timeout time.Duration) *Fetcher {
	return &Fetcher{
		url:        url,
		secureOnly: secureOnly,
		http:       &http.Client{Timeout: timeout},
	}
}

// Refresh fetches and parses the playlist. Concurrent callers share one
// in-flight request. The bool result reports whether the returned list
// is the stale in-memory copy retained after a failed fetch.
func (f *Fetcher) Refresh(ctx context.Context) ([]Channel, bool, error) {
	v, err, _ := f.group.Do("refresh", func() (any, error) {
		return f.refresh(ctx)
	})
	res := v.(refreshResult)
	return res.channels, res.stale, err
}

type refreshResult struct {
	channels []Channel
	stale    bool
}

func (f *Fetcher) refresh(ctx context.Context) (refreshResult, error) {
	logger := xglog.WithComponentFromContext(ctx, "playlist")

	raw, err := f.fetchRaw(ctx)
	if err != nil {
		f.mu.Lock()
		cached := f.cached
		f.mu.Unlock()
		if len(cached) > 0 {
			logger.Warn().Err(err).
				Str("event", "playlist.stale").
				Int("channels", len(cached)).
				Msg("playlist fetch failed, serving cached list")
			metrics.RecordPlaylistFetch("stale")
			return refreshResult{channels: cached, stale: true}, nil
		}
		logger.Error().Err(err).
			Str("event", "playlist.fetch_failed").
			Msg("playlist fetch failed with no cached list")
		metrics.RecordPlaylistFetch("failure")
		return refreshResult{channels: []Channel{}}, err
	}

	channels := Parse(raw, f.secureOnly)

	f.mu.Lock()
	if len(channels) > 0 {
		f.cached = channels
	}
	f.mu.Unlock()

	logger.Info().
		Str("event", "playlist.refreshed").
		Int("channels", len(channels)).
		Msg("playlist refreshed")
	metrics.RecordPlaylistFetch("success")
	metrics.RecordChannelsParsed(len(channels))

	return refreshResult{channels: channels}, nil
}

func (f *Fetcher) fetchRaw(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", fmt.Errorf("build playlist request: %w", err)
	}
	res, err := f.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch playlist: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch playlist: unexpected status %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read playlist body: %w", err)
	}
	return string(body), nil
}
