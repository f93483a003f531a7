// SPDX-License-Identifier: MIT
package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wxsd-sales/iptv-bridge/internal/session"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi/xapitest"
)

type fakePlayback struct {
	mu     sync.Mutex
	loaded []string
	paused bool
	volume float64
	muted  bool
	events chan AudioEvent
}

func newFakePlayback() *fakePlayback {
	return &fakePlayback{
		volume: 1.0,
		paused: true,
		events: make(chan AudioEvent, 8),
	}
}

func (p *fakePlayback) Load(link string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loaded = append(p.loaded, link)
}

func (p *fakePlayback) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

func (p *fakePlayback) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

func (p *fakePlayback) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *fakePlayback) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
}

func (p *fakePlayback) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *fakePlayback) SetMuted(m bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = m
}

func (p *fakePlayback) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *fakePlayback) Events() <-chan AudioEvent { return p.events }

func (p *fakePlayback) lastLoaded() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.loaded) == 0 {
		return ""
	}
	return p.loaded[len(p.loaded)-1]
}

func testHandshake() session.Handshake {
	return session.Handshake{
		Username:  "iptv-session",
		Password:  "s3cret",
		IPAddress: "192.0.2.10",
		PanelID:   "iptv",
		Link:      "https://cdn.example.com/stream-1.m3u8",
	}
}

// startController runs the controller and returns its eventual error.
func startController(t *testing.T, c *Controller) (cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	t.Cleanup(cancelFn)
	return cancelFn, errCh
}

func waitReady(t *testing.T, c *Controller) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == StateReady
	}, time.Second, time.Millisecond)
}

func TestRunRetriesUntilConnected(t *testing.T) {
	dialer := &xapitest.FakeDialer{FailFirst: 2}
	pb := newFakePlayback()
	hs := testHandshake()
	c := New(hs, dialer, pb, Config{Attempts: 3, Backoff: time.Millisecond})

	cancel, done := startController(t, c)
	waitReady(t, c)

	assert.Equal(t, 3, dialer.Attempts)
	assert.Equal(t, hs.IPAddress, dialer.LastAddress)
	assert.Equal(t, hs.Username, dialer.LastUsername)
	assert.Equal(t, hs.Password, dialer.LastPassword)
	assert.Equal(t, hs.Link, pb.lastLoaded())
	assert.False(t, pb.Paused())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, c.State())
}

func TestRunFailsAfterRetryBudget(t *testing.T) {
	dialer := &xapitest.FakeDialer{FailFirst: 3}
	c := New(testHandshake(), dialer, newFakePlayback(), Config{Attempts: 3, Backoff: time.Millisecond})

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrConnectFailed)
	assert.Equal(t, 3, dialer.Attempts)
	assert.Equal(t, StateFailed, c.State())
}

func TestRunEndsWhenRemoteStreamCloses(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	c := New(testHandshake(), dialer, newFakePlayback(), Config{Attempts: 1, Backoff: time.Millisecond})

	_, done := startController(t, c)
	waitReady(t, c)

	dialer.Remote.CloseEvents()
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, c.State())
	assert.True(t, dialer.Remote.Closed)
}

func TestPlayPauseClickTogglesPlayback(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	pb := newFakePlayback()
	c := New(testHandshake(), dialer, pb, Config{Attempts: 1, Backoff: time.Millisecond})

	_, _ = startController(t, c)
	waitReady(t, c)
	require.False(t, pb.Paused())

	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "iptv-playercontrols-playpause"})
	require.Eventually(t, pb.Paused, time.Second, time.Millisecond)
	assert.Equal(t, "active", dialer.Remote.WidgetValue("iptv-playercontrols-playpause"))

	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "iptv-playercontrols-playpause"})
	require.Eventually(t, func() bool { return !pb.Paused() }, time.Second, time.Millisecond)
	assert.Equal(t, "inactive", dialer.Remote.WidgetValue("iptv-playercontrols-playpause"))
}

func TestToggleMuteClick(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	pb := newFakePlayback()
	c := New(testHandshake(), dialer, pb, Config{Attempts: 1, Backoff: time.Millisecond})

	_, _ = startController(t, c)
	waitReady(t, c)

	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "iptv-playercontrols-togglemute"})
	require.Eventually(t, pb.Muted, time.Second, time.Millisecond)

	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "iptv-playercontrols-togglemute"})
	require.Eventually(t, func() bool { return !pb.Muted() }, time.Second, time.Millisecond)
}

func TestVolumeReleaseRescalesSlider(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	pb := newFakePlayback()
	c := New(testHandshake(), dialer, pb, Config{Attempts: 1, Backoff: time.Millisecond})

	_, _ = startController(t, c)
	waitReady(t, c)

	dialer.Remote.PushEvent(xapi.WidgetReleased{WidgetID: "iptv-playercontrols-volume", Value: "255"})
	require.Eventually(t, func() bool { return pb.Volume() == 1.0 }, time.Second, time.Millisecond)

	dialer.Remote.PushEvent(xapi.WidgetReleased{WidgetID: "iptv-playercontrols-volume", Value: "0"})
	require.Eventually(t, func() bool { return pb.Volume() == 0.0 }, time.Second, time.Millisecond)

	dialer.Remote.PushEvent(xapi.WidgetReleased{WidgetID: "iptv-playercontrols-volume", Value: "128"})
	require.Eventually(t, func() bool {
		v := pb.Volume()
		return v > 0.49 && v < 0.52
	}, time.Second, time.Millisecond)
}

func TestForeignPanelEventsIgnored(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	pb := newFakePlayback()
	c := New(testHandshake(), dialer, pb, Config{Attempts: 1, Backoff: time.Millisecond})

	_, _ = startController(t, c)
	waitReady(t, c)

	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "weather-playercontrols-togglemute"})
	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "iptv-channels-select-0"})
	dialer.Remote.PushEvent(xapi.WidgetReleased{WidgetID: "iptv-playercontrols-volume", Value: "not-a-number"})

	// A valid event after the noise proves the loop survived it.
	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "iptv-playercontrols-togglemute"})
	require.Eventually(t, pb.Muted, time.Second, time.Millisecond)
	assert.Equal(t, 1.0, pb.Volume())
}

func TestChannelSwitchMessageRetargetsPlayback(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	pb := newFakePlayback()
	c := New(testHandshake(), dialer, pb, Config{Attempts: 1, Backoff: time.Millisecond})

	_, _ = startController(t, c)
	waitReady(t, c)

	dialer.Remote.PushEvent(xapi.MessageReceived{Text: `{"link":"https://cdn.example.com/stream-2.m3u8"}`})
	require.Eventually(t, func() bool {
		return pb.lastLoaded() == "https://cdn.example.com/stream-2.m3u8"
	}, time.Second, time.Millisecond)
	assert.False(t, pb.Paused())
}

func TestMalformedMessageIgnored(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	pb := newFakePlayback()
	hs := testHandshake()
	c := New(hs, dialer, pb, Config{Attempts: 1, Backoff: time.Millisecond})

	_, _ = startController(t, c)
	waitReady(t, c)

	dialer.Remote.PushEvent(xapi.MessageReceived{Text: "not json"})
	dialer.Remote.PushEvent(xapi.MessageReceived{Text: `{"other":"field"}`})

	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "iptv-playercontrols-togglemute"})
	require.Eventually(t, pb.Muted, time.Second, time.Millisecond)
	assert.Equal(t, hs.Link, pb.lastLoaded())
}

func TestAudioEventsReflectToWidgets(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	pb := newFakePlayback()
	c := New(testHandshake(), dialer, pb, Config{Attempts: 1, Backoff: time.Millisecond})

	_, _ = startController(t, c)
	waitReady(t, c)

	// Initial sync mirrors the player's starting volume.
	require.Eventually(t, func() bool {
		return dialer.Remote.WidgetValue("iptv-playercontrols-volume") == "255"
	}, time.Second, time.Millisecond)

	pb.events <- AudioEvent{Volume: 0.5, Muted: false}
	require.Eventually(t, func() bool {
		return dialer.Remote.WidgetValue("iptv-playercontrols-volume") == "128"
	}, time.Second, time.Millisecond)
	assert.Equal(t, "inactive", dialer.Remote.WidgetValue("iptv-playercontrols-togglemute"))

	// A muted player presents a zeroed slider regardless of volume.
	pb.events <- AudioEvent{Volume: 0.5, Muted: true}
	require.Eventually(t, func() bool {
		return dialer.Remote.WidgetValue("iptv-playercontrols-togglemute") == "active"
	}, time.Second, time.Millisecond)
	assert.Equal(t, "0", dialer.Remote.WidgetValue("iptv-playercontrols-volume"))
}

func TestClosedPlaybackStreamKeepsLoopResponsive(t *testing.T) {
	dialer := &xapitest.FakeDialer{}
	pb := newFakePlayback()
	c := New(testHandshake(), dialer, pb, Config{Attempts: 1, Backoff: time.Millisecond})

	_, done := startController(t, c)
	waitReady(t, c)

	close(pb.events)

	// Remote events must still be served after playback stops emitting.
	dialer.Remote.PushEvent(xapi.WidgetClicked{WidgetID: "iptv-playercontrols-playpause"})
	require.Eventually(t, pb.Paused, time.Second, time.Millisecond)

	dialer.Remote.CloseEvents()
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, c.State())
}

func TestConfigDefaultsApplied(t *testing.T) {
	c := New(testHandshake(), &xapitest.FakeDialer{}, newFakePlayback(), Config{})
	assert.Equal(t, 3, c.cfg.Attempts)
	assert.Equal(t, 300*time.Millisecond, c.cfg.Backoff)
	assert.Equal(t, StateConnecting, c.State())
}

func TestConnectCancelledDuringBackoff(t *testing.T) {
	dialer := &xapitest.FakeDialer{FailFirst: 10}
	c := New(testHandshake(), dialer, newFakePlayback(), Config{Attempts: 3, Backoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return dialer.DialCount() >= 1 }, time.Second, time.Millisecond)
	cancel()

	err := <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, ErrConnectFailed))
	assert.Equal(t, StateFailed, c.State())
}
