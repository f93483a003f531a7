// SPDX-License-Identifier: MIT
package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/wxsd-sales/iptv-bridge/internal/control"
	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/metrics"
	"github.com/wxsd-sales/iptv-bridge/internal/session"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

// State of the remote connection, per session.
type State int

const (
	StateConnecting State = iota
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config bounds the connection retry behaviour.
type Config struct {
	Attempts int           // connection attempts before Failed
	Backoff  time.Duration // fixed delay between attempts
}

// DefaultConfig returns the retry settings used in production.
func DefaultConfig() Config {
	return Config{Attempts: 3, Backoff: 300 * time.Millisecond}
}

// ErrConnectFailed is returned when the retry budget is exhausted.
var ErrConnectFailed = errors.New("player connection failed")

// Controller drives one player session from handshake to close.
type Controller struct {
	hs       session.Handshake
	dialer   xapi.Dialer
	playback Playback
	cfg      Config

	mu    sync.Mutex
	state State
}

// New builds a Controller from a decoded handshake.
func New(hs session.Handshake, dialer xapi.Dialer, playback Playback, cfg Config) *Controller {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultConfig().Attempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultConfig().Backoff
	}
	return &Controller{
		hs:       hs,
		dialer:   dialer,
		playback: playback,
		cfg:      cfg,
		state:    StateConnecting,
	}
}

// State returns the current connection state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(ctx context.Context, s State) {
	c.mu.Lock()
	old := c.state
	c.state = s
	c.mu.Unlock()
	if old != s {
		logger := xglog.WithComponentFromContext(ctx, "player")
		logger.Info().
			Str(xglog.FieldOldState, old.String()).
			Str(xglog.FieldNewState, s.String()).
			Str(xglog.FieldPanelID, c.hs.PanelID).
			Msg("connection state changed")
	}
}

// Run starts playback, connects back to the device and processes events
// until the stream ends or ctx is cancelled. It returns ErrConnectFailed
// when the retry budget runs out; a normal close returns nil.
func (c *Controller) Run(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "player")

	// Autoplay the initial target while the control link comes up.
	c.playback.Load(c.hs.Link)
	c.playback.Play()

	remote, err := c.connect(ctx)
	if err != nil {
		c.setState(ctx, StateFailed)
		return err
	}
	defer remote.Close()

	c.setState(ctx, StateReady)
	c.syncAudioWidgets(ctx, remote)

	events, err := remote.Events(ctx)
	if err != nil {
		c.setState(ctx, StateFailed)
		return fmt.Errorf("subscribe events: %w", err)
	}

	// Held in a variable so the case can be disabled with a nil channel
	// once playback stops emitting.
	audio := c.playback.Events()

	for {
		select {
		case <-ctx.Done():
			c.setState(ctx, StateClosed)
			return nil
		case ae, ok := <-audio:
			if !ok {
				audio = nil
				continue
			}
			c.reflectAudio(ctx, remote, ae)
		case e, ok := <-events:
			if !ok {
				logger.Info().Msg("remote event stream ended")
				c.setState(ctx, StateClosed)
				return nil
			}
			c.handleEvent(ctx, remote, e)
		}
	}
}

// connect dials with a fixed backoff until the attempt budget runs out.
func (c *Controller) connect(ctx context.Context) (xapi.Remote, error) {
	logger := xglog.WithComponentFromContext(ctx, "player")

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		remote, err := c.dialer.Dial(ctx, c.hs.IPAddress, c.hs.Username, c.hs.Password)
		metrics.RecordPlayerConnAttempt(err)
		if err == nil {
			return remote, nil
		}
		lastErr = err
		logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("budget", c.cfg.Attempts).
			Str("address", c.hs.IPAddress).
			Msg("connection attempt failed")

		if attempt == c.cfg.Attempts {
			break
		}
		select {
		case <-time.After(c.cfg.Backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrConnectFailed, c.cfg.Attempts, lastErr)
}

func (c *Controller) handleEvent(ctx context.Context, remote xapi.Remote, e xapi.Event) {
	switch ev := e.(type) {
	case xapi.WidgetClicked:
		c.handleClick(ctx, remote, ev)
	case xapi.WidgetReleased:
		c.handleRelease(ctx, ev)
	case xapi.MessageReceived:
		c.handleMessage(ctx, ev)
	}
}

func (c *Controller) handleClick(ctx context.Context, remote xapi.Remote, ev xapi.WidgetClicked) {
	id, err := c.parseOwnID(ev.WidgetID)
	if err != nil {
		return
	}

	switch id.Action {
	case control.ActionToggleMute:
		c.playback.SetMuted(!c.playback.Muted())
	case control.ActionPlayPause:
		if c.playback.Paused() {
			c.playback.Play()
			c.setPlayPauseWidget(ctx, remote, false)
		} else {
			c.playback.Pause()
			c.setPlayPauseWidget(ctx, remote, true)
		}
	}
}

func (c *Controller) handleRelease(ctx context.Context, ev xapi.WidgetReleased) {
	id, err := c.parseOwnID(ev.WidgetID)
	if err != nil || id.Action != control.ActionVolume {
		return
	}
	slider, err := parseSlider(ev.Value)
	if err != nil {
		return
	}
	c.playback.SetVolume(control.SliderToUnit(slider))
}

// handleMessage retargets an already-open player when the device pushes
// a channel-switch message.
func (c *Controller) handleMessage(ctx context.Context, ev xapi.MessageReceived) {
	var msg struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal([]byte(ev.Text), &msg); err != nil || msg.Link == "" {
		return
	}
	logger := xglog.WithComponentFromContext(ctx, "player")
	logger.Info().
		Str(xglog.FieldLink, msg.Link).
		Msg("retargeting playback")
	c.playback.Load(msg.Link)
	c.playback.Play()
}

func (c *Controller) parseOwnID(raw string) (control.WidgetID, error) {
	id, err := control.ParseWidgetID(raw, c.hs.PanelID)
	if err != nil {
		if errors.Is(err, control.ErrForeignPanel) {
			metrics.RecordEventDropped("foreign_panel")
		} else {
			metrics.RecordEventDropped("malformed_id")
		}
		return control.WidgetID{}, err
	}
	if id.Category != control.CategoryPlayerControls {
		return control.WidgetID{}, control.ErrMalformedID
	}
	return id, nil
}

// syncAudioWidgets pushes the player's current audio state to the
// control widgets right after connecting.
func (c *Controller) syncAudioWidgets(ctx context.Context, remote xapi.Remote) {
	c.reflectAudio(ctx, remote, AudioEvent{
		Volume: c.playback.Volume(),
		Muted:  c.playback.Muted(),
	})
}

// reflectAudio mirrors a player-side audio change onto the player
// control widgets. A muted player shows a zeroed slider.
func (c *Controller) reflectAudio(ctx context.Context, remote xapi.Remote, ae AudioEvent) {
	muteValue := "inactive"
	slider := control.UnitToSlider(ae.Volume)
	if ae.Muted {
		muteValue = "active"
		slider = 0
	}
	mID := control.FormatWidgetID(c.hs.PanelID, "", control.CategoryPlayerControls, control.ActionToggleMute)
	vID := control.FormatWidgetID(c.hs.PanelID, "", control.CategoryPlayerControls, control.ActionVolume)
	_ = remote.SetWidgetValue(ctx, mID, muteValue)
	_ = remote.SetWidgetValue(ctx, vID, strconv.Itoa(slider))
}

func (c *Controller) setPlayPauseWidget(ctx context.Context, remote xapi.Remote, paused bool) {
	value := "inactive"
	if paused {
		value = "active"
	}
	id := control.FormatWidgetID(c.hs.PanelID, "", control.CategoryPlayerControls, control.ActionPlayPause)
	_ = remote.SetWidgetValue(ctx, id, value)
}

func parseSlider(value string) (int, error) {
	return strconv.Atoi(value)
}
