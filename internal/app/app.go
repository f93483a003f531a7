// SPDX-License-Identifier: MIT

// Package app is the device-resident controller. It owns the channel
// list and session state, renders the UI panels, and runs the single
// event loop that every device event funnels through.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wxsd-sales/iptv-bridge/internal/control"
	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/metrics"
	"github.com/wxsd-sales/iptv-bridge/internal/playlist"
	"github.com/wxsd-sales/iptv-bridge/internal/probe"
	"github.com/wxsd-sales/iptv-bridge/internal/session"
	"github.com/wxsd-sales/iptv-bridge/internal/ui"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

// Config is the device-side application configuration.
type Config struct {
	PanelID    string
	Username   string
	PlayerURL  string
	ButtonName string
	Color      string
	Icon       string
	ShowInCall bool

	ValidateStreams    bool
	CloseWithPanel     bool
	AutoDeleteWebCache bool

	// SuppressTTL bounds how long a page-close event is ignored after
	// opening the player surface. Zero uses the default.
	SuppressTTL time.Duration
	// CloseDelay is the grace period before a panel close tears the
	// player down, so page navigation does not count as a close.
	CloseDelay time.Duration

	// OnReady, when set, is called once the startup sequence finishes
	// and the event loop is about to run.
	OnReady func()
}

const defaultCloseDelay = 300 * time.Millisecond

// Controller drives the device side of the bridge.
type Controller struct {
	cfg       Config
	device    xapi.Device
	fetcher   *playlist.Fetcher
	validator *probe.Validator
	issuer    *session.Issuer
	renderer  *ui.Renderer
	ghosts    *control.GhostTable
	suppress  *control.SuppressToken

	mu        sync.Mutex
	channels  []playlist.Channel
	selected  int
	sess      *session.Session
	panelOpen bool
	uiState   ui.State
}

// New wires a Controller. validator may be nil when stream validation
// is disabled.
func New(device xapi.Device, fetcher *playlist.Fetcher, validator *probe.Validator, cfg Config) *Controller {
	if cfg.CloseDelay <= 0 {
		cfg.CloseDelay = defaultCloseDelay
	}
	return &Controller{
		cfg:       cfg,
		device:    device,
		fetcher:   fetcher,
		validator: validator,
		issuer:    session.NewIssuer(device, device, cfg.Username, cfg.PanelID),
		renderer: ui.NewRenderer(ui.Config{
			PanelID:    cfg.PanelID,
			ButtonName: cfg.ButtonName,
			Color:      cfg.Color,
			Icon:       cfg.Icon,
			ShowInCall: cfg.ShowInCall,
		}),
		ghosts:   control.NewGhostTable(cfg.PlayerURL),
		suppress: control.NewSuppressToken(cfg.SuppressTTL),
		uiState:  ui.StateLoading,
	}
}

// Channels returns the current channel list.
func (c *Controller) Channels() []playlist.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]playlist.Channel(nil), c.channels...)
}

// ChannelCount returns the number of loaded channels.
func (c *Controller) ChannelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}

// Selected returns the index of the last selected channel.
func (c *Controller) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// UIState returns the currently rendered panel state.
func (c *Controller) UIState() ui.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uiState
}

// Run performs startup and processes device events until the stream
// ends or ctx is cancelled.
func (c *Controller) Run(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "app")

	if err := c.startup(ctx); err != nil {
		return err
	}

	events, err := c.device.Events(ctx)
	if err != nil {
		return fmt.Errorf("subscribe device events: %w", err)
	}
	if c.cfg.OnReady != nil {
		c.cfg.OnReady()
	}
	logger.Info().Str("event", "app.ready").Msg("event loop running")

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				logger.Info().Msg("device event stream ended")
				return nil
			}
			c.handleEvent(ctx, e)
		}
	}
}

// startup renders the loading UI, loads and optionally validates the
// channel list, cleans up a leftover account and lands on the browse
// or controls state depending on an already-open player.
func (c *Controller) startup(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "app")

	if err := c.renderPanels(ctx, ui.StateLoading); err != nil {
		return fmt.Errorf("render loading panels: %w", err)
	}

	channels, stale, err := c.fetcher.Refresh(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("playlist unavailable, starting with empty list")
	} else if stale {
		logger.Warn().Msg("playlist fetch failed, serving cached channels")
	}

	if c.cfg.ValidateStreams && c.validator != nil && len(channels) > 0 {
		channels = c.validator.ValidateAll(ctx, channels, func(done, total int) {
			c.setLoadingText(ctx, fmt.Sprintf("Validating and filtering channels: [ %d / %d ] Please wait", done, total))
		})
		metrics.RecordChannelsValid(len(channels))
	}

	c.mu.Lock()
	c.channels = channels
	c.selected = 0
	c.mu.Unlock()

	// A scoped account surviving a restart belongs to no live session.
	if exists, err := c.device.UserExists(ctx, c.cfg.Username); err == nil && exists {
		logger.Info().Str(xglog.FieldUsername, c.cfg.Username).Msg("removing leftover session account")
		if err := c.issuer.Revoke(ctx); err != nil {
			logger.Warn().Err(err).Msg("startup account cleanup failed")
		}
	}

	state := ui.StateBrowse
	if c.playerOpen(ctx) {
		state = ui.StateControls
	}
	if err := c.renderPanels(ctx, state); err != nil {
		return fmt.Errorf("render panels: %w", err)
	}

	logger.Info().
		Int("channels", len(channels)).
		Str(xglog.FieldNewState, string(state)).
		Str("event", "app.started").
		Msg("startup complete")
	return nil
}

// renderPanels writes the panel document for every surface, preserving
// an installed panel's home screen order.
func (c *Controller) renderPanels(ctx context.Context, state ui.State) error {
	c.mu.Lock()
	channels := c.channels
	c.uiState = state
	c.mu.Unlock()

	for _, location := range c.renderer.Locations() {
		panelID := c.renderer.PanelID(location)
		order := ui.QueryOrder(ctx, c.device, panelID)
		xml := c.renderer.Panel(state, location, channels, order)
		if err := c.device.SavePanel(ctx, panelID, xml); err != nil {
			return fmt.Errorf("save panel %q: %w", panelID, err)
		}
	}

	// Saving a panel resets its widgets to defaults, so the native
	// audio state has to be pushed again after every render.
	c.syncAudioWidgets(ctx)
	return nil
}

// playerOpen reports whether a player surface is currently displayed.
func (c *Controller) playerOpen(ctx context.Context) bool {
	views, err := c.device.ListWebViews(ctx)
	if err != nil {
		return false
	}
	for _, v := range views {
		if strings.HasPrefix(v.URL, c.cfg.PlayerURL) {
			return true
		}
	}
	return false
}

func (c *Controller) setLoadingText(ctx context.Context, text string) {
	_ = c.device.SetWidgetValue(ctx, c.renderer.LoadingTextWidgetID(), text)
}

// syncAudioWidgets pushes the native volume and mute state onto the
// device audio widget pair.
func (c *Controller) syncAudioWidgets(ctx context.Context) {
	if level, err := c.device.Volume(ctx); err == nil {
		c.reflectVolume(ctx, level)
	}
	if muted, err := c.device.Muted(ctx); err == nil {
		c.reflectMute(ctx, muted)
	}
}

func (c *Controller) reflectVolume(ctx context.Context, level int) {
	id := control.FormatWidgetID(c.cfg.PanelID, "", control.CategoryDeviceControls, control.ActionVolume)
	_ = c.device.SetWidgetValue(ctx, id, fmt.Sprintf("%d", control.PercentToSlider(level)))
}

func (c *Controller) reflectMute(ctx context.Context, muted bool) {
	value := "inactive"
	if muted {
		value = "active"
	}
	id := control.FormatWidgetID(c.cfg.PanelID, "", control.CategoryDeviceControls, control.ActionToggleMute)
	_ = c.device.SetWidgetValue(ctx, id, value)
}
