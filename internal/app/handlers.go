// SPDX-License-Identifier: MIT
package app

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/wxsd-sales/iptv-bridge/internal/control"
	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/metrics"
	"github.com/wxsd-sales/iptv-bridge/internal/playlist"
	"github.com/wxsd-sales/iptv-bridge/internal/ui"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

func (c *Controller) handleEvent(ctx context.Context, e xapi.Event) {
	switch ev := e.(type) {
	case xapi.WidgetClicked:
		c.handleClicked(ctx, ev)
	case xapi.WidgetReleased:
		c.handleReleased(ctx, ev)
	case xapi.PageOpened:
		c.handlePageOpened(ev)
	case xapi.PageClosed:
		c.handlePageClosed(ctx, ev)
	case xapi.WebViewStatus:
		c.handleWebViewStatus(ctx, ev)
	case xapi.PeerGhosted:
		c.handleGhosted(ctx, ev)
	case xapi.VolumeChanged:
		c.reflectVolume(ctx, ev.Level)
	case xapi.MuteChanged:
		c.reflectMute(ctx, ev.Muted)
	}
}

func (c *Controller) handleClicked(ctx context.Context, ev xapi.WidgetClicked) {
	id, err := c.parseOwnID(ev.WidgetID)
	if err != nil {
		return
	}

	switch {
	case id.Category == control.CategoryChannels && id.Action == control.ActionSelect && id.Option >= 0:
		c.selectChannel(ctx, id.Location, id.Option)
	case id.Category == control.CategoryPlayerControls && id.Action == control.ActionClose:
		c.closePlayer(ctx, "user_close")
	case id.Category == control.CategoryPlayerControls && id.Action == control.ActionChangeChannel:
		c.stepChannel(ctx, ev.Value)
	case id.Category == control.CategoryDeviceControls && id.Action == control.ActionToggleMute:
		_ = c.device.ToggleMute(ctx)
	}
}

func (c *Controller) handleReleased(ctx context.Context, ev xapi.WidgetReleased) {
	id, err := c.parseOwnID(ev.WidgetID)
	if err != nil {
		return
	}
	if id.Category != control.CategoryDeviceControls || id.Action != control.ActionVolume {
		return
	}
	slider, err := strconv.Atoi(ev.Value)
	if err != nil {
		return
	}
	_ = c.device.SetVolume(ctx, control.SliderToPercent(slider))
}

// selectChannel either starts a new player session or, when a player is
// already up, retargets it with a channel-switch message.
func (c *Controller) selectChannel(ctx context.Context, location string, index int) {
	logger := xglog.WithComponentFromContext(ctx, "app")

	c.mu.Lock()
	if index < 0 || index >= len(c.channels) {
		c.mu.Unlock()
		metrics.RecordEventDropped("channel_out_of_range")
		return
	}
	c.selected = index
	channel := c.channels[index]
	c.mu.Unlock()

	logger.Info().
		Str(xglog.FieldChannel, channel.Name).
		Int(xglog.FieldChannelIndex, index).
		Msg("channel selected")

	if c.playerOpen(ctx) {
		c.sendChannel(ctx, channel)
		return
	}
	c.openPlayer(ctx, location, channel)
}

// stepChannel handles the channel up/down spinner with wraparound. It
// is a no-op without an open player.
func (c *Controller) stepChannel(ctx context.Context, value string) {
	if !c.playerOpen(ctx) {
		return
	}

	c.mu.Lock()
	if len(c.channels) == 0 {
		c.mu.Unlock()
		return
	}
	switch value {
	case control.SpinnerIncrement:
		c.selected = (c.selected + 1) % len(c.channels)
	case control.SpinnerDecrement:
		c.selected = (c.selected - 1 + len(c.channels)) % len(c.channels)
	default:
		c.mu.Unlock()
		return
	}
	channel := c.channels[c.selected]
	c.mu.Unlock()

	c.sendChannel(ctx, channel)
}

// sendChannel pushes a channel-switch message to the connected player.
func (c *Controller) sendChannel(ctx context.Context, channel playlist.Channel) {
	payload, err := json.Marshal(channel)
	if err != nil {
		return
	}
	if err := c.device.SendMessage(ctx, string(payload)); err != nil {
		logger := xglog.WithComponentFromContext(ctx, "app")
		logger.Warn().Err(err).
			Str(xglog.FieldChannel, channel.Name).
			Msg("channel switch message failed")
		return
	}
	metrics.RecordChannelSwitch()
}

// openPlayer issues a fresh scoped credential, opens the player surface
// with the handshake token and switches the UI to the controls state.
func (c *Controller) openPlayer(ctx context.Context, location string, channel playlist.Channel) {
	logger := xglog.WithComponentFromContext(ctx, "app")

	sess, err := c.issuer.Issue(ctx, channel.Link)
	if err != nil {
		logger.Error().Err(err).
			Str(xglog.FieldChannel, channel.Name).
			Msg("session issue failed")
		return
	}

	// Opening the web view navigates away from the panel on touch
	// devices; the resulting close event must not tear the player down.
	c.suppress.Arm()

	url := c.cfg.PlayerURL + "#" + sess.Handshake.Encode()
	if err := c.device.DisplayWebView(ctx, channel.Name, url); err != nil {
		logger.Error().Err(err).Msg("web view display failed")
		_ = c.issuer.Revoke(ctx)
		metrics.RecordSessionEnded("open_failed")
		return
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	if err := c.renderPanels(ctx, ui.StateControls); err != nil {
		logger.Warn().Err(err).Msg("controls panel render failed")
	}
	panelID := c.renderer.PanelID(location)
	if err := c.device.OpenPanel(ctx, panelID, c.renderer.ControlsPageID(location)); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldPanelID, panelID).Msg("controls page open failed")
	}
}

// closePlayer clears the player surface and returns the UI to the
// browse state.
func (c *Controller) closePlayer(ctx context.Context, reason string) {
	logger := xglog.WithComponentFromContext(ctx, "app")
	logger.Info().Str("reason", reason).Msg("closing player")

	if err := c.device.ClearWebViews(ctx); err != nil {
		logger.Warn().Err(err).Msg("web view clear failed")
	}
	if c.cfg.AutoDeleteWebCache {
		if err := c.device.DeleteWebStorage(ctx); err != nil {
			logger.Warn().Err(err).Msg("web storage wipe failed")
		}
	}

	c.mu.Lock()
	hadSession := c.sess != nil
	c.sess = nil
	c.mu.Unlock()

	if hadSession {
		// The scoped account dies with the session; the player surface
		// going away is not enough on its own.
		if err := c.issuer.Revoke(ctx); err != nil {
			logger.Warn().Err(err).Msg("session revoke failed")
		}
		metrics.RecordSessionEnded(reason)
	}
	if err := c.renderPanels(ctx, ui.StateBrowse); err != nil {
		logger.Warn().Err(err).Msg("browse panel render failed")
	}
}

func (c *Controller) handlePageOpened(ev xapi.PageOpened) {
	if !control.OwnsPage(ev.PageID, c.cfg.PanelID) {
		return
	}
	c.mu.Lock()
	c.panelOpen = true
	c.mu.Unlock()
}

// handlePageClosed tears the player down when the user closes the panel
// on a paired controller. Page closes caused by opening the player, by
// an active call, or by mere page navigation are ignored.
func (c *Controller) handlePageClosed(ctx context.Context, ev xapi.PageClosed) {
	if !c.cfg.CloseWithPanel {
		return
	}
	if !control.OwnsPage(ev.PageID, c.cfg.PanelID) {
		return
	}
	if c.suppress.Consume() {
		return
	}

	// Without a paired touch controller the page close events from the
	// main display are not trustworthy.
	controllers, err := c.device.TouchControllers(ctx)
	if err != nil || controllers == 0 {
		return
	}

	c.mu.Lock()
	c.panelOpen = false
	c.mu.Unlock()

	if calls, err := c.device.ActiveCalls(ctx); err == nil && calls >= 1 {
		return
	}

	// Re-check after a grace period: switching pages fires a close
	// followed by an open.
	time.AfterFunc(c.cfg.CloseDelay, func() {
		c.mu.Lock()
		reopened := c.panelOpen
		c.mu.Unlock()
		if reopened {
			return
		}
		c.closePlayer(ctx, "panel_closed")
	})
}

func (c *Controller) handleWebViewStatus(ctx context.Context, ev xapi.WebViewStatus) {
	if c.ghosts.Observe(ev.View) {
		logger := xglog.WithComponentFromContext(ctx, "app")
		logger.Debug().
			Str(xglog.FieldWebViewID, ev.View.ID).
			Msg("tracking player surface")
	}
}

// handleGhosted reacts to a tracked player surface vanishing without a
// close command: revoke the credential and reset the UI.
func (c *Controller) handleGhosted(ctx context.Context, ev xapi.PeerGhosted) {
	if !c.ghosts.Ghosted(ev.WebViewID) {
		return
	}
	logger := xglog.WithComponentFromContext(ctx, "app")
	logger.Warn().
		Str(xglog.FieldWebViewID, ev.WebViewID).
		Str("event", "session.ghosted").
		Msg("player surface ghosted, cleaning up")

	if err := c.device.ClearWebViews(ctx); err != nil {
		logger.Warn().Err(err).Msg("web view clear failed")
	}
	if err := c.issuer.Revoke(ctx); err != nil {
		logger.Warn().Err(err).Msg("ghost cleanup revoke failed")
	}

	c.mu.Lock()
	hadSession := c.sess != nil
	c.sess = nil
	c.mu.Unlock()

	if hadSession {
		metrics.RecordSessionEnded("ghost")
	}
	if err := c.renderPanels(ctx, ui.StateBrowse); err != nil {
		logger.Warn().Err(err).Msg("browse panel render failed")
	}
}

func (c *Controller) parseOwnID(raw string) (control.WidgetID, error) {
	id, err := control.ParseWidgetID(raw, c.cfg.PanelID)
	if err != nil {
		if errors.Is(err, control.ErrForeignPanel) {
			metrics.RecordEventDropped("foreign_panel")
		} else {
			metrics.RecordEventDropped("malformed_id")
		}
		logger := xglog.WithComponent("app")
		logger.Debug().Str(xglog.FieldWidgetID, raw).Msg("widget event dropped")
		return control.WidgetID{}, err
	}
	return id, nil
}
