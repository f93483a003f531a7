// SPDX-License-Identifier: MIT

// Package ui projects application state into the declarative panel
// document the host renders. It holds no business logic: callers decide
// the state, ui decides the markup.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/wxsd-sales/iptv-bridge/internal/control"
	"github.com/wxsd-sales/iptv-bridge/internal/playlist"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

// State selects which page set a panel shows.
type State string

const (
	StateLoading  State = "loading"
	StateBrowse   State = "content"
	StateControls State = "controls"
)

// Surfaces a panel can be installed on.
const (
	LocationHomeScreen         = "HomeScreen"
	LocationHomeScreenAndCalls = "HomeScreenAndCallControls"
	LocationControlPanel       = "ControlPanel"
)

// Config describes the button identity of the app on the home screen.
type Config struct {
	PanelID    string
	ButtonName string
	Color      string
	Icon       string
	ShowInCall bool
}

// Renderer builds panel documents for one configured app instance.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a Renderer.
func NewRenderer(cfg Config) *Renderer {
	return &Renderer{cfg: cfg}
}

// Locations returns the surfaces every render targets.
func (r *Renderer) Locations() []string {
	home := LocationHomeScreen
	if r.cfg.ShowInCall {
		home = LocationHomeScreenAndCalls
	}
	return []string{home, LocationControlPanel}
}

// PanelID returns the installed panel id for a location.
func (r *Renderer) PanelID(location string) string {
	return r.cfg.PanelID + location
}

// Panel renders the full panel document for a state. order preserves an
// existing panel's position; pass -1 for default placement.
func (r *Renderer) Panel(state State, location string, channels []playlist.Channel, order int) string {
	var pages string
	switch state {
	case StateLoading:
		pages = r.loadingPage()
	case StateBrowse:
		pages = r.channelsPage(location, channels) + r.controlsPage(location, false)
	case StateControls:
		pages = r.channelsPage(location, channels) + r.controlsPage(location, true)
	}

	orderTag := ""
	if order >= 0 {
		orderTag = fmt.Sprintf("<Order>%d</Order>", order)
	}

	return fmt.Sprintf(
		`<Extensions><Panel>`+
			`<Location>%s</Location>`+
			`<Icon>%s</Icon>`+
			`<Color>%s</Color>`+
			`<Name>%s</Name>`+
			`%s`+
			`<ActivityType>Custom</ActivityType>`+
			`%s`+
			`</Panel></Extensions>`,
		location, escape(r.cfg.Icon), escape(r.cfg.Color), escape(r.cfg.ButtonName), orderTag, pages)
}

// ChannelsPageID identifies the browse page on a surface.
func (r *Renderer) ChannelsPageID(location string) string {
	return r.cfg.PanelID + location + "-channels"
}

// ControlsPageID identifies the now-playing page on a surface.
func (r *Renderer) ControlsPageID(location string) string {
	return r.cfg.PanelID + location + "-controls"
}

// LoadingTextWidgetID is where validation progress text lands.
func (r *Renderer) LoadingTextWidgetID() string {
	return control.FormatWidgetID(r.cfg.PanelID, "", control.CategoryLoading, control.ActionText)
}

func (r *Renderer) loadingPage() string {
	return fmt.Sprintf(
		`<Page><Name>Loading</Name>%s<PageId>%s</PageId><Options>hideRowNames=1</Options></Page>`,
		row(textWidget(r.LoadingTextWidgetID(), "IPTV Channel List is loading...", "size=3;fontSize=normal;align=center")),
		r.cfg.PanelID+"-channels")
}

func (r *Renderer) channelsPage(location string, channels []playlist.Channel) string {
	var rows strings.Builder
	if len(channels) == 0 {
		rows.WriteString(row(textWidget(
			control.FormatWidgetID(r.cfg.PanelID, "", "channels", "empty"),
			"No Content Available", "size=4;fontSize=normal;align=center")))
	} else {
		for i, ch := range channels {
			id := control.FormatOptionWidgetID(r.cfg.PanelID, location, control.CategoryChannels, control.ActionSelect, i)
			rows.WriteString(row(buttonWidget(id, escape(ch.Name), "size=3")))
		}
	}
	return fmt.Sprintf(
		`<Page><Name>Channels</Name>%s<PageId>%s</PageId><Options>hideRowNames=1</Options></Page>`,
		rows.String(), r.ChannelsPageID(location))
}

func (r *Renderer) controlsPage(location string, playerOpen bool) string {
	pid := r.cfg.PanelID
	var b strings.Builder

	if playerOpen {
		b.WriteString(row(
			buttonWidget(control.FormatWidgetID(pid, "", control.CategoryPlayerControls, control.ActionPlayPause), "", "size=1;icon=play_pause"),
			spinnerWidget(control.FormatWidgetID(pid, "", control.CategoryPlayerControls, control.ActionChangeChannel), "size=2;style=vertical"),
		))
		b.WriteString(row(textWidget(
			control.FormatWidgetID(pid, "", "text", "playeraudio"),
			"Player Audio Controls", "size=3;fontSize=normal;align=center")))
		b.WriteString(row(
			buttonWidget(control.FormatWidgetID(pid, "", control.CategoryPlayerControls, control.ActionToggleMute), "", "size=1;icon=volume_muted"),
			sliderWidget(control.FormatWidgetID(pid, "", control.CategoryPlayerControls, control.ActionVolume), "size=3"),
		))
	} else {
		b.WriteString(row(textWidget(
			control.FormatWidgetID(pid, "", "text", "playerclosed"),
			"Player Closed. Please select a channel", "size=3;fontSize=normal;align=center")))
	}

	b.WriteString(row(textWidget(
		control.FormatWidgetID(pid, "", "text", "deviceaudio"),
		"Device Audio Controls", "size=3;fontSize=normal;align=center")))
	b.WriteString(row(
		buttonWidget(control.FormatWidgetID(pid, "", control.CategoryDeviceControls, control.ActionToggleMute), "", "size=1;icon=volume_muted"),
		sliderWidget(control.FormatWidgetID(pid, "", control.CategoryDeviceControls, control.ActionVolume), "size=3"),
	))

	if playerOpen {
		b.WriteString(row(buttonWidget(
			control.FormatWidgetID(pid, "", control.CategoryPlayerControls, control.ActionClose),
			"Close Content", "size=4")))
	}

	return fmt.Sprintf(
		`<Page><Name>Controls</Name>%s<PageId>%s</PageId><Options>hideRowNames=1</Options></Page>`,
		b.String(), r.ControlsPageID(location))
}

// QueryOrder looks up the installed order of a panel so a re-render
// does not shuffle the home screen. Returns -1 when the panel is new.
func QueryOrder(ctx context.Context, panels xapi.Panels, panelID string) int {
	installed, err := panels.ListPanels(ctx)
	if err != nil {
		return -1
	}
	for _, p := range installed {
		if p.PanelID == panelID {
			return p.Order
		}
	}
	return -1
}

func row(widgets ...string) string {
	return "<Row>" + strings.Join(widgets, "") + "</Row>"
}

func textWidget(id, name, options string) string {
	return fmt.Sprintf(`<Widget><WidgetId>%s</WidgetId><Name>%s</Name><Type>Text</Type><Options>%s</Options></Widget>`, id, name, options)
}

func buttonWidget(id, name, options string) string {
	nameTag := ""
	if name != "" {
		nameTag = "<Name>" + name + "</Name>"
	}
	return fmt.Sprintf(`<Widget><WidgetId>%s</WidgetId>%s<Type>Button</Type><Options>%s</Options></Widget>`, id, nameTag, options)
}

func sliderWidget(id, options string) string {
	return fmt.Sprintf(`<Widget><WidgetId>%s</WidgetId><Type>Slider</Type><Options>%s</Options></Widget>`, id, options)
}

func spinnerWidget(id, options string) string {
	return fmt.Sprintf(`<Widget><WidgetId>%s</WidgetId><Type>Spinner</Type><Options>%s</Options></Widget>`, id, options)
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string {
	return escaper.Replace(s)
}
