// SPDX-License-Identifier: MIT

// Package loopback provides an in-memory device transport. It backs
// demo deployments and soak testing where no physical endpoint is
// reachable: commands mutate local state and the event stream stays
// open but quiet until something pushes into it.
package loopback

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

func init() {
	xapi.RegisterDriver("loopback", func(_ context.Context, dsn string) (xapi.Device, error) {
		return New(dsn), nil
	})
}

// Device is an in-memory xapi.Device.
type Device struct {
	mu sync.Mutex

	address string
	users   map[string]string
	roles   map[string][]string
	panels  map[string]string
	orders  map[string]int
	widgets map[string]string
	views   []xapi.WebView

	volume int
	muted  bool

	events chan xapi.Event
	logger zerolog.Logger
}

// New builds a loopback device. dsn, when non-empty, is used as the
// device's reported IPv4 address.
func New(dsn string) *Device {
	address := dsn
	if address == "" {
		address = "127.0.0.1"
	}
	return &Device{
		address: address,
		users:   map[string]string{},
		roles:   map[string][]string{},
		panels:  map[string]string{},
		orders:  map[string]int{},
		widgets: map[string]string{},
		volume:  50,
		events:  make(chan xapi.Event, 64),
		logger:  xglog.WithComponent("loopback"),
	}
}

// Push injects an event into the device stream, e.g. from a soak
// harness driving the controller.
func (d *Device) Push(e xapi.Event) {
	d.events <- e
}

func (d *Device) CreateUser(_ context.Context, username, passphrase string, roles []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[username]; ok {
		return xapi.ErrUserExists
	}
	d.users[username] = passphrase
	d.roles[username] = roles
	return nil
}

func (d *Device) SetPassphrase(_ context.Context, username, passphrase string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[username]; !ok {
		return xapi.ErrUserNotFound
	}
	d.users[username] = passphrase
	return nil
}

func (d *Device) DeleteUser(_ context.Context, username string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[username]; !ok {
		return xapi.ErrUserNotFound
	}
	delete(d.users, username)
	delete(d.roles, username)
	return nil
}

func (d *Device) UserExists(_ context.Context, username string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[username]
	return ok, nil
}

func (d *Device) SavePanel(_ context.Context, panelID, xml string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.panels[panelID] = xml
	if _, ok := d.orders[panelID]; !ok {
		d.orders[panelID] = len(d.orders) + 1
	}
	d.logger.Debug().Str(xglog.FieldPanelID, panelID).Msg("panel saved")
	return nil
}

func (d *Device) OpenPanel(_ context.Context, panelID, pageID string) error {
	d.logger.Debug().
		Str(xglog.FieldPanelID, panelID).
		Str("page_id", pageID).
		Msg("panel opened")
	return nil
}

func (d *Device) ListPanels(_ context.Context) ([]xapi.PanelSummary, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]xapi.PanelSummary, 0, len(d.orders))
	for id, order := range d.orders {
		out = append(out, xapi.PanelSummary{PanelID: id, Order: order})
	}
	return out, nil
}

func (d *Device) SetWidgetValue(_ context.Context, widgetID, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.widgets[widgetID] = value
	return nil
}

func (d *Device) DisplayWebView(_ context.Context, title, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.views = append(d.views, xapi.WebView{
		ID:     title,
		URL:    url,
		Status: "Visible",
		Type:   "Integration",
	})
	d.logger.Info().Str(xglog.FieldURL, url).Msg("web view displayed")
	return nil
}

func (d *Device) ClearWebViews(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.views = nil
	return nil
}

func (d *Device) ListWebViews(_ context.Context) ([]xapi.WebView, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]xapi.WebView, len(d.views))
	copy(out, d.views)
	return out, nil
}

func (d *Device) DeleteWebStorage(_ context.Context) error {
	return nil
}

func (d *Device) Volume(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume, nil
}

func (d *Device) Muted(_ context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted, nil
}

func (d *Device) SetVolume(_ context.Context, level int) error {
	d.mu.Lock()
	d.volume = level
	d.mu.Unlock()
	d.events <- xapi.VolumeChanged{Level: level}
	return nil
}

func (d *Device) ToggleMute(_ context.Context) error {
	d.mu.Lock()
	d.muted = !d.muted
	muted := d.muted
	d.mu.Unlock()
	d.events <- xapi.MuteChanged{Muted: muted}
	return nil
}

func (d *Device) IPv4Address(_ context.Context) (string, error) {
	return d.address, nil
}

func (d *Device) ActiveCalls(_ context.Context) (int, error) {
	return 0, nil
}

func (d *Device) TouchControllers(_ context.Context) (int, error) {
	return 0, nil
}

func (d *Device) SendMessage(_ context.Context, text string) error {
	d.logger.Debug().Str("text", text).Msg("message sent")
	return nil
}

func (d *Device) Events(_ context.Context) (<-chan xapi.Event, error) {
	return d.events, nil
}
