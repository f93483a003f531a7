// SPDX-License-Identifier: MIT

// Package xapitest provides in-memory fakes of the device capability
// surface for tests.
package xapitest

import (
	"context"
	"sync"

	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

// FakeDevice implements xapi.Device with in-memory state and call
// recording. Error fields, when set, are returned by the matching
// method to exercise failure paths.
type FakeDevice struct {
	mu sync.Mutex

	Users       map[string]string   // username -> passphrase
	Roles       map[string][]string // username -> roles
	Panels      map[string]string   // panelID -> xml
	PanelOrders map[string]int      // panelID -> order
	OpenedPages []string
	Widgets     map[string]string // widgetID -> last value
	WebViews    []xapi.WebView
	Messages    []string

	VolumeLevel    int
	IsMuted        bool
	Address        string
	Calls          int
	Controllers    int
	StorageWiped   bool
	ClearedViews   int
	DisplayedViews []string // urls passed to DisplayWebView

	CreateUserErr    error
	SetPassphraseErr error
	DeleteUserErr    error
	SavePanelErr     error
	SetWidgetErr     error

	events chan xapi.Event
}

// NewFakeDevice returns a FakeDevice with empty state and a buffered
// event stream.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{
		Users:       map[string]string{},
		Roles:       map[string][]string{},
		Panels:      map[string]string{},
		PanelOrders: map[string]int{},
		Widgets:     map[string]string{},
		Address:     "192.0.2.10",
		events:      make(chan xapi.Event, 64),
	}
}

// PushEvent injects an event into the subscribed stream.
func (f *FakeDevice) PushEvent(e xapi.Event) {
	f.events <- e
}

// CloseEvents ends the event stream.
func (f *FakeDevice) CloseEvents() {
	close(f.events)
}

func (f *FakeDevice) CreateUser(_ context.Context, username, passphrase string, roles []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateUserErr != nil {
		return f.CreateUserErr
	}
	if _, ok := f.Users[username]; ok {
		return xapi.ErrUserExists
	}
	f.Users[username] = passphrase
	f.Roles[username] = roles
	return nil
}

func (f *FakeDevice) SetPassphrase(_ context.Context, username, passphrase string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetPassphraseErr != nil {
		return f.SetPassphraseErr
	}
	if _, ok := f.Users[username]; !ok {
		return xapi.ErrUserNotFound
	}
	f.Users[username] = passphrase
	return nil
}

func (f *FakeDevice) DeleteUser(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteUserErr != nil {
		return f.DeleteUserErr
	}
	if _, ok := f.Users[username]; !ok {
		return xapi.ErrUserNotFound
	}
	delete(f.Users, username)
	delete(f.Roles, username)
	return nil
}

func (f *FakeDevice) UserExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Users[username]
	return ok, nil
}

func (f *FakeDevice) SavePanel(_ context.Context, panelID, xml string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SavePanelErr != nil {
		return f.SavePanelErr
	}
	f.Panels[panelID] = xml
	return nil
}

func (f *FakeDevice) OpenPanel(_ context.Context, panelID, pageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.OpenedPages = append(f.OpenedPages, panelID+"/"+pageID)
	return nil
}

func (f *FakeDevice) ListPanels(_ context.Context) ([]xapi.PanelSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]xapi.PanelSummary, 0, len(f.PanelOrders))
	for id, order := range f.PanelOrders {
		out = append(out, xapi.PanelSummary{PanelID: id, Order: order})
	}
	return out, nil
}

func (f *FakeDevice) SetWidgetValue(_ context.Context, widgetID, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetWidgetErr != nil {
		return f.SetWidgetErr
	}
	f.Widgets[widgetID] = value
	return nil
}

func (f *FakeDevice) DisplayWebView(_ context.Context, title, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DisplayedViews = append(f.DisplayedViews, url)
	f.WebViews = append(f.WebViews, xapi.WebView{
		ID:     title,
		URL:    url,
		Status: "Visible",
		Type:   "Integration",
	})
	return nil
}

func (f *FakeDevice) ClearWebViews(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClearedViews++
	f.WebViews = nil
	return nil
}

func (f *FakeDevice) ListWebViews(_ context.Context) ([]xapi.WebView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]xapi.WebView, len(f.WebViews))
	copy(out, f.WebViews)
	return out, nil
}

func (f *FakeDevice) DeleteWebStorage(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StorageWiped = true
	return nil
}

func (f *FakeDevice) Volume(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.VolumeLevel, nil
}

func (f *FakeDevice) Muted(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.IsMuted, nil
}

func (f *FakeDevice) SetVolume(_ context.Context, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VolumeLevel = level
	return nil
}

func (f *FakeDevice) ToggleMute(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IsMuted = !f.IsMuted
	return nil
}

func (f *FakeDevice) IPv4Address(_ context.Context) (string, error) {
	return f.Address, nil
}

func (f *FakeDevice) ActiveCalls(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls, nil
}

func (f *FakeDevice) TouchControllers(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Controllers, nil
}

func (f *FakeDevice) SendMessage(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Messages = append(f.Messages, text)
	return nil
}

func (f *FakeDevice) Events(_ context.Context) (<-chan xapi.Event, error) {
	return f.events, nil
}

// WidgetValue returns the last value pushed to a widget.
func (f *FakeDevice) WidgetValue(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Widgets[id]
}

// PanelXML returns the last document saved for a panel.
func (f *FakeDevice) PanelXML(panelID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Panels[panelID]
}

// SentMessages returns a copy of all pushed application messages.
func (f *FakeDevice) SentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Messages...)
}

// Displayed returns a copy of the urls opened as web views.
func (f *FakeDevice) Displayed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.DisplayedViews...)
}

// Opened returns a copy of the panel/page opens in order.
func (f *FakeDevice) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.OpenedPages...)
}

// ClearCount returns how many times the web views were cleared.
func (f *FakeDevice) ClearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ClearedViews
}

// Wiped reports whether web storage was deleted.
func (f *FakeDevice) Wiped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.StorageWiped
}

// CurrentVolume returns the native volume level.
func (f *FakeDevice) CurrentVolume() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.VolumeLevel
}

// CurrentMuted returns the native mute state.
func (f *FakeDevice) CurrentMuted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.IsMuted
}
