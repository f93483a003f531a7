// SPDX-License-Identifier: MIT
package xapitest

import (
	"context"
	"errors"
	"sync"

	"github.com/wxsd-sales/iptv-bridge/internal/xapi"
)

// FakeRemote implements xapi.Remote over an injectable event stream.
type FakeRemote struct {
	mu      sync.Mutex
	Widgets map[string]string
	Closed  bool
	events  chan xapi.Event
}

// NewFakeRemote returns a connected FakeRemote.
func NewFakeRemote() *FakeRemote {
	return &FakeRemote{
		Widgets: map[string]string{},
		events:  make(chan xapi.Event, 64),
	}
}

// PushEvent injects an event into the remote's stream.
func (r *FakeRemote) PushEvent(e xapi.Event) {
	r.events <- e
}

// CloseEvents ends the remote's event stream.
func (r *FakeRemote) CloseEvents() {
	close(r.events)
}

func (r *FakeRemote) SetWidgetValue(_ context.Context, widgetID, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Widgets[widgetID] = value
	return nil
}

func (r *FakeRemote) Events(_ context.Context) (<-chan xapi.Event, error) {
	return r.events, nil
}

func (r *FakeRemote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}

// WidgetValue returns the last value pushed to a widget.
func (r *FakeRemote) WidgetValue(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Widgets[id]
}

// FakeDialer implements xapi.Dialer, failing the first FailFirst
// attempts before handing out Remote.
type FakeDialer struct {
	mu        sync.Mutex
	Remote    *FakeRemote
	FailFirst int
	Attempts  int

	// LastAddress and LastUsername record the most recent dial target.
	LastAddress  string
	LastUsername string
	LastPassword string
}

// DialCount returns the number of Dial calls so far.
func (d *FakeDialer) DialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Attempts
}

func (d *FakeDialer) Dial(_ context.Context, address, username, password string) (xapi.Remote, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Attempts++
	d.LastAddress = address
	d.LastUsername = username
	d.LastPassword = password
	if d.Attempts <= d.FailFirst {
		return nil, errors.New("connection refused")
	}
	if d.Remote == nil {
		d.Remote = NewFakeRemote()
	}
	return d.Remote, nil
}
