// SPDX-License-Identifier: MIT

// Package xapi defines the capability surface the bridge needs from the
// host endpoint: account provisioning, declarative UI, web views, native
// audio, status queries, message push and the typed event stream. The
// concrete transport is supplied by the host integration; everything in
// this repo programs against these interfaces.
package xapi

import (
	"context"
	"errors"
)

// Sentinel errors for account lifecycle conflicts.
var (
	ErrUserExists   = errors.New("user already exists")
	ErrUserNotFound = errors.New("user does not exist")
)

// WebView describes one embedded web surface on the device.
type WebView struct {
	ID     string
	URL    string
	Status string // e.g. "Visible"
	Type   string // e.g. "Integration"
}

// PanelSummary is one installed UI extension panel.
type PanelSummary struct {
	PanelID string
	Order   int
}

// Accounts mints and removes the scoped local account used by the
// embedded player to connect back.
type Accounts interface {
	CreateUser(ctx context.Context, username, passphrase string, roles []string) error
	SetPassphrase(ctx context.Context, username, passphrase string) error
	DeleteUser(ctx context.Context, username string) error
	UserExists(ctx context.Context, username string) (bool, error)
}

// Panels is the declarative UI rendering surface.
type Panels interface {
	SavePanel(ctx context.Context, panelID, xml string) error
	OpenPanel(ctx context.Context, panelID, pageID string) error
	ListPanels(ctx context.Context) ([]PanelSummary, error)
	SetWidgetValue(ctx context.Context, widgetID, value string) error
}

// Views controls the embedded web view surface.
type Views interface {
	DisplayWebView(ctx context.Context, title, url string) error
	ClearWebViews(ctx context.Context) error
	ListWebViews(ctx context.Context) ([]WebView, error)
	DeleteWebStorage(ctx context.Context) error
}

// Audio is the native audio domain. The physical system volume is the
// source of truth on the device side.
type Audio interface {
	Volume(ctx context.Context) (int, error)
	Muted(ctx context.Context) (bool, error)
	SetVolume(ctx context.Context, level int) error
	ToggleMute(ctx context.Context) error
}

// Status exposes read-only device state the protocol needs.
type Status interface {
	IPv4Address(ctx context.Context) (string, error)
	ActiveCalls(ctx context.Context) (int, error)
	TouchControllers(ctx context.Context) (int, error)
}

// Messaging pushes application messages to connected peers.
type Messaging interface {
	SendMessage(ctx context.Context, text string) error
}

// EventSource delivers the typed device event stream. The channel is
// closed when the subscription ends.
type EventSource interface {
	Events(ctx context.Context) (<-chan Event, error)
}

// Device aggregates every capability the bridge process uses.
type Device interface {
	Accounts
	Panels
	Views
	Audio
	Status
	Messaging
	EventSource
}

// Remote is the scoped connection an embedded player opens back to the
// device with the handshake credential.
type Remote interface {
	SetWidgetValue(ctx context.Context, widgetID, value string) error
	Events(ctx context.Context) (<-chan Event, error)
	Close() error
}

// Dialer opens a Remote using the handshake routing parameters.
type Dialer interface {
	Dial(ctx context.Context, address, username, password string) (Remote, error)
}
