// SPDX-License-Identifier: MIT

// Package control implements the control-channel protocol shared by the
// device panel process and the embedded player process: the widget-id
// namespace, volume rescaling between the three audio scales, and the
// bookkeeping that detects abnormal peer disappearance.
package control

import (
	"errors"
	"strconv"
	"strings"
)

// Widget categories and actions owned by this app. The id schema is
// `<panelId><location>-<category>-<action>[-<index>]`; the panel prefix
// is the sole isolation mechanism between concurrent app instances on
// one host.
const (
	CategoryChannels       = "channels"
	CategoryPlayerControls = "playercontrols"
	CategoryDeviceControls = "devicecontrols"
	CategoryLoading        = "loading"

	ActionSelect        = "select"
	ActionClose         = "close"
	ActionPlayPause     = "playpause"
	ActionToggleMute    = "togglemute"
	ActionVolume        = "volume"
	ActionChangeChannel = "changechannel"
	ActionText          = "text"
)

// Spinner values delivered by the channel-change widget.
const (
	SpinnerIncrement = "increment"
	SpinnerDecrement = "decrement"
)

var (
	// ErrForeignPanel marks an event from another app instance.
	ErrForeignPanel = errors.New("widget id belongs to another panel")
	// ErrMalformedID marks an id that does not fit the schema.
	ErrMalformedID = errors.New("malformed widget id")
)

// WidgetID is one parsed interactive element identifier.
type WidgetID struct {
	Panel    string // configured panel id
	Location string // surface suffix after the panel id, may be empty
	Category string
	Action   string
	Option   int // numeric 4th field, -1 when absent
}

// FormatWidgetID builds the canonical id for a widget.
func FormatWidgetID(panel, location, category, action string) string {
	return panel + location + "-" + category + "-" + action
}

// FormatOptionWidgetID builds an id carrying a numeric option index.
func FormatOptionWidgetID(panel, location, category, action string, option int) string {
	return FormatWidgetID(panel, location, category, action) + "-" + strconv.Itoa(option)
}

// ParseWidgetID splits a raw id and checks it against the configured
// panel namespace. Foreign-panel ids and ids that do not fit the
// 3-or-4-field schema are rejected with the matching sentinel.
func ParseWidgetID(raw, panel string) (WidgetID, error) {
	fields := strings.Split(raw, "-")
	if len(fields) < 3 || len(fields) > 4 {
		return WidgetID{}, ErrMalformedID
	}
	if !strings.HasPrefix(fields[0], panel) {
		return WidgetID{}, ErrForeignPanel
	}

	id := WidgetID{
		Panel:    panel,
		Location: strings.TrimPrefix(fields[0], panel),
		Category: fields[1],
		Action:   fields[2],
		Option:   -1,
	}
	if id.Category == "" || id.Action == "" {
		return WidgetID{}, ErrMalformedID
	}

	if len(fields) == 4 {
		option, err := strconv.Atoi(fields[3])
		if err != nil || option < 0 {
			return WidgetID{}, ErrMalformedID
		}
		id.Option = option
	}
	return id, nil
}

// OwnsPage reports whether a page id belongs to this panel namespace.
func OwnsPage(pageID, panel string) bool {
	return strings.HasPrefix(pageID, panel)
}
