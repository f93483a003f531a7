// SPDX-License-Identifier: MIT
package xapi

// Event is the closed set of typed events crossing the device boundary.
// Raw host payloads are translated into these variants exactly once, at
// the subscription edge; everything downstream switches on the type.
type Event interface {
	isEvent()
}

// WidgetClicked is a press interaction on a panel widget. Spinner
// widgets report their direction in Value ("increment"/"decrement").
type WidgetClicked struct {
	WidgetID string
	Value    string
}

// WidgetReleased is a release interaction, used by sliders to deliver
// their final 0-255 position in Value.
type WidgetReleased struct {
	WidgetID string
	Value    string
}

// PageOpened fires when a panel page becomes visible.
type PageOpened struct {
	PageID string
}

// PageClosed fires when a panel page is dismissed.
type PageClosed struct {
	PageID string
}

// WebViewStatus reports a web view appearing or changing visibility.
type WebViewStatus struct {
	View WebView
}

// PeerGhosted reports the abnormal disappearance of a web view: the
// surface vanished without an explicit close command.
type PeerGhosted struct {
	WebViewID string
}

// VolumeChanged reports a native audio volume change (0-100).
type VolumeChanged struct {
	Level int
}

// MuteChanged reports a native audio mute transition.
type MuteChanged struct {
	Muted bool
}

// MessageReceived carries an application message pushed over the
// device command bus.
type MessageReceived struct {
	Text string
}

func (WidgetClicked) isEvent()   {}
func (WidgetReleased) isEvent()  {}
func (PageOpened) isEvent()      {}
func (PageClosed) isEvent()      {}
func (WebViewStatus) isEvent()   {}
func (PeerGhosted) isEvent()     {}
func (VolumeChanged) isEvent()   {}
func (MuteChanged) isEvent()     {}
func (MessageReceived) isEvent() {}
