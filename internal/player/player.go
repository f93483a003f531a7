// SPDX-License-Identifier: MIT

// Package player runs the embedded-player side of the control channel:
// it decodes the handshake, opens the remote command connection back to
// the device and keeps player audio state mirrored onto the panel
// widgets.
package player

// Playback is the embedded playback capability (the HLS surface).
// Volume is the player's own audio domain, 0.0-1.0, independent of the
// device speaker.
type Playback interface {
	Load(src string)
	Play()
	Pause()
	Paused() bool
	SetVolume(v float64)
	Volume() float64
	SetMuted(muted bool)
	Muted() bool
	// Events delivers volume/mute change notifications originating
	// inside the player.
	Events() <-chan AudioEvent
}

// AudioEvent is one player-side audio state change.
type AudioEvent struct {
	Volume float64
	Muted  bool
}
