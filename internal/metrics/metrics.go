// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Playlist metrics
	playlistFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvbridge_playlist_fetch_total",
		Help: "Playlist fetch attempts by outcome",
	}, []string{"outcome"}) // outcome=success|stale|failure

	channelsParsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptvbridge_channels_parsed",
		Help: "Number of channels parsed from the last playlist fetch",
	})

	channelsValid = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptvbridge_channels_valid",
		Help: "Number of channels that passed embeddability validation in the last refresh",
	})

	// Probe metrics
	probeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvbridge_probe_total",
		Help: "Stream embeddability probes by outcome",
	}, []string{"outcome"}) // outcome=valid|invalid|redirect_limit|error

	probeRedirectsFollowed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_probe_redirects_followed_total",
		Help: "Total redirect hops followed while probing streams",
	})

	validationProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptvbridge_validation_progress",
		Help: "Channels validated so far in the current refresh",
	})

	// Session / credential metrics
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_sessions_started_total",
		Help: "Player sessions opened",
	})

	sessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvbridge_sessions_ended_total",
		Help: "Player sessions ended by reason",
	}, []string{"reason"}) // reason=closed|ghost|panel

	credentialOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvbridge_credential_ops_total",
		Help: "Scoped credential operations by type and outcome",
	}, []string{"op", "outcome"}) // op=create|rotate|revoke outcome=success|failure

	// Control-channel metrics
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvbridge_events_dropped_total",
		Help: "Device events ignored at the protocol boundary by reason",
	}, []string{"reason"}) // reason=foreign_panel|malformed_id|unknown_widget

	channelSwitches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "iptvbridge_channel_switches_total",
		Help: "Channel-switch messages pushed to an open player",
	})

	playerConnAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptvbridge_player_conn_attempts_total",
		Help: "Player connection attempts by outcome",
	}, []string{"outcome"}) // outcome=success|failure
)

// RecordPlaylistFetch tracks one playlist fetch by outcome.
func RecordPlaylistFetch(outcome string) { playlistFetchTotal.WithLabelValues(outcome).Inc() }

// RecordChannelsParsed sets the size of the last parsed channel list.
func RecordChannelsParsed(n int) { channelsParsed.Set(float64(n)) }

// RecordChannelsValid sets the size of the last validated channel list.
func RecordChannelsValid(n int) { channelsValid.Set(float64(n)) }

// RecordProbe tracks one stream probe by outcome.
func RecordProbe(outcome string) { probeTotal.WithLabelValues(outcome).Inc() }

// RecordProbeRedirect tracks one followed redirect hop.
func RecordProbeRedirect() { probeRedirectsFollowed.Inc() }

// RecordValidationProgress publishes incremental validation progress.
func RecordValidationProgress(done int) { validationProgress.Set(float64(done)) }

// RecordSessionStarted tracks a newly opened player session.
func RecordSessionStarted() { sessionsStarted.Inc() }

// RecordSessionEnded tracks a finished player session by reason.
func RecordSessionEnded(reason string) { sessionsEnded.WithLabelValues(reason).Inc() }

// RecordCredentialOp tracks a credential lifecycle operation.
func RecordCredentialOp(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	credentialOps.WithLabelValues(op, outcome).Inc()
}

// RecordEventDropped tracks an event ignored at the protocol boundary.
func RecordEventDropped(reason string) { eventsDropped.WithLabelValues(reason).Inc() }

// RecordChannelSwitch tracks a retarget push to an open player.
func RecordChannelSwitch() { channelSwitches.Inc() }

// RecordPlayerConnAttempt tracks one player connection attempt.
func RecordPlayerConnAttempt(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	playerConnAttempts.WithLabelValues(outcome).Inc()
}
