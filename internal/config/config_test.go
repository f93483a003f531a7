// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("IPTV_CONTENT_SERVER", "https://content.example.com/playlist.m3u")
	t.Setenv("IPTV_PLAYER_URL", "https://player.example.com/app")
}

func TestFromEnvDefaults(t *testing.T) {
	validEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "iptv", cfg.App.PanelID)
	assert.Equal(t, "iptv-player", cfg.App.Username)
	assert.True(t, cfg.App.SecureOnly)
	assert.True(t, cfg.App.ValidateStreams)
	assert.False(t, cfg.App.CloseWithPanel)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 5, cfg.Probe.MaxRedirects)
	assert.Equal(t, ":8085", cfg.Server.ListenAddr)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestFromEnvOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("IPTV_PANEL_ID", "lobbytv")
	t.Setenv("IPTV_VALIDATE_STREAMS", "false")
	t.Setenv("IPTV_PROBE_TIMEOUT", "3s")
	t.Setenv("IPTV_PROBE_MAX_REDIRECTS", "2")
	t.Setenv("IPTV_LISTEN_ADDR", "127.0.0.1:9090")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "lobbytv", cfg.App.PanelID)
	assert.False(t, cfg.App.ValidateStreams)
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 2, cfg.Probe.MaxRedirects)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.ListenAddr)
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	validEnv(t)
	t.Setenv("IPTV_PROBE_MAX_REDIRECTS", "lots")
	t.Setenv("IPTV_VALIDATE_STREAMS", "maybe")
	t.Setenv("IPTV_PROBE_TIMEOUT", "soon")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Probe.MaxRedirects)
	assert.True(t, cfg.App.ValidateStreams)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout)
}

func TestFromEnvFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  content_server: https://file.example.com/playlist.m3u
  player_url: https://player.example.com/app
  panel_id: filetv
  button_name: Lobby TV
probe:
  max_redirects: 7
`), 0o600))

	t.Setenv("IPTV_CONFIG_FILE", path)
	// Environment beats the file.
	t.Setenv("IPTV_PANEL_ID", "envtv")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com/playlist.m3u", cfg.App.ContentServer)
	assert.Equal(t, "envtv", cfg.App.PanelID)
	assert.Equal(t, "Lobby TV", cfg.App.ButtonName)
	assert.Equal(t, 7, cfg.Probe.MaxRedirects)
}

func TestFromEnvMissingFile(t *testing.T) {
	validEnv(t)
	t.Setenv("IPTV_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := FromEnv()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(_ *Config) {},
		},
		{
			name:    "missing content server",
			mutate:  func(c *Config) { c.App.ContentServer = "" },
			wantErr: "content server URL is required",
		},
		{
			name:    "bad player scheme",
			mutate:  func(c *Config) { c.App.PlayerURL = "ftp://player.example.com" },
			wantErr: "must use http or https",
		},
		{
			name:    "panel id with separator",
			mutate:  func(c *Config) { c.App.PanelID = "iptv-main" },
			wantErr: "widget id field separator",
		},
		{
			name:    "empty username",
			mutate:  func(c *Config) { c.App.Username = "" },
			wantErr: "username must not be empty",
		},
		{
			name:    "negative redirects",
			mutate:  func(c *Config) { c.Probe.MaxRedirects = -1 },
			wantErr: "must not be negative",
		},
		{
			name: "telemetry without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry endpoint is required",
		},
		{
			name: "telemetry bad protocol",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = "collector:4317"
				c.Telemetry.Protocol = "udp"
			},
			wantErr: "must be grpc or http",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.App.ContentServer = "https://content.example.com/playlist.m3u"
			cfg.App.PlayerURL = "https://player.example.com/app"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
