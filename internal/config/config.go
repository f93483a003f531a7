// SPDX-License-Identifier: MIT

// Package config assembles the runtime configuration from environment
// variables with an optional YAML file overlay. Environment always
// wins; the file only fills values the environment left unset.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Probe     ProbeConfig     `yaml:"probe"`
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LogLevel  string          `yaml:"log_level"`
}

// AppConfig configures the channel browser itself.
type AppConfig struct {
	ContentServer      string        `yaml:"content_server"`
	PlayerURL          string        `yaml:"player_url"`
	PanelID            string        `yaml:"panel_id"`
	Username           string        `yaml:"username"`
	ButtonName         string        `yaml:"button_name"`
	ButtonColor        string        `yaml:"button_color"`
	ButtonIcon         string        `yaml:"button_icon"`
	ShowInCall         bool          `yaml:"show_in_call"`
	SecureOnly         bool          `yaml:"secure_only"`
	ValidateStreams    bool          `yaml:"validate_streams"`
	CloseWithPanel     bool          `yaml:"close_with_panel"`
	AutoDeleteWebCache bool          `yaml:"auto_delete_web_cache"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
}

// ProbeConfig bounds the stream validation pass.
type ProbeConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
	RatePerSec   float64       `yaml:"rate_per_sec"`
}

// ServerConfig configures the diagnostics HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	RateLimit       int           `yaml:"rate_limit"`
}

// TelemetryConfig configures the OTLP trace exporter.
type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Protocol    string  `yaml:"protocol"` // "grpc" or "http"
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		App: AppConfig{
			PanelID:            "iptv",
			Username:           "iptv-player",
			ButtonName:         "IPTV",
			ButtonColor:        "#1170CF",
			ButtonIcon:         "Tv",
			SecureOnly:         true,
			ValidateStreams:    true,
			AutoDeleteWebCache: true,
			FetchTimeout:       15 * time.Second,
		},
		Probe: ProbeConfig{
			Timeout:      10 * time.Second,
			MaxRedirects: 5,
			RatePerSec:   5,
		},
		Server: ServerConfig{
			ListenAddr:      ":8085",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			RateLimit:       100,
		},
		Telemetry: TelemetryConfig{
			Protocol:    "grpc",
			SampleRatio: 1.0,
			ServiceName: "iptv-bridge",
		},
		LogLevel: "info",
	}
}

// FromEnv builds the configuration: defaults, then the optional YAML
// file named by IPTV_CONFIG_FILE, then environment variables on top.
func FromEnv() (Config, error) {
	cfg := Default()

	if path := os.Getenv("IPTV_CONFIG_FILE"); path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	cfg.App.ContentServer = ParseString("IPTV_CONTENT_SERVER", cfg.App.ContentServer)
	cfg.App.PlayerURL = ParseString("IPTV_PLAYER_URL", cfg.App.PlayerURL)
	cfg.App.PanelID = ParseString("IPTV_PANEL_ID", cfg.App.PanelID)
	cfg.App.Username = ParseString("IPTV_USERNAME", cfg.App.Username)
	cfg.App.ButtonName = ParseString("IPTV_BUTTON_NAME", cfg.App.ButtonName)
	cfg.App.ButtonColor = ParseString("IPTV_BUTTON_COLOR", cfg.App.ButtonColor)
	cfg.App.ButtonIcon = ParseString("IPTV_BUTTON_ICON", cfg.App.ButtonIcon)
	cfg.App.ShowInCall = ParseBool("IPTV_SHOW_IN_CALL", cfg.App.ShowInCall)
	cfg.App.SecureOnly = ParseBool("IPTV_SECURE_ONLY", cfg.App.SecureOnly)
	cfg.App.ValidateStreams = ParseBool("IPTV_VALIDATE_STREAMS", cfg.App.ValidateStreams)
	cfg.App.CloseWithPanel = ParseBool("IPTV_CLOSE_WITH_PANEL", cfg.App.CloseWithPanel)
	cfg.App.AutoDeleteWebCache = ParseBool("IPTV_AUTO_DELETE_WEB_CACHE", cfg.App.AutoDeleteWebCache)
	cfg.App.FetchTimeout = ParseDuration("IPTV_FETCH_TIMEOUT", cfg.App.FetchTimeout)

	cfg.Probe.Timeout = ParseDuration("IPTV_PROBE_TIMEOUT", cfg.Probe.Timeout)
	cfg.Probe.MaxRedirects = ParseInt("IPTV_PROBE_MAX_REDIRECTS", cfg.Probe.MaxRedirects)
	cfg.Probe.RatePerSec = ParseFloat("IPTV_PROBE_RATE", cfg.Probe.RatePerSec)

	cfg.Server.ListenAddr = ParseString("IPTV_LISTEN_ADDR", cfg.Server.ListenAddr)
	cfg.Server.ReadTimeout = ParseDuration("IPTV_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = ParseDuration("IPTV_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = ParseDuration("IPTV_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.RateLimit = ParseInt("IPTV_RATE_LIMIT", cfg.Server.RateLimit)

	cfg.Telemetry.Enabled = ParseBool("IPTV_OTLP_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = ParseString("IPTV_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.Protocol = ParseString("IPTV_OTLP_PROTOCOL", cfg.Telemetry.Protocol)
	cfg.Telemetry.Insecure = ParseBool("IPTV_OTLP_INSECURE", cfg.Telemetry.Insecure)
	cfg.Telemetry.SampleRatio = ParseFloat("IPTV_OTLP_SAMPLE_RATIO", cfg.Telemetry.SampleRatio)
	cfg.Telemetry.ServiceName = ParseString("IPTV_SERVICE_NAME", cfg.Telemetry.ServiceName)

	cfg.LogLevel = ParseString("IPTV_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the process cannot run
// with. It collects every problem instead of stopping at the first.
func (c Config) Validate() error {
	var errs []error

	if c.App.ContentServer == "" {
		errs = append(errs, errors.New("content server URL is required (IPTV_CONTENT_SERVER)"))
	} else if err := validURL(c.App.ContentServer); err != nil {
		errs = append(errs, fmt.Errorf("content server: %w", err))
	}

	if c.App.PlayerURL == "" {
		errs = append(errs, errors.New("player URL is required (IPTV_PLAYER_URL)"))
	} else if err := validURL(c.App.PlayerURL); err != nil {
		errs = append(errs, fmt.Errorf("player url: %w", err))
	}

	if c.App.PanelID == "" {
		errs = append(errs, errors.New("panel id must not be empty"))
	} else if strings.Contains(c.App.PanelID, "-") {
		errs = append(errs, fmt.Errorf("panel id %q must not contain %q, it is the widget id field separator", c.App.PanelID, "-"))
	}

	if c.App.Username == "" {
		errs = append(errs, errors.New("session username must not be empty"))
	}

	if c.Probe.MaxRedirects < 0 {
		errs = append(errs, errors.New("probe max redirects must not be negative"))
	}
	if c.Probe.RatePerSec <= 0 {
		errs = append(errs, errors.New("probe rate must be positive"))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry endpoint is required when telemetry is enabled"))
		}
		switch c.Telemetry.Protocol {
		case "grpc", "http":
		default:
			errs = append(errs, fmt.Errorf("telemetry protocol %q must be grpc or http", c.Telemetry.Protocol))
		}
		if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
			errs = append(errs, errors.New("telemetry sample ratio must be within [0, 1]"))
		}
	}

	return errors.Join(errs...)
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	return nil
}
