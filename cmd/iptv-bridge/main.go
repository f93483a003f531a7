// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/wxsd-sales/iptv-bridge/internal/api"
	"github.com/wxsd-sales/iptv-bridge/internal/app"
	"github.com/wxsd-sales/iptv-bridge/internal/config"
	"github.com/wxsd-sales/iptv-bridge/internal/health"
	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/playlist"
	"github.com/wxsd-sales/iptv-bridge/internal/probe"
	"github.com/wxsd-sales/iptv-bridge/internal/telemetry"
	"github.com/wxsd-sales/iptv-bridge/internal/version"
	"github.com/wxsd-sales/iptv-bridge/internal/xapi"

	// Built-in device transport.
	_ "github.com/wxsd-sales/iptv-bridge/internal/xapi/loopback"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Service: "iptv-bridge"})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}
	xglog.SetLevel(cfg.LogLevel)

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "run.failed").Msg("bridge exited with error")
	}
	logger.Info().Str("event", "run.stopped").Msg("bridge stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	logger := xglog.WithComponent("main")

	tp, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	driver := config.ParseString("IPTV_DEVICE_DRIVER", "loopback")
	dsn := config.ParseString("IPTV_DEVICE_DSN", "")
	device, err := xapi.Connect(ctx, driver, dsn)
	if err != nil {
		return fmt.Errorf("connect device: %w", err)
	}
	logger.Info().Str("driver", driver).Str("event", "device.connected").Msg("device transport ready")

	fetcher := playlist.NewFetcher(cfg.App.ContentServer, cfg.App.SecureOnly, cfg.App.FetchTimeout)

	var validator *probe.Validator
	if cfg.App.ValidateStreams {
		validator = probe.New(probe.Config{
			Timeout:      cfg.Probe.Timeout,
			MaxRedirects: cfg.Probe.MaxRedirects,
			RatePerSec:   cfg.Probe.RatePerSec,
		})
	}

	startup := health.NewStartupChecker()
	ctrl := app.New(device, fetcher, validator, app.Config{
		PanelID:            cfg.App.PanelID,
		Username:           cfg.App.Username,
		PlayerURL:          cfg.App.PlayerURL,
		ButtonName:         cfg.App.ButtonName,
		Color:              cfg.App.ButtonColor,
		Icon:               cfg.App.ButtonIcon,
		ShowInCall:         cfg.App.ShowInCall,
		ValidateStreams:    cfg.App.ValidateStreams,
		CloseWithPanel:     cfg.App.CloseWithPanel,
		AutoDeleteWebCache: cfg.App.AutoDeleteWebCache,
		OnReady:            startup.MarkReady,
	})

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(startup)
	hm.RegisterChecker(health.NewChannelsChecker(ctrl.ChannelCount))

	server := api.New(cfg.Server, hm, statusAdapter{ctrl})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	return g.Wait()
}

// statusAdapter bridges the app controller to the diagnostics API.
type statusAdapter struct {
	ctrl *app.Controller
}

func (a statusAdapter) ChannelCount() int { return a.ctrl.ChannelCount() }
func (a statusAdapter) UIState() string   { return string(a.ctrl.UIState()) }
