// SPDX-License-Identifier: MIT

// Package api serves the diagnostics HTTP surface: probes, metrics and
// a small status endpoint. It is operator-facing only; the device talks
// to the bridge over the xapi transport, never over this listener.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wxsd-sales/iptv-bridge/internal/config"
	"github.com/wxsd-sales/iptv-bridge/internal/health"
	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/version"
)

// StatusSource supplies the live application state for /api/status.
type StatusSource interface {
	ChannelCount() int
	UIState() string
}

// Server is the diagnostics HTTP server.
type Server struct {
	cfg    config.ServerConfig
	srv    *http.Server
	start  time.Time
	status StatusSource
	hm     *health.Manager
}

// New builds the diagnostics server. status may be nil before the app
// controller exists; /api/status then reports zero values.
func New(cfg config.ServerConfig, hm *health.Manager, status StatusSource) *Server {
	s := &Server{
		cfg:    cfg,
		start:  time.Now(),
		status: status,
		hm:     hm,
	}
	s.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(requestLogger)
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.Limit(
			s.cfg.RateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
			}),
		))
	}

	r.Get("/healthz", s.hm.ServeHealth)
	r.Get("/readyz", s.hm.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodGet, "/api/status", otelhttp.NewHandler(http.HandlerFunc(s.handleStatus), "api.status"))
	return r
}

type statusResponse struct {
	Version  string `json:"version"`
	Commit   string `json:"commit"`
	UptimeS  int64  `json:"uptime_seconds"`
	Channels int    `json:"channels"`
	UIState  string `json:"ui_state"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version: version.Version,
		Commit:  version.Commit,
		UptimeS: int64(time.Since(s.start).Seconds()),
	}
	if s.status != nil {
		resp.Channels = s.status.ChannelCount()
		resp.UIState = s.status.UIState()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger := xglog.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("failed to encode status response")
	}
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	logger := xglog.WithComponent("api")

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.cfg.ListenAddr).Str("event", "api.listen").Msg("diagnostics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("diagnostics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("diagnostics server shutdown: %w", err)
	}
	<-errCh
	logger.Info().Str("event", "api.stopped").Msg("diagnostics server stopped")
	return nil
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger := xglog.WithComponentFromContext(r.Context(), "api")
				logger.Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("handler panicked")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger := xglog.WithComponentFromContext(r.Context(), "api")
		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int(xglog.FieldStatusCode, sw.code).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
