// SPDX-License-Identifier: MIT

// Package probe decides whether a stream URL can be embedded by the
// sandboxed player: the response must carry a wildcard
// Access-Control-Allow-Origin header, following at most a bounded
// number of redirects.
package probe

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	xglog "github.com/wxsd-sales/iptv-bridge/internal/log"
	"github.com/wxsd-sales/iptv-bridge/internal/metrics"
	"github.com/wxsd-sales/iptv-bridge/internal/playlist"
)

const allowOriginHeader = "Access-Control-Allow-Origin"

// Config holds probe behaviour knobs.
type Config struct {
	Timeout      time.Duration // per-request timeout
	MaxRedirects int           // redirect hops before a chain is declared invalid
	RatePerSec   float64       // upper bound on probe request rate
}

// DefaultConfig returns the bounds used in production.
func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		MaxRedirects: 5,
		RatePerSec:   5,
	}
}

// Validator probes stream URLs for cross-origin embeddability.
type Validator struct {
	http         *http.Client
	maxRedirects int
	limiter      *rate.Limiter
	tracer       trace.Tracer
}

// New creates a Validator. Redirects are followed manually so the hop
// bound and Location handling stay under our control.
func New(cfg Config) *Validator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultConfig().MaxRedirects
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultConfig().RatePerSec
	}
	return &Validator{
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxRedirects: cfg.MaxRedirects,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		tracer:       otel.Tracer("iptv-bridge/probe"),
	}
}

// Validate reports whether the stream behind link is embeddable.
// It never returns an error: every failure mode maps to false.
func (v *Validator) Validate(ctx context.Context, link string) bool {
	ctx, span := v.tracer.Start(ctx, "probe.validate",
		trace.WithAttributes(attribute.String("stream.url", link)))
	defer span.End()

	logger := xglog.WithComponentFromContext(ctx, "probe")

	target := link
	for hop := 0; hop <= v.maxRedirects; hop++ {
		if err := v.limiter.Wait(ctx); err != nil {
			metrics.RecordProbe("error")
			return false
		}

		res, err := v.get(ctx, target)
		if err != nil {
			logger.Debug().Err(err).
				Str(xglog.FieldURL, target).
				Msg("probe request failed")
			metrics.RecordProbe("error")
			return false
		}

		switch res.StatusCode {
		case http.StatusOK:
			valid := res.Header.Get(allowOriginHeader) == "*"
			span.SetAttributes(
				attribute.Bool("probe.valid", valid),
				attribute.Int("probe.redirects", hop),
			)
			if valid {
				metrics.RecordProbe("valid")
			} else {
				metrics.RecordProbe("invalid")
			}
			return valid

		case http.StatusMovedPermanently, http.StatusFound:
			location := res.Header.Get("Location")
			if location == "" {
				logger.Debug().
					Str(xglog.FieldURL, target).
					Int(xglog.FieldStatusCode, res.StatusCode).
					Msg("redirect without Location header")
				metrics.RecordProbe("invalid")
				return false
			}
			metrics.RecordProbeRedirect()
			target = location

		default:
			logger.Debug().
				Str(xglog.FieldURL, target).
				Int(xglog.FieldStatusCode, res.StatusCode).
				Msg("probe rejected by status")
			metrics.RecordProbe("invalid")
			return false
		}
	}

	logger.Debug().
		Str(xglog.FieldURL, link).
		Int(xglog.FieldRedirects, v.maxRedirects).
		Msg("redirect chain exceeded hop bound")
	metrics.RecordProbe("redirect_limit")
	return false
}

func (v *Validator) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	res, err := v.http.Do(req)
	if err != nil {
		return nil, err
	}
	// Headers are all the probe needs.
	res.Body.Close()
	return res, nil
}

// ValidateAll filters channels down to the embeddable subset. Probing is
// strictly sequential so the progress callback can drive incremental UI
// updates and the probe targets see bounded load. Order is preserved;
// filtering only removes.
func (v *Validator) ValidateAll(ctx context.Context, channels []playlist.Channel, progress func(done, total int)) []playlist.Channel {
	total := len(channels)
	filtered := make([]playlist.Channel, 0, total)

	for i, ch := range channels {
		if v.Validate(ctx, ch.Link) {
			filtered = append(filtered, ch)
		}
		metrics.RecordValidationProgress(i + 1)
		if progress != nil {
			progress(i+1, total)
		}
	}

	metrics.RecordChannelsValid(len(filtered))
	return filtered
}
