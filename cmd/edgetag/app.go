package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/edgetag/cdn"
	"github.com/jonwraymond/edgetag/config"
	"github.com/jonwraymond/edgetag/dispatch"
	"github.com/jonwraymond/edgetag/emitter"
	"github.com/jonwraymond/edgetag/health"
	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/observe"
)

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg      *config.Config
	obs      observe.Observer
	logger   observe.Logger
	registry *prometheus.Registry

	hooks      *hooks.Table
	emitter    *emitter.Emitter
	dispatcher *dispatch.Dispatcher
	cloudflare *health.CloudflareChecker
}

// newApp wires telemetry, the tag emitter and the purge dispatcher onto a
// fresh hook table. onResult, when set, sees every dispatch outcome.
func newApp(ctx context.Context, cfg *config.Config, onResult func(dispatch.Outcome)) (*app, error) {
	registry := prometheus.NewRegistry()
	obsCfg := cfg.Observe.ToObserve(version)
	obsCfg.Metrics.Registerer = registry

	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("observe: %w", err)
	}
	logger := obs.Logger()

	cf := health.NewCloudflareChecker(health.CloudflareCheckerConfig{
		Enabled:     cfg.Cloudflare.Cache.Enabled && cfg.Server.UseOutputCacheTagging,
		MissingKeys: cfg.MissingCredentials(),
	})

	client := cdn.NewClient(cdn.ClientConfig{
		BaseURL:     cfg.Cloudflare.APIBaseURL,
		Timeout:     cfg.Cloudflare.Cache.PurgeTimeout,
		MaxInFlight: cfg.Cloudflare.Cache.MaxInFlight,
		RateLimit:   cfg.Cloudflare.Cache.RateLimit,
		RateBurst:   cfg.Cloudflare.Cache.RateBurst,
		Middleware:  mw,
	})

	d := dispatch.New(dispatch.Config{
		CacheEnabled:          cfg.Cloudflare.Cache.Enabled,
		UseOutputCacheTagging: cfg.Server.UseOutputCacheTagging,
		AvailableCacheTags:    cfg.Server.AvailableCacheTags,
		APIToken:              cfg.Cloudflare.APIToken,
		ZoneIdentifier:        cfg.Cloudflare.Cache.ZoneIdentifier,
	}, client,
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(mw.Metrics()),
		dispatch.WithOnResult(func(o dispatch.Outcome) {
			switch o.State {
			case dispatch.StateSucceeded:
				cf.RecordPurge(nil)
			case dispatch.StateFailed:
				cf.RecordPurge(o.Err)
			}
			if onResult != nil {
				onResult(o)
			}
		}),
	)

	em := emitter.New(emitter.Config{
		CacheEnabled:          cfg.Cloudflare.Cache.Enabled,
		UseOutputCacheTagging: cfg.Server.UseOutputCacheTagging,
	}, emitter.WithLogger(logger), emitter.WithMetrics(mw.Metrics()))

	table := hooks.NewTable()
	table.OnBeforeOutputRendered(em.Emit)
	table.OnAfterCacheInvalidated(d.Handle)

	if missing := cfg.MissingCredentials(); missing != nil && d.Enabled() {
		logger.Warn(ctx, "purging will fail until credentials are configured", observe.F("missing", missing))
	}

	return &app{
		cfg:        cfg,
		obs:        obs,
		logger:     logger,
		registry:   registry,
		hooks:      table,
		emitter:    em,
		dispatcher: d,
		cloudflare: cf,
	}, nil
}

// metricsHandler serves the app's private Prometheus registry, or nil when
// the prometheus exporter is off.
func (a *app) metricsHandler() http.Handler {
	if a.cfg.Observe.Metrics.Exporter != "prometheus" {
		return nil
	}
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// close waits for in-flight purges, then flushes telemetry.
func (a *app) close(ctx context.Context) error {
	return errors.Join(
		a.dispatcher.Shutdown(ctx),
		a.obs.Shutdown(ctx),
	)
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
