// Package health reports whether edgetag can do its job.
//
// Checkers report one of three statuses. Edgetag keeps serving pages when
// purging is impossible, so purge problems are reported as Degraded rather
// than Unhealthy; only broken dependencies the process needs to run, such
// as a configured event bus, are Unhealthy.
//
//	agg := health.NewAggregator()
//	agg.Register("cloudflare", health.NewCloudflareChecker(health.CloudflareCheckerConfig{
//	    Enabled:     true,
//	    MissingKeys: cfg.MissingCredentials(),
//	}))
//	agg.Register("redis", health.NewPingChecker("redis", bus))
//
//	health.RegisterHandlers(router, agg)
//
// RegisterHandlers mounts /healthz (liveness), /readyz (readiness),
// /health (JSON details) and /health/{name} (one checker).
package health
