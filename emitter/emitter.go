package emitter

import (
	"context"

	"github.com/jonwraymond/edgetag/hooks"
	"github.com/jonwraymond/edgetag/observe"
	"github.com/jonwraymond/edgetag/tagset"
)

// Config gates tag emission. Both flags must be true.
type Config struct {
	// CacheEnabled mirrors cloudflare.cache.enabled.
	CacheEnabled bool

	// UseOutputCacheTagging mirrors server.useOutputCacheTagging.
	UseOutputCacheTagging bool
}

// Enabled reports whether both flags are on.
func (c Config) Enabled() bool {
	return c.CacheEnabled && c.UseOutputCacheTagging
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithLogger sets the logger. Default: observe.NopLogger().
func WithLogger(l observe.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder. Default: observe.NoopMetrics().
func WithMetrics(m observe.Metrics) Option {
	return func(e *Emitter) {
		if m != nil {
			e.metrics = m
		}
	}
}

// Emitter sets the Cache-Tag header from the render context.
//
// Contract:
//   - Concurrency: safe for concurrent use; holds no per-call state.
//   - Purity: never mutates the tag set and never alters the output.
//   - Errors: none; tags are opaque strings and are never rejected.
type Emitter struct {
	cfg     Config
	logger  observe.Logger
	metrics observe.Metrics
}

// New creates an Emitter.
func New(cfg Config, opts ...Option) *Emitter {
	e := &Emitter{
		cfg:     cfg,
		logger:  observe.NopLogger(),
		metrics: observe.NoopMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(observe.F("component", "emitter"))
	return e
}

// Emit sets the Cache-Tag header when both flags are on and the render
// context carries at least one tag. It returns output unchanged in every
// case.
func (e *Emitter) Emit(ctx context.Context, w hooks.ResponseHandle, rc hooks.RenderContext, output []byte) []byte {
	if !e.cfg.Enabled() || rc.Tags.Len() == 0 || w == nil {
		return output
	}

	joined := rc.Tags.String()
	w.Header().Set(tagset.HeaderName, joined)

	e.logger.Info(ctx, "cache tags for the request: "+joined, observe.F("cache_tags", joined))
	e.metrics.RecordEmit(ctx, rc.Tags.Len())
	return output
}
