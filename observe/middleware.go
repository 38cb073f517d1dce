package observe

import (
	"context"
	"time"
)

// PurgeFunc performs one purge call.
type PurgeFunc func(ctx context.Context, meta PurgeMeta) error

// Middleware wraps purge calls with tracing, metrics and debug logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe PurgeFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware. Nil components become no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = NoopTracer()
	}
	if metrics == nil {
		metrics = NoopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps fn with tracing, metrics, and logging.
func (m *Middleware) Wrap(fn PurgeFunc) PurgeFunc {
	return func(ctx context.Context, meta PurgeMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordPurge(ctx, meta, duration, err)

		fields := append(meta.Fields(), F("duration_ms", float64(duration.Milliseconds())))
		if err != nil {
			fields = append(fields, F("error", err.Error()))
		}
		m.logger.Debug(ctx, "purge call finished", fields...)

		return err
	}
}

// Metrics returns the metrics recorder used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
