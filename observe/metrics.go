package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricPurgeTotal    = "edgetag.purge.total"
	MetricPurgeErrors   = "edgetag.purge.errors"
	MetricPurgeDuration = "edgetag.purge.duration_ms"
	MetricPurgeTags     = "edgetag.purge.tags"
	MetricOutcomes      = "edgetag.invalidation.outcomes"
	MetricEmitted       = "edgetag.emit.responses"
)

// Metrics records emitter and dispatcher activity.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordPurge records one purge HTTP call with its duration and error.
	RecordPurge(ctx context.Context, meta PurgeMeta, duration time.Duration, err error)

	// RecordOutcome records the terminal state of one invalidation event.
	RecordOutcome(ctx context.Context, outcome string)

	// RecordEmit records a response that received a Cache-Tag header.
	RecordEmit(ctx context.Context, tagCount int)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	tagCount     metric.Int64Counter
	outcomes     metric.Int64Counter
	emitted      metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricPurgeTotal,
		metric.WithDescription("Total number of CDN purge calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricPurgeErrors,
		metric.WithDescription("Total number of failed CDN purge calls"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	tagCount, err := meter.Int64Counter(
		MetricPurgeTags,
		metric.WithDescription("Total number of tags sent for purge"),
		metric.WithUnit("{tag}"),
	)
	if err != nil {
		return nil, err
	}

	outcomes, err := meter.Int64Counter(
		MetricOutcomes,
		metric.WithDescription("Invalidation events by terminal state"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	emitted, err := meter.Int64Counter(
		MetricEmitted,
		metric.WithDescription("Responses that received a Cache-Tag header"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricPurgeDuration,
		metric.WithDescription("CDN purge call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		tagCount:     tagCount,
		outcomes:     outcomes,
		emitted:      emitted,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordPurge(ctx context.Context, meta PurgeMeta, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("purge.provider", meta.ProviderName()),
	}
	if meta.Zone != "" {
		attrs = append(attrs, attribute.String("purge.zone", meta.Zone))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	m.tagCount.Add(ctx, int64(len(meta.Tags)), opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordOutcome(ctx context.Context, outcome string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *metricsImpl) RecordEmit(ctx context.Context, tagCount int) {
	m.emitted.Add(ctx, 1, metric.WithAttributes(attribute.Int("tag_count", tagCount)))
}

// NoopMetrics returns a Metrics that records nothing.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordPurge(context.Context, PurgeMeta, time.Duration, error) {}
func (noopMetrics) RecordOutcome(context.Context, string)                        {}
func (noopMetrics) RecordEmit(context.Context, int)                              {}
