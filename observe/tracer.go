package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// PurgeMeta describes one purge call for telemetry purposes.
type PurgeMeta struct {
	ID       string   // Correlation id of the invalidation event
	Provider string   // CDN provider (default "cloudflare")
	Zone     string   // CDN zone identifier
	Tags     []string // Tags sent in the purge request
}

// ProviderName returns the provider, defaulting to "cloudflare".
func (m PurgeMeta) ProviderName() string {
	if m.Provider == "" {
		return "cloudflare"
	}
	return m.Provider
}

// SpanName returns the span name: cdn.purge.<provider>.
func (m PurgeMeta) SpanName() string {
	return "cdn.purge." + m.ProviderName()
}

// Fields returns the log fields identifying the purge.
func (m PurgeMeta) Fields() []Field {
	fields := []Field{
		F("purge.provider", m.ProviderName()),
		F("purge.tags", m.Tags),
	}
	if m.ID != "" {
		fields = append(fields, F("purge.id", m.ID))
	}
	if m.Zone != "" {
		fields = append(fields, F("purge.zone", m.Zone))
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with purge-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a client span for a purge call.
	StartSpan(ctx context.Context, meta PurgeMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NoopTracer()
	}
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with purge metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta PurgeMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("purge.provider", meta.ProviderName()),
		attribute.Int("purge.tag_count", len(meta.Tags)),
		attribute.Bool("purge.error", false),
	}
	if meta.ID != "" {
		attrs = append(attrs, attribute.String("purge.id", meta.ID))
	}
	if meta.Zone != "" {
		attrs = append(attrs, attribute.String("purge.zone", meta.Zone))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("purge.tags", meta.Tags))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("purge.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NoopTracer returns a tracer whose spans are never recorded.
func NoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta PurgeMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
