package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRouteSpan starts a span for routing one raised event.
	StartRouteSpan(ctx context.Context, sourceType, field string) (context.Context, trace.Span)

	// StartPipelineSpan starts a span for one pipeline execution.
	StartPipelineSpan(ctx context.Context, field, argsType string) (context.Context, trace.Span)

	// StartDrainSpan starts a span for draining one queue.
	StartDrainSpan(ctx context.Context, queue string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses the global OTel tracer
// provider at the time of the call.
func NewSpanManager() SpanManager {
	return NewSpanManagerFromTracer(otel.Tracer("eventflow"))
}

// NewSpanManagerFromTracer returns a SpanManager bound to tracer.
func NewSpanManagerFromTracer(tracer trace.Tracer) SpanManager {
	return &otelSpanManager{tracer: tracer}
}

func (m *otelSpanManager) StartRouteSpan(ctx context.Context, sourceType, field string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "eventflow.route",
		trace.WithAttributes(
			attribute.String("source.type", sourceType),
			attribute.String("event.field", field),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartPipelineSpan(ctx context.Context, field, argsType string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "eventflow.pipeline",
		trace.WithAttributes(
			attribute.String("event.field", field),
			attribute.String("args.type", argsType),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) StartDrainSpan(ctx context.Context, queue string) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "eventflow.queue.drain",
		trace.WithAttributes(attribute.String("queue.name", queue)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
