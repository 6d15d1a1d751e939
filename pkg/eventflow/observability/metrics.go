package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records eventflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRaise records one event entering the engine.
	RecordRaise(ctx context.Context, sourceType, field string)

	// RecordPipeline records one pipeline execution.
	RecordPipeline(ctx context.Context, field string, duration time.Duration, err error)

	// RecordEnqueue records an event deferred to a queue.
	RecordEnqueue(ctx context.Context, queue string)

	// RecordDrain records queued items resumed by a drain.
	RecordDrain(ctx context.Context, queue string, items int)

	// RecordDiscard records queued items dropped without processing.
	RecordDiscard(ctx context.Context, queue string, items int)

	// RecordPublicationFailures records failed subscription handlers.
	RecordPublicationFailures(ctx context.Context, failures int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	raised          metric.Int64Counter
	executions      metric.Int64Counter
	latency         metric.Float64Histogram
	pipelineErrors  metric.Int64Counter
	enqueued        metric.Int64Counter
	drained         metric.Int64Counter
	discarded       metric.Int64Counter
	publicationFail metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter("eventflow"))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	m := &otelMetrics{}
	var err error

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.raised, "eventflow.events.raised", "Number of events raised into the engine"},
		{&m.executions, "eventflow.pipeline.executions", "Number of pipeline executions"},
		{&m.pipelineErrors, "eventflow.pipeline.errors", "Number of failed pipeline executions"},
		{&m.enqueued, "eventflow.queue.enqueued", "Number of events deferred to a queue"},
		{&m.drained, "eventflow.queue.drained", "Number of queued events resumed"},
		{&m.discarded, "eventflow.queue.discarded", "Number of queued events discarded"},
		{&m.publicationFail, "eventflow.publication.failures", "Number of failed subscription handlers"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
	}

	m.latency, err = meter.Float64Histogram("eventflow.pipeline.latency_ms",
		metric.WithDescription("Pipeline execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderFromMeter returns a recorder bound to meter.
func NewMetricsRecorderFromMeter(meter metric.Meter) (MetricsRecorder, error) {
	m, err := newOtelMetrics(meter)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *otelMetrics) RecordRaise(ctx context.Context, sourceType, field string) {
	m.raised.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source_type", sourceType),
		attribute.String("event_field", field),
	))
}

func (m *otelMetrics) RecordPipeline(ctx context.Context, field string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("event_field", field))
	m.executions.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.pipelineErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordEnqueue(ctx context.Context, queue string) {
	m.enqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", queue)))
}

func (m *otelMetrics) RecordDrain(ctx context.Context, queue string, items int) {
	m.drained.Add(ctx, int64(items), metric.WithAttributes(attribute.String("queue", queue)))
}

func (m *otelMetrics) RecordDiscard(ctx context.Context, queue string, items int) {
	m.discarded.Add(ctx, int64(items), metric.WithAttributes(attribute.String("queue", queue)))
}

func (m *otelMetrics) RecordPublicationFailures(ctx context.Context, failures int) {
	m.publicationFail.Add(ctx, int64(failures))
}
