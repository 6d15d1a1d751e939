package eventflow

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
)

// captureLogs returns a JSON debug logger and a function listing the
// messages written so far.
func captureLogs() (*slog.Logger, func() []map[string]any) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() []map[string]any {
		var out []map[string]any
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}
			var rec map[string]any
			if json.Unmarshal([]byte(line), &rec) == nil {
				out = append(out, rec)
			}
		}
		return out
	}
}

func messages(records []map[string]any) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r["msg"].(string))
	}
	return out
}

// TestObservability_Logging tests routing, queueing, and failures are logged
// with the scope ID.
func TestObservability_Logging(t *testing.T) {
	logger, logs := captureLogs()
	e := New(WithLogger(logger), WithQueues("Q"))
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().
			ThenIsQueuedTo("Q").
			ThenIsPublishedToGlobalSubscriptions()
	}))
	_, err := SubscribeGlobally(e, func(context.Context, *Order, TotalChanged) error { return assert.AnError })
	require.NoError(t, err)
	scope, err := e.NewScope(nil, WithScopeID("scope-1"))
	require.NoError(t, err)
	ctx := testCtx(t)

	require.NoError(t, e.Raise(ctx, scope, &Order{}, "TotalChanged", TotalChanged{}))
	require.Error(t, e.ProcessQueuedEvents(ctx, scope, "Q"))

	records := logs()
	msgs := messages(records)
	assert.Contains(t, msgs, "routing event fired from *eventflow.Order.TotalChanged")
	assert.Contains(t, msgs, "subscription handler failed")
	for _, r := range records {
		if r["msg"] == "subscription handler failed" {
			assert.Equal(t, "scope-1", r["scope_id"])
		}
	}
}

// TestObservability_Metrics tests the engine records OTel metrics.
func TestObservability_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	metrics, err := observability.NewMetricsRecorderFromMeter(provider.Meter("eventflow"))
	require.NoError(t, err)

	e := New(WithMetricsRecorder(metrics), WithQueues("Q"))
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().
			ThenIsQueuedTo("Q").
			ThenIsPublishedToGlobalSubscriptions()
	}))
	scope := newTestScope(t, e, nil)
	ctx := testCtx(t)
	for range 2 {
		require.NoError(t, e.Raise(ctx, scope, &Order{}, "TotalChanged", TotalChanged{}))
	}
	require.NoError(t, e.ProcessQueuedEvents(ctx, scope, "Q"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["eventflow.events.raised"])
	assert.Equal(t, int64(2), sums["eventflow.queue.enqueued"])
	assert.Equal(t, int64(2), sums["eventflow.queue.drained"])
	assert.Equal(t, int64(2), sums["eventflow.pipeline.executions"])
}

// TestObservability_Tracing tests route, pipeline, and drain spans.
func TestObservability_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	e := New(WithSpanManager(observability.NewSpanManagerFromTracer(provider.Tracer("eventflow"))), WithQueues("Q"))
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().
			ThenIsQueuedTo("Q").
			ThenIsPublishedToGlobalSubscriptions()
	}))
	scope := newTestScope(t, e, nil)
	ctx := testCtx(t)
	require.NoError(t, e.Raise(ctx, scope, &Order{}, "TotalChanged", TotalChanged{}))
	require.NoError(t, e.ProcessQueuedEvents(ctx, scope, "Q"))

	var names []string
	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"eventflow.pipeline", "eventflow.route", "eventflow.queue.drain"}, names)
}
