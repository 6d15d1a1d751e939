package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupMetricsTest(t *testing.T) (MetricsRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	m, err := NewMetricsRecorderFromMeter(provider.Meter("eventflow"))
	require.NoError(t, err)
	return m, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, rm *metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	require.NotNil(t, m, "metric %s not recorded", name)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetricsRecorder(t *testing.T) {
	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
	_, isNoop := recorder.(NoopMetrics)
	assert.False(t, isNoop)
}

func TestRecordPipeline(t *testing.T) {
	m, reader := setupMetricsTest(t)
	ctx := context.Background()

	m.RecordRaise(ctx, "*orders.Order", "TotalChanged")
	m.RecordPipeline(ctx, "TotalChanged", 5*time.Millisecond, nil)
	m.RecordPipeline(ctx, "TotalChanged", 2*time.Millisecond, errors.New("boom"))

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumOf(t, rm, "eventflow.events.raised"))
	assert.Equal(t, int64(2), sumOf(t, rm, "eventflow.pipeline.executions"))
	assert.Equal(t, int64(1), sumOf(t, rm, "eventflow.pipeline.errors"))

	latency := findMetric(rm, "eventflow.pipeline.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
}

func TestRecordQueueOperations(t *testing.T) {
	m, reader := setupMetricsTest(t)
	ctx := context.Background()

	m.RecordEnqueue(ctx, "audit")
	m.RecordEnqueue(ctx, "audit")
	m.RecordDrain(ctx, "audit", 2)
	m.RecordDiscard(ctx, "mail", 3)
	m.RecordPublicationFailures(ctx, 4)

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumOf(t, rm, "eventflow.queue.enqueued"))
	assert.Equal(t, int64(2), sumOf(t, rm, "eventflow.queue.drained"))
	assert.Equal(t, int64(3), sumOf(t, rm, "eventflow.queue.discarded"))
	assert.Equal(t, int64(4), sumOf(t, rm, "eventflow.publication.failures"))
}

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordRaise(ctx, "", "")
		m.RecordPipeline(ctx, "", 0, errors.New("x"))
		m.RecordEnqueue(ctx, "")
		m.RecordDrain(ctx, "", 1)
		m.RecordDiscard(ctx, "", 1)
		m.RecordPublicationFailures(ctx, 1)
	})
}
