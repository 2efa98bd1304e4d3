package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/steveyegge/j2o/internal/tracker/testutil"
	"github.com/steveyegge/j2o/internal/types"
)

// installTestProviders routes spans and metrics into in-memory collectors.
func installTestProviders(t *testing.T) (*tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	reader := sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	})
	return spans, reader
}

func sumCounter(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestWrapWriterDisabled(t *testing.T) {
	t.Setenv("J2O_OTEL_ENABLED", "")
	inner := testutil.NewMemoryTarget()
	assert.Same(t, inner, WrapWriter(inner))
}

func TestWrapWriterRecordsSpansAndMetrics(t *testing.T) {
	t.Setenv("J2O_OTEL_ENABLED", "true")
	spans, reader := installTestProviders(t)
	ctx := context.Background()

	w := WrapWriter(testutil.NewMemoryTarget())
	_, ok := w.(*InstrumentedWriter)
	require.True(t, ok)

	wp, err := w.CreateEntity(ctx, "proj", types.NewPayload().Subject("hello").CorrelationKey("PROJ-1").Build())
	require.NoError(t, err)
	_, err = w.UpdateEntity(ctx, wp.ID, types.NewPayload().Subject("again").Build(), wp.LockVersion+5)
	require.ErrorIs(t, err, types.ErrStaleVersion)

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "target.CreateEntity", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, "target.UpdateEntity", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(2), sumCounter(t, rm, "j2o.target.operations"))
	assert.Equal(t, int64(1), sumCounter(t, rm, "j2o.target.errors"))
}
