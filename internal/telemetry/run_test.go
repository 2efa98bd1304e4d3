package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/steveyegge/j2o/internal/tracker"
)

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("J2O_OTEL_ENABLED", "1")
	t.Setenv("J2O_OTEL_STDOUT", "")
	t.Setenv("J2O_OTEL_INTERVAL", "5s")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")

	s := SettingsFromEnv()
	assert.True(t, s.Enabled)
	assert.False(t, s.Stdout)
	assert.Equal(t, "localhost:4318", s.OTLPEndpoint)
	assert.Equal(t, 5*time.Second, s.ExportInterval)

	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "http://collector:4318/v1/metrics")
	assert.Equal(t, "http://collector:4318/v1/metrics", SettingsFromEnv().OTLPEndpoint)
}

func TestSetupDisabled(t *testing.T) {
	require.NoError(t, Setup(context.Background(), Settings{}, "j2o", "test"))
	assert.NoError(t, Shutdown(context.Background()))
}

func TestRecordRun(t *testing.T) {
	t.Setenv("J2O_OTEL_ENABLED", "true")
	_, reader := installTestProviders(t)
	ctx := context.Background()

	RecordRun(ctx, "migrate", &tracker.RunReport{Stats: tracker.RunStats{
		Total: 4, Created: 2, Skipped: 1, Errored: 1,
		RelationsCreated: 3, RelationsUnresolved: 1,
	}})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	assert.Equal(t, int64(4), sumCounter(t, rm, "j2o.run.entities"))
	assert.Equal(t, int64(4), sumCounter(t, rm, "j2o.run.relations"))

	created := int64(0)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "j2o.run.entities" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("j2o.outcome")); ok && v.AsString() == "created" {
					created = dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), created)
}

func TestRecordRunDisabled(t *testing.T) {
	t.Setenv("J2O_OTEL_ENABLED", "")
	_, reader := installTestProviders(t)
	RecordRun(context.Background(), "migrate", &tracker.RunReport{Stats: tracker.RunStats{Created: 1}})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.Zero(t, sumCounter(t, rm, "j2o.run.entities"))
}
