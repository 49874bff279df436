package node

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestWithMetrics(t *testing.T) {
	reader := sdk.NewManualReader()
	provider := sdk.NewMeterProvider(sdk.WithReader(reader))

	meter = provider.Meter("test")
	require.NoError(t, WithMetrics())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := make(map[string]metricdata.Aggregation)
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = m.Data
	}
	require.Contains(t, names, "node_start_ts")
	require.Contains(t, names, "node_runtime_counter_in_seconds")
	require.Contains(t, names, "node_build_info")

	startTS, ok := names["node_start_ts"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, startTS.DataPoints, 1)
	assert.Positive(t, startTS.DataPoints[0].Value)

	build, ok := names["node_build_info"].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, build.DataPoints, 1)
	assert.EqualValues(t, 1, build.DataPoints[0].Value)
}
