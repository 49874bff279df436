package peers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/beaconnode/beacon-node/network/reqresp"
)

func TestMetrics_RecordAfterCancel(t *testing.T) {
	reader := sdk.NewManualReader()
	provider := sdk.NewMeterProvider(sdk.WithReader(reader))

	prev := meter
	meter = provider.Meter("test")
	t.Cleanup(func() { meter = prev })

	m, err := initMetrics(&Manager{})
	require.NoError(t, err)

	// results of requests arrive after the loop context is gone on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.observeGoodbye(ctx, reqresp.GoodbyeClientShutdown, true)
	m.observeRequest(ctx, reqresp.MethodGoodbye, errors.New("stream reset"))
	m.observeHeartbeat(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := make(map[string]int64)
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		sum, ok := metric.Data.(metricdata.Sum[int64])
		if !ok {
			continue
		}
		for _, dp := range sum.DataPoints {
			sums[metric.Name] += dp.Value
		}
	}
	assert.EqualValues(t, 1, sums["peer_manager_goodbye_sent"])
	assert.EqualValues(t, 1, sums["peer_manager_outbound_requests"])
	assert.EqualValues(t, 1, sums["peer_manager_heartbeats"])
}
