package nodebuilder

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.uber.org/fx"

	"github.com/beaconnode/beacon-node/libs/utils"
	"github.com/beaconnode/beacon-node/nodebuilder/network"
	"github.com/beaconnode/beacon-node/nodebuilder/node"
	"github.com/beaconnode/beacon-node/nodebuilder/p2p"
	"github.com/beaconnode/beacon-node/params"
)

// WithNetwork specifies the Network to which the Node should connect to.
// WARNING: Use this option with caution and never run the Node with different networks over the same persisted Store.
func WithNetwork(net params.Network) fx.Option {
	return fx.Replace(net)
}

// WithBootstrappers sets custom bootstrap peers.
func WithBootstrappers(peers p2p.Bootstrappers) fx.Option {
	return fx.Replace(peers)
}

// WithMetrics enables metrics exporting for the node.
func WithMetrics(metricOpts []otlpmetrichttp.Option) fx.Option {
	return fx.Options(
		fx.Supply(metricOpts),
		fx.Invoke(initializeMetrics),
		fx.Invoke(node.WithMetrics),
		fx.Invoke(p2p.WithMetrics),
		fx.Invoke(network.WithMetrics),
	)
}

// initializeMetrics initializes the global meter provider.
func initializeMetrics(
	ctx context.Context,
	lc fx.Lifecycle,
	peerID peer.ID,
	net params.Network,
	opts []otlpmetrichttp.Option,
) error {
	provider, err := utils.NewMetricProvider(ctx, utils.MetricProviderConfig{
		ServiceNamespace:  net.String(),
		ServiceName:       "beacon-node",
		ServiceInstanceID: peerID.String(),
		Interval:          10 * time.Second,
		OTLPOptions:       opts,
	})
	if err != nil {
		return err
	}

	err = runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(time.Second),
		runtime.WithMeterProvider(provider),
	)
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.Shutdown(ctx)
		},
	})

	otel.SetMeterProvider(provider)
	return nil
}
