package p2p

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/metrics"
	"go.uber.org/fx"
)

var log = logging.Logger("module/p2p")

// ConstructModule collects all the components and services related to p2p.
func ConstructModule(cfg *Config) fx.Option {
	// sanitize config values before constructing module
	cfgErr := cfg.Validate()

	baseComponents := fx.Options(
		fx.Supply(cfg),
		fx.Error(cfgErr),
		fx.Provide(BootstrappersFor),
		fx.Provide(Key),
		fx.Provide(id),
		fx.Provide(peerStore),
		fx.Provide(connectionManager),
		fx.Provide(connectionGater),
		fx.Provide(resourceManager),
		fx.Provide(host),
		fx.Provide(routedHost),
		fx.Provide(newDHT),
		fx.Provide(peerRouting),
		fx.Provide(routingDiscovery),
		fx.Provide(addrsFactory(cfg.AnnounceAddresses, cfg.NoAnnounceAddresses)),
		fx.Provide(metrics.NewBandwidthCounter),
		fx.Invoke(Listen(cfg.ListenAddresses)),
	)

	if cfg.EnableDebugMetrics {
		baseComponents = fx.Options(
			baseComponents,
			fx.Provide(prometheusRegistry),
			fx.Invoke(prometheusEndpoint),
		)
	}

	return fx.Module("p2p", baseComponents)
}
