package nodebuilder

import (
	"context"

	"go.uber.org/fx"

	"github.com/beaconnode/beacon-node/libs/fxutil"
	"github.com/beaconnode/beacon-node/nodebuilder/network"
	"github.com/beaconnode/beacon-node/nodebuilder/p2p"
	"github.com/beaconnode/beacon-node/params"
)

func ConstructModule(net params.Network, cfg *Config, store Store) fx.Option {
	baseComponents := fx.Options(
		fx.Supply(net),
		fx.Supply(cfg),
		fx.Provide(func(lc fx.Lifecycle) context.Context {
			return fxutil.WithLifecycle(context.Background(), lc)
		}),
		fx.Provide(store.Datastore),
		// in-memory stores have nowhere to put heap profiles
		fxutil.InvokeIf(store.Path() != "", invokeWatchdog(pprofPath(store.Path()))),
		// modules provided by the node
		p2p.ConstructModule(&cfg.P2P),
		network.ConstructModule(&cfg.Network),
	)

	return fx.Module(
		"node",
		baseComponents,
	)
}
