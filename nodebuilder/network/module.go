package network

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
	p2pdisc "github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/host"
	"go.uber.org/fx"

	"github.com/beaconnode/beacon-node/beacon"
	"github.com/beaconnode/beacon-node/chain"
	"github.com/beaconnode/beacon-node/libs/pidstore"
	"github.com/beaconnode/beacon-node/network/discovery"
	"github.com/beaconnode/beacon-node/network/peers"
	"github.com/beaconnode/beacon-node/network/peers/metastore"
	"github.com/beaconnode/beacon-node/network/peers/score"
	"github.com/beaconnode/beacon-node/network/reqresp"
	"github.com/beaconnode/beacon-node/params"
)

var log = logging.Logger("module/network")

// ConstructModule collects the beacon networking stack: local chain view, req/resp protocols,
// discovery, peer stores and the peer manager.
func ConstructModule(cfg *Config) fx.Option {
	// sanitize config values before constructing module
	cfgErr := cfg.Validate()

	baseComponents := fx.Options(
		fx.Supply(cfg),
		fx.Error(cfgErr),
		fx.Provide(params.ChainConfigFor),
		fx.Provide(func(cfg beacon.Config) *chain.State {
			return chain.NewState(beacon.NewClock(cfg, clock.New()))
		}),
		fx.Provide(func() *reqresp.LocalMetadata {
			return reqresp.NewLocalMetadata(beacon.NewAttnets(cfg.subnets()...))
		}),
		fx.Provide(func() (*score.Store, error) {
			return score.NewStore(cfg.scoreParameters(), clock.New())
		}),
		fx.Provide(func(ds datastore.Batching) (*metastore.Store, error) {
			return metastore.NewStore(ds, cfg.MetadataCacheSize)
		}),
		reqRespComponents(cfg),
		discoveryComponents(cfg),
		peerManagerComponents(cfg),
		fx.Invoke(reStatusOnFinalization),
	)

	if cfg.PersistKnownPeers {
		baseComponents = fx.Options(
			baseComponents,
			fx.Provide(func(ds datastore.Batching) *pidstore.PeerIDStore {
				return pidstore.NewPeerIDStore(ds)
			}),
			fx.Invoke(knownPeers),
		)
	}

	return fx.Module("network", baseComponents)
}

func reqRespComponents(cfg *Config) fx.Option {
	return fx.Provide(fx.Annotate(
		func(h host.Host, state *chain.State, local *reqresp.LocalMetadata) (*reqresp.ReqResp, error) {
			return reqresp.New(h, state, local, reqresp.WithRequestTimeout(cfg.RequestTimeout))
		},
		fx.OnStart(func(ctx context.Context, rr *reqresp.ReqResp) error {
			return rr.Start(ctx)
		}),
		fx.OnStop(func(ctx context.Context, rr *reqresp.ReqResp) error {
			return rr.Stop(ctx)
		}),
	))
}

func discoveryComponents(cfg *Config) fx.Option {
	return fx.Provide(fx.Annotate(
		func(h host.Host, d p2pdisc.Discovery, chainCfg beacon.Config) (*discovery.Discovery, error) {
			return discovery.NewDiscovery(cfg.discoveryParameters(discoveryTag(chainCfg)), h, d)
		},
		fx.OnStart(func(ctx context.Context, d *discovery.Discovery) error {
			return d.Start(ctx)
		}),
		fx.OnStop(func(ctx context.Context, d *discovery.Discovery) error {
			return d.Stop(ctx)
		}),
	))
}

func peerManagerComponents(cfg *Config) fx.Option {
	return fx.Provide(fx.Annotate(
		func(
			h host.Host,
			rr *reqresp.ReqResp,
			disc *discovery.Discovery,
			scores *score.Store,
			store *metastore.Store,
			state *chain.State,
		) (*peers.Manager, error) {
			return peers.NewManager(cfg.managerParameters(), h.EventBus(), h.Network(), rr, disc, scores, store, state)
		},
		fx.OnStart(func(ctx context.Context, mgr *peers.Manager) error {
			return mgr.Start(ctx)
		}),
		fx.OnStop(func(ctx context.Context, mgr *peers.Manager) error {
			return mgr.Stop(ctx)
		}),
	))
}

// discoveryTag separates rendezvous namespaces of different forks.
func discoveryTag(cfg beacon.Config) string {
	return fmt.Sprintf("beacon/%s", cfg.ForkDigest)
}
