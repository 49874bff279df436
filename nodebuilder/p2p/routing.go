package p2p

import (
	"context"
	"fmt"

	"github.com/ipfs/go-datastore"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/core/routing"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	"go.uber.org/fx"

	"github.com/beaconnode/beacon-node/params"
)

// dhtProtocolPrefix separates DHTs of different networks.
func dhtProtocolPrefix(net params.Network) protocol.ID {
	return protocol.ID(fmt.Sprintf("/beacon/%s", net))
}

func newDHT(
	ctx context.Context,
	lc fx.Lifecycle,
	net params.Network,
	bootstrappers Bootstrappers,
	host HostBase,
	dataStore datastore.Batching,
) (*dht.IpfsDHT, error) {
	opts := []dht.Option{
		dht.Mode(dht.ModeAutoServer),
		dht.ProtocolPrefix(dhtProtocolPrefix(net)),
		dht.Datastore(dataStore),
	}
	// no bootstrappers for a bootstrapper
	// otherwise dht.Bootstrap(OnStart hook) will deadlock
	if len(bootstrappers) > 0 {
		opts = append(opts, dht.BootstrapPeers(bootstrappers...))
	}

	d, err := dht.New(ctx, host, opts...)
	if err != nil {
		return nil, fmt.Errorf("p2p: constructing DHT: %w", err)
	}
	lc.Append(fx.Hook{
		OnStart: d.Bootstrap,
		OnStop: func(context.Context) error {
			return d.Close()
		},
	})
	return d, nil
}

func peerRouting(dht *dht.IpfsDHT) routing.PeerRouting {
	return dht
}

// routingDiscovery advertises and finds peers through the DHT.
func routingDiscovery(dht *dht.IpfsDHT) discovery.Discovery {
	return drouting.NewRoutingDiscovery(dht)
}
