package p2p

import (
	"context"

	"github.com/ipfs/go-datastore"
	coreconnmgr "github.com/libp2p/go-libp2p/core/connmgr"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/host/peerstore/pstoremem"
	"github.com/libp2p/go-libp2p/p2p/net/conngater"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"go.uber.org/fx"
)

const protectedBootstrapper = "bootstrap"

// connectionManager constructs the libp2p connection manager. Bootstrappers are protected from
// trimming.
func connectionManager(cfg *Config, bpeers Bootstrappers) (coreconnmgr.ConnManager, error) {
	cm, err := connmgr.NewConnManager(
		cfg.ConnManager.Low,
		cfg.ConnManager.High,
		connmgr.WithGracePeriod(cfg.ConnManager.GracePeriod),
	)
	if err != nil {
		return nil, err
	}

	for _, info := range bpeers {
		cm.Protect(info.ID, protectedBootstrapper)
	}
	return cm, nil
}

// connectionGater constructs a BasicConnectionGater persisting blocked peers in the datastore.
func connectionGater(ds datastore.Batching) (*conngater.BasicConnectionGater, error) {
	return conngater.NewBasicConnectionGater(ds)
}

// peerStore constructs an in-memory Peerstore closed together with the node.
func peerStore(lc fx.Lifecycle) (peerstore.Peerstore, error) {
	pstore, err := pstoremem.NewPeerstore()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		return pstore.Close()
	}})
	return pstore, nil
}
