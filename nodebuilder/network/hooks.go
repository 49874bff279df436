package network

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"

	"github.com/beaconnode/beacon-node/beacon"
	"github.com/beaconnode/beacon-node/chain"
	"github.com/beaconnode/beacon-node/libs/pidstore"
	"github.com/beaconnode/beacon-node/network/peers"
)

const (
	reStatusTimeout  = 30 * time.Second
	dialKnownTimeout = 10 * time.Second
	// dialKnownLimit bounds concurrent dials of known peers on start.
	dialKnownLimit = 8
)

// reStatusOnFinalization asks every connected peer for a new status once the local finalized
// checkpoint moves, so peers that stayed on another fork are found.
func reStatusOnFinalization(lc fx.Lifecycle, state *chain.State, mgr *peers.Manager, h host.Host) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		cancel()
		return nil
	}})

	var (
		lk        sync.Mutex
		finalized = state.Status().FinalizedEpoch
	)
	state.SubscribeHead(func(st beacon.Status) {
		lk.Lock()
		moved := st.FinalizedEpoch != finalized
		finalized = st.FinalizedEpoch
		lk.Unlock()
		if !moved {
			return
		}

		// listeners are called synchronously by the chain
		go func() {
			ctx, cancel := context.WithTimeout(ctx, reStatusTimeout)
			defer cancel()
			if err := mgr.ReStatusPeers(ctx, h.Network().Peers()); err != nil && ctx.Err() == nil {
				log.Warnw("re-status peers after finalization", "epoch", st.FinalizedEpoch, "err", err)
			}
		}()
	})
}

// knownPeers redials the peers verified in the previous run and saves the currently verified ones
// on stop. It is registered after the peer manager, so it stops before the manager disconnects.
func knownPeers(lc fx.Lifecycle, store *pidstore.PeerIDStore, mgr *peers.Manager, h host.Host) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			known, err := store.Load(startCtx)
			if err != nil {
				return err
			}
			go func() {
				defer close(done)
				dialKnown(ctx, h, known)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}

			ids, err := mgr.UsablePeers(stopCtx)
			if err != nil {
				return err
			}
			infos := make([]peer.AddrInfo, 0, len(ids))
			for _, id := range ids {
				info := h.Peerstore().PeerInfo(id)
				if len(info.Addrs) == 0 {
					continue
				}
				infos = append(infos, info)
			}
			return store.Put(stopCtx, infos)
		},
	})
}

func dialKnown(ctx context.Context, h host.Host, known []peer.AddrInfo) {
	var dials errgroup.Group
	dials.SetLimit(dialKnownLimit)
	defer dials.Wait() //nolint:errcheck

	for _, info := range known {
		if info.ID == h.ID() {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		dials.Go(func() error {
			dialCtx, cancel := context.WithTimeout(ctx, dialKnownTimeout)
			defer cancel()
			if err := h.Connect(dialCtx, info); err != nil {
				log.Debugw("dialing known peer", "peer", info.ID.String(), "err", err)
			}
			return nil
		})
	}
}
