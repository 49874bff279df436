package network

import (
	"context"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	routinghelpers "github.com/libp2p/go-libp2p-routing-helpers"
	p2pdisc "github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	drouting "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/beaconnode/beacon-node/beacon"
	"github.com/beaconnode/beacon-node/chain"
	"github.com/beaconnode/beacon-node/libs/pidstore"
	"github.com/beaconnode/beacon-node/network/peers"
	"github.com/beaconnode/beacon-node/network/reqresp"
	"github.com/beaconnode/beacon-node/params"
)

type testNode struct {
	app   *fxtest.App
	host  host.Host
	ds    datastore.Batching
	mgr   *peers.Manager
	known *pidstore.PeerIDStore
	state *chain.State
}

func newTestNode(t *testing.T, h host.Host) *testNode {
	cfg := DefaultConfig()
	cfg.TargetPeers, cfg.MaxPeers = 2, 4

	nd := &testNode{
		host: h,
		ds:   dssync.MutexWrap(datastore.NewMapDatastore()),
	}
	nd.app = fxtest.New(t,
		fx.Supply(params.Private),
		fx.Provide(func() host.Host { return h }),
		// neither advertises nor finds anyone
		fx.Provide(func() p2pdisc.Discovery { return drouting.NewRoutingDiscovery(routinghelpers.Null{}) }),
		fx.Provide(func() datastore.Batching { return nd.ds }),
		ConstructModule(&cfg),
		fx.Populate(&nd.mgr, &nd.known, &nd.state),
	)
	return nd
}

func TestModule_PeersBecomeUsable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	mn, err := mocknet.FullMeshLinked(2)
	require.NoError(t, err)
	hosts := mn.Hosts()

	first, second := newTestNode(t, hosts[0]), newTestNode(t, hosts[1])

	sub, err := hosts[0].EventBus().Subscribe(new(peers.EvtPeerUsable))
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() }) //nolint:errcheck

	first.app.RequireStart()
	second.app.RequireStart()

	_, err = mn.ConnectPeers(hosts[0].ID(), hosts[1].ID())
	require.NoError(t, err)

	select {
	case evt := <-sub.Out():
		assert.Equal(t, hosts[1].ID(), evt.(peers.EvtPeerUsable).Peer)
	case <-ctx.Done():
		t.Fatal("peer never became usable")
	}

	usable, err := first.mgr.UsablePeers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []peer.ID{hosts[1].ID()}, usable)

	first.app.RequireStop()
	second.app.RequireStop()

	// the verified peer was saved for the next run
	known, err := first.known.Load(ctx)
	require.NoError(t, err)
	require.Len(t, known, 1)
	assert.Equal(t, hosts[1].ID(), known[0].ID)
}

func TestModule_ReStatusOnFinalization(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	mn, err := mocknet.FullMeshLinked(2)
	require.NoError(t, err)
	hosts := mn.Hosts()

	first, second := newTestNode(t, hosts[0]), newTestNode(t, hosts[1])

	// status requests the second node serves
	sub, err := hosts[1].EventBus().Subscribe(new(reqresp.EvtStatusReceived))
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() }) //nolint:errcheck

	first.app.RequireStart()
	second.app.RequireStart()
	t.Cleanup(func() {
		first.app.RequireStop()
		second.app.RequireStop()
	})

	_, err = mn.ConnectPeers(hosts[0].ID(), hosts[1].ID())
	require.NoError(t, err)

	nextStatus := func() reqresp.EvtStatusReceived {
		select {
		case evt := <-sub.Out():
			return evt.(reqresp.EvtStatusReceived)
		case <-ctx.Done():
			t.Fatal("no status request received")
			return reqresp.EvtStatusReceived{}
		}
	}
	evt := nextStatus()
	assert.Equal(t, hosts[0].ID(), evt.Peer)
	assert.Zero(t, evt.Status.FinalizedEpoch)

	// moving the head alone is not enough
	head := first.state.CurrentSlot()
	first.state.SetHead(beacon.Root{0x01}, head, beacon.Root{}, 0)
	first.state.SetHead(beacon.Root{0x02}, head, beacon.Root{0x03}, 1)

	evt = nextStatus()
	assert.Equal(t, hosts[0].ID(), evt.Peer)
	assert.Equal(t, beacon.Epoch(1), evt.Status.FinalizedEpoch)
	assert.Equal(t, beacon.Root{0x03}, evt.Status.FinalizedRoot)
}

func TestModule_RedialsKnownPeers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	mn, err := mocknet.FullMeshLinked(2)
	require.NoError(t, err)
	hosts := mn.Hosts()

	first, second := newTestNode(t, hosts[0]), newTestNode(t, hosts[1])
	// saved by a previous run of the first node
	known := peer.AddrInfo{ID: hosts[1].ID(), Addrs: hosts[1].Addrs()}
	require.NoError(t, pidstore.NewPeerIDStore(first.ds).Put(ctx, []peer.AddrInfo{known}))

	second.app.RequireStart()
	first.app.RequireStart()
	t.Cleanup(func() {
		first.app.RequireStop()
		second.app.RequireStop()
	})

	require.Eventually(t, func() bool {
		return hosts[0].Network().Connectedness(hosts[1].ID()) == network.Connected
	}, 10*time.Second, 50*time.Millisecond)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MaxPeers = cfg.TargetPeers - 1
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.AttestationSubnets = []uint64{64}
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BanDuration = 0
	require.Error(t, cfg.Validate())
}
