package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	routingdisc "github.com/libp2p/go-libp2p/p2p/discovery/routing"
	basic "github.com/libp2p/go-libp2p/p2p/host/basic"
	"github.com/libp2p/go-libp2p/p2p/host/eventbus"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	swarmt "github.com/libp2p/go-libp2p/p2p/net/swarm/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconnode/beacon-node/beacon"
)

// fakeDiscovery is an in-memory rendezvous point.
type fakeDiscovery struct {
	lk         sync.Mutex
	peers      map[string][]peer.AddrInfo
	advertised map[string]int
	finds      map[string]int
}

func newFakeDiscovery() *fakeDiscovery {
	return &fakeDiscovery{
		peers:      make(map[string][]peer.AddrInfo),
		advertised: make(map[string]int),
		finds:      make(map[string]int),
	}
}

func (f *fakeDiscovery) register(ns string, hosts ...host.Host) {
	f.lk.Lock()
	defer f.lk.Unlock()
	for _, h := range hosts {
		f.peers[ns] = append(f.peers[ns], *host.InfoFromHost(h))
	}
}

func (f *fakeDiscovery) Advertise(_ context.Context, ns string, _ ...discovery.Option) (time.Duration, error) {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.advertised[ns]++
	return time.Hour, nil
}

func (f *fakeDiscovery) FindPeers(_ context.Context, ns string, _ ...discovery.Option) (<-chan peer.AddrInfo, error) {
	f.lk.Lock()
	defer f.lk.Unlock()
	f.finds[ns]++
	ch := make(chan peer.AddrInfo, len(f.peers[ns]))
	for _, p := range f.peers[ns] {
		ch <- p
	}
	close(ch)
	return ch, nil
}

func (f *fakeDiscovery) count(m map[string]int, ns string) int {
	f.lk.Lock()
	defer f.lk.Unlock()
	return m[ns]
}

func startDiscovery(t *testing.T, h host.Host, d discovery.Discovery, opts ...Option) *Discovery {
	params := DefaultParameters()
	params.QueriesPerSecond = 100
	for _, opt := range opts {
		opt(params)
	}
	disc, err := NewDiscovery(params, h, d)
	require.NoError(t, err)
	require.NoError(t, disc.WithMetrics())
	require.NoError(t, disc.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, disc.Stop(ctx))
	})
	return disc
}

func TestDiscovery_DiscoverPeers(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(4)
	require.NoError(t, err)
	hosts := mn.Hosts()

	fake := newFakeDiscovery()
	fake.register(beaconTag, hosts...)
	disc := startDiscovery(t, hosts[0], fake)

	disc.DiscoverPeers(2)
	require.Eventually(t, func() bool {
		return len(hosts[0].Network().Peers()) == 2 && disc.Pending() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, fake.count(fake.finds, beaconTag))

	// connected peers are skipped, only the remaining one is dialed
	disc.DiscoverPeers(3)
	require.Eventually(t, func() bool {
		return fake.count(fake.finds, beaconTag) == 2 && disc.Pending() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, hosts[0].Network().Peers(), 3)
}

func TestDiscovery_DiscoverSubnetPeers(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(3)
	require.NoError(t, err)
	hosts := mn.Hosts()

	fake := newFakeDiscovery()
	fake.register(SubnetTag(3), hosts[2])
	disc := startDiscovery(t, hosts[0], fake)

	disc.DiscoverSubnetPeers([]beacon.SubnetID{3, 4})
	require.Eventually(t, func() bool {
		return hosts[0].Network().Connectedness(hosts[2].ID()) == network.Connected && disc.Pending() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, fake.count(fake.finds, "attnet/3"))
	assert.Equal(t, 1, fake.count(fake.finds, "attnet/4"))
	assert.Equal(t, 0, fake.count(fake.finds, beaconTag))
}

func TestDiscovery_DeduplicatesPendingQueries(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(1)
	require.NoError(t, err)

	params := DefaultParameters()
	params.MaxQueued = 3
	// not started, so queries stay pending
	disc, err := NewDiscovery(params, mn.Hosts()[0], newFakeDiscovery())
	require.NoError(t, err)

	disc.DiscoverPeers(0)
	assert.Equal(t, 0, disc.Pending())

	disc.DiscoverPeers(5)
	disc.DiscoverPeers(1)
	assert.Equal(t, 1, disc.Pending())

	disc.DiscoverSubnetPeers([]beacon.SubnetID{1, 2, 1})
	assert.Equal(t, 3, disc.Pending())

	// queue is full
	disc.DiscoverSubnetPeers([]beacon.SubnetID{9})
	assert.Equal(t, 3, disc.Pending())
	assert.Len(t, disc.queue, 3)
}

func TestDiscovery_Advertise(t *testing.T) {
	mn, err := mocknet.FullMeshLinked(1)
	require.NoError(t, err)

	fake := newFakeDiscovery()
	startDiscovery(t, mn.Hosts()[0], fake, WithAdvertisedSubnets(5))

	require.Eventually(t, func() bool {
		return fake.count(fake.advertised, beaconTag) == 1 && fake.count(fake.advertised, "attnet/5") == 1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDiscovery_OverDHT(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	tn := newTestnet(ctx, t)
	advHost, advRouting := tn.peer()
	seekHost, seekRouting := tn.peer()

	startDiscovery(t, advHost, advRouting,
		WithTag("test/beacon"),
		WithAdvertiseInterval(100*time.Millisecond),
		WithAdvertisedSubnets(7),
	)
	disc := startDiscovery(t, seekHost, seekRouting, WithTag("test/beacon"))

	// the DHT itself may have connected the two while bootstrapping
	require.NoError(t, seekHost.Network().ClosePeer(advHost.ID()))

	require.Eventually(t, func() bool {
		disc.DiscoverSubnetPeers([]beacon.SubnetID{7})
		return seekHost.Network().Connectedness(advHost.ID()) == network.Connected
	}, 30*time.Second, 200*time.Millisecond)
}

// testnet is a DHT network of real hosts bootstrapped off a single server.
type testnet struct {
	ctx context.Context
	t   *testing.T

	bootstrapper peer.AddrInfo
}

func newTestnet(ctx context.Context, t *testing.T) *testnet {
	hst := newSwarmHost(t)
	d, err := dht.New(ctx, hst,
		dht.Mode(dht.ModeServer),
		dht.BootstrapPeers(),
		dht.ProtocolPrefix("/test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() }) //nolint:errcheck

	return &testnet{ctx: ctx, t: t, bootstrapper: *host.InfoFromHost(hst)}
}

func (tn *testnet) peer() (host.Host, discovery.Discovery) {
	hst := newSwarmHost(tn.t)
	require.NoError(tn.t, hst.Connect(tn.ctx, tn.bootstrapper))

	d, err := dht.New(tn.ctx, hst,
		dht.Mode(dht.ModeServer),
		dht.ProtocolPrefix("/test"),
		// fewer connections on the DHT level
		dht.BucketSize(1),
	)
	require.NoError(tn.t, err)
	tn.t.Cleanup(func() { d.Close() }) //nolint:errcheck
	require.NoError(tn.t, d.Bootstrap(tn.ctx))

	return hst, routingdisc.NewRoutingDiscovery(d)
}

func newSwarmHost(t *testing.T) host.Host {
	bus := eventbus.NewBus()
	swarm := swarmt.GenSwarm(t, swarmt.OptDisableTCP, swarmt.EventBus(bus))
	hst, err := basic.NewHost(swarm, &basic.HostOpts{EventBus: bus})
	require.NoError(t, err)
	hst.Start()
	t.Cleanup(func() { hst.Close() }) //nolint:errcheck
	return hst
}

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		wantErr bool
	}{
		{"default", func(*Parameters) {}, false},
		{"zero advertise interval", WithAdvertiseInterval(0), true},
		{"zero query rate", WithQueryRate(0, 1), true},
		{"empty tag", WithTag(""), true},
		{"subnet out of range", WithAdvertisedSubnets(beacon.AttestationSubnetCount), true},
		{"valid subnet", WithAdvertisedSubnets(63), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.opt(p)
			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
