package peers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gammazero/workerpool"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/host/eventbus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/beaconnode/beacon-node/beacon"
	"github.com/beaconnode/beacon-node/network/peers/score"
	"github.com/beaconnode/beacon-node/network/reqresp"
)

var log = logging.Logger("peers")

// eventbusBufSize is the buffer of the manager subscription. The swarm and the req/resp servers
// block on emit once it is full.
const eventbusBufSize = 64

var errStopped = errors.New("peer-manager: stopped")

// peerRecord is the per-connection bookkeeping of a tracked peer. Zero times mean "due now".
type peerRecord struct {
	direction   network.Direction
	connectedAt time.Time
	lastPing    time.Time
	lastStatus  time.Time
	// usable is set once the first status of the connection was accepted.
	usable bool
	// disconnecting is set once a goodbye or close was issued, so it is never issued twice.
	disconnecting    bool
	metadataInFlight bool
}

// Manager keeps the connected set of the node healthy, relevant and within its limits.
type Manager struct {
	params Parameters
	clock  clock.Clock

	bus       event.Bus
	conns     Connections
	transport Transport
	disc      Discoverer
	scores    ScoreReader
	store     MetadataStore
	chain     ChainState

	// owned by the event loop
	peers   map[peer.ID]*peerRecord
	subnets subnetMap
	// stopping is set once Stop began. Nothing new is scheduled from then on.
	stopping bool

	ops     chan func(context.Context)
	workers *workerpool.WorkerPool

	sub         event.Subscription
	usableEmit  event.Emitter
	updatedEmit event.Emitter
	goneEmit    event.Emitter
	counts      peerCounts
	metrics     *metrics
	cancel      context.CancelFunc
	done        chan struct{}
	stopOnce    sync.Once
}

// NewManager creates a peer manager. Nothing happens until it is started.
func NewManager(
	params Parameters,
	bus event.Bus,
	conns Connections,
	transport Transport,
	disc Discoverer,
	scores ScoreReader,
	store MetadataStore,
	chain ChainState,
	opts ...Option,
) (*Manager, error) {
	for _, opt := range opts {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.StatusInterval == 0 {
		params.StatusInterval = chain.Config().EpochDuration()
	}
	clk := params.clock
	if clk == nil {
		clk = clock.New()
	}

	return &Manager{
		params:    params,
		clock:     clk,
		bus:       bus,
		conns:     conns,
		transport: transport,
		disc:      disc,
		scores:    scores,
		store:     store,
		chain:     chain,
		peers:     make(map[peer.ID]*peerRecord),
		subnets:   make(subnetMap),
		ops:       make(chan func(context.Context)),
		done:      make(chan struct{}),
	}, nil
}

// Start subscribes to connection and req/resp events and kicks off the event loop. Peers that are
// already connected are tracked right away.
func (m *Manager) Start(context.Context) error {
	sub, err := m.bus.Subscribe([]interface{}{
		new(event.EvtPeerConnectednessChanged),
		new(reqresp.EvtPingReceived),
		new(reqresp.EvtStatusReceived),
		new(reqresp.EvtGoodbyeReceived),
	}, eventbus.BufSize(eventbusBufSize))
	if err != nil {
		return fmt.Errorf("peer-manager: subscribing to events: %w", err)
	}
	m.sub = sub

	if m.usableEmit, err = m.bus.Emitter(new(EvtPeerUsable)); err != nil {
		return fmt.Errorf("peer-manager: creating emitter: %w", err)
	}
	if m.updatedEmit, err = m.bus.Emitter(new(EvtPeerStatusUpdated)); err != nil {
		return fmt.Errorf("peer-manager: creating emitter: %w", err)
	}
	if m.goneEmit, err = m.bus.Emitter(new(EvtPeerGone)); err != nil {
		return fmt.Errorf("peer-manager: creating emitter: %w", err)
	}

	m.workers = workerpool.New(m.params.Workers)
	heartbeat := m.clock.Ticker(m.params.HeartbeatInterval)
	check := m.clock.Ticker(m.params.CheckInterval)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.run(ctx, m.conns.Peers(), heartbeat, check)
	return nil
}

// Stop stops scheduling new work, says goodbye to every connected peer and stops the event loop.
// Calling it more than once, or on a manager that was never started, is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel == nil {
		return nil
	}
	var err error
	m.stopOnce.Do(func() {
		err = m.stop(ctx)
	})
	return err
}

func (m *Manager) stop(ctx context.Context) error {
	// the loop still handles events and results of in-flight requests until it is canceled
	err := m.exec(ctx, func(context.Context) {
		m.stopping = true
	})
	if err != nil && !errors.Is(err, errStopped) {
		log.Warnw("pausing peer manager", "err", err)
	}

	if err := m.GoodbyeAndDisconnectAllPeers(ctx); err != nil {
		log.Warnw("saying goodbye to peers", "err", err)
	}

	m.cancel()
	select {
	case <-m.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.workers.Stop()

	return multierr.Combine(
		m.sub.Close(),
		m.usableEmit.Close(),
		m.updatedEmit.Close(),
		m.goneEmit.Close(),
	)
}

// ReStatusPeers marks the peers as due for a status request and requests it right away.
func (m *Manager) ReStatusPeers(ctx context.Context, peers []peer.ID) error {
	return m.exec(ctx, func(ctx context.Context) {
		for _, p := range peers {
			if rec, ok := m.peers[p]; ok {
				rec.lastStatus = time.Time{}
			}
		}
		m.pingAndStatusTimeouts(ctx)
	})
}

// RequestSubnets keeps the subnets covered until the requested slots and runs a heartbeat, so
// missing subnets are searched for immediately.
func (m *Manager) RequestSubnets(ctx context.Context, subnets []RequestedSubnet) error {
	return m.exec(ctx, func(ctx context.Context) {
		m.subnets.request(subnets, m.chain.CurrentSlot())
		m.heartbeat(ctx)
	})
}

// UsablePeers returns the connected peers whose status was accepted, sorted by ID.
func (m *Manager) UsablePeers(ctx context.Context) ([]peer.ID, error) {
	var out []peer.ID
	err := m.exec(ctx, func(context.Context) {
		for p, rec := range m.peers {
			if rec.usable && !rec.disconnecting {
				out = append(out, p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, err
}

// GoodbyeAndDisconnectAllPeers sends a client shutdown goodbye to every connected peer and closes
// the connections. Peers are handled concurrently.
func (m *Manager) GoodbyeAndDisconnectAllPeers(ctx context.Context) error {
	var eg errgroup.Group
	for _, p := range m.conns.Peers() {
		eg.Go(func() error {
			m.goodbyeAndClose(ctx, p, reqresp.GoodbyeClientShutdown)
			return nil
		})
	}
	return eg.Wait()
}

// exec runs op on the event loop and waits for it to finish.
func (m *Manager) exec(ctx context.Context, op func(context.Context)) error {
	done := make(chan struct{})
	wrapped := func(ctx context.Context) {
		defer close(done)
		op(ctx)
	}

	select {
	case m.ops <- wrapped:
	case <-m.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-m.done:
		return errStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post hands a continuation of an outbound request back to the event loop.
func (m *Manager) post(ctx context.Context, op func(context.Context)) {
	select {
	case m.ops <- op:
	case <-ctx.Done():
	}
}

func (m *Manager) run(ctx context.Context, connected []peer.ID, heartbeat, check *clock.Ticker) {
	defer close(m.done)
	defer heartbeat.Stop()
	defer check.Stop()

	for _, p := range connected {
		m.onConnect(ctx, p)
	}

	for {
		select {
		case e, ok := <-m.sub.Out():
			if !ok {
				return
			}
			m.handleEvent(ctx, e)
		case op := <-m.ops:
			op(ctx)
		case <-check.C:
			m.pingAndStatusTimeouts(ctx)
		case <-heartbeat.C:
			m.heartbeat(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, e interface{}) {
	switch evt := e.(type) {
	case event.EvtPeerConnectednessChanged:
		if evt.Connectedness == network.Connected {
			m.onConnect(ctx, evt.Peer)
			return
		}
		m.onDisconnect(evt.Peer)
	case reqresp.EvtPingReceived:
		m.onPing(ctx, evt.Peer, evt.Seq)
	case reqresp.EvtStatusReceived:
		m.onStatus(ctx, evt.Peer, evt.Status)
	case reqresp.EvtGoodbyeReceived:
		m.onGoodbye(ctx, evt.Peer, evt.Reason)
	}
}

func (m *Manager) onConnect(ctx context.Context, p peer.ID) {
	if _, ok := m.peers[p]; ok {
		return
	}
	if m.stopping {
		m.goodbyeAndDisconnect(ctx, p, reqresp.GoodbyeClientShutdown)
		return
	}

	dir := network.DirUnknown
	if conns := m.conns.ConnsToPeer(p); len(conns) > 0 {
		dir = conns[0].Stat().Direction
	}
	m.peers[p] = &peerRecord{
		direction:   dir,
		connectedAt: m.clock.Now(),
	}
	m.updateCounts()
	log.Debugw("peer connected", "peer", p, "direction", dir)
}

func (m *Manager) onDisconnect(p peer.ID) {
	rec, ok := m.peers[p]
	if !ok {
		return
	}
	delete(m.peers, p)
	m.updateCounts()
	log.Debugw("peer disconnected", "peer", p, "direction", rec.direction,
		"connected_for", m.clock.Since(rec.connectedAt))

	if err := m.goneEmit.Emit(EvtPeerGone{Peer: p}); err != nil {
		log.Warnw("emitting peer gone", "peer", p, "err", err)
	}
}

func (m *Manager) onPing(ctx context.Context, p peer.ID, seq uint64) {
	if rec, ok := m.peers[p]; ok {
		rec.lastPing = m.clock.Now()
	}
	m.checkMetadataSeq(ctx, p, seq)
}

// checkMetadataSeq requests metadata when the peer announced a sequence number newer than the
// one stored, or when nothing is stored yet.
func (m *Manager) checkMetadataSeq(ctx context.Context, p peer.ID, seq uint64) {
	rec, ok := m.peers[p]
	if !ok || m.stopping || rec.disconnecting || rec.metadataInFlight {
		return
	}
	if md, ok := m.store.Metadata(ctx, p); ok && md.SeqNumber >= seq {
		return
	}
	rec.metadataInFlight = true
	m.requestMetadata(ctx, p)
}

func (m *Manager) onMetadata(ctx context.Context, p peer.ID, md beacon.Metadata, err error) {
	if rec, ok := m.peers[p]; ok {
		rec.metadataInFlight = false
	}
	if err != nil {
		return
	}
	if err := m.store.SetMetadata(ctx, p, md); err != nil {
		log.Errorw("storing peer metadata", "peer", p, "err", err)
	}
}

func (m *Manager) onStatus(ctx context.Context, p peer.ID, st beacon.Status) {
	rec, ok := m.peers[p]
	if !ok || rec.disconnecting {
		m.metrics.observeStatus(ctx, statusFromDisconnected)
		return
	}
	rec.lastStatus = m.clock.Now()

	if err := assertPeerRelevance(st, m.chain); err != nil {
		log.Debugw("disconnecting irrelevant peer", "peer", p, "err", err)
		m.metrics.observeStatus(ctx, statusIrrelevant)
		m.goodbyeAndDisconnect(ctx, p, reqresp.GoodbyeIrrelevantNetwork)
		return
	}
	m.metrics.observeStatus(ctx, statusAccepted)

	if err := m.store.SetStatus(ctx, p, st); err != nil {
		log.Errorw("storing peer status", "peer", p, "err", err)
	}

	var err error
	if !rec.usable {
		rec.usable = true
		m.updateCounts()
		err = m.usableEmit.Emit(EvtPeerUsable{Peer: p, Status: st})
	} else {
		err = m.updatedEmit.Emit(EvtPeerStatusUpdated{Peer: p, Status: st})
	}
	if err != nil {
		log.Warnw("emitting peer status", "peer", p, "err", err)
	}
}

func (m *Manager) onGoodbye(ctx context.Context, p peer.ID, reason reqresp.GoodbyeReason) {
	log.Debugw("received goodbye", "peer", p, "reason", uint64(reason), "description", reason.String())
	m.metrics.observeGoodbye(ctx, reason, false)
	m.disconnect(p)
}

// heartbeat drops peers that are scored out, trims the connected set to the limits and asks
// discovery for whatever is missing.
func (m *Manager) heartbeat(ctx context.Context) {
	if m.stopping {
		return
	}
	m.metrics.observeHeartbeat(ctx)

	var healthy []PeerInfo
	for _, p := range m.conns.Peers() {
		if rec, ok := m.peers[p]; ok && rec.disconnecting {
			continue
		}

		switch m.scores.State(p) {
		case score.Banned:
			m.goodbyeAndDisconnect(ctx, p, reqresp.GoodbyeBanned)
		case score.Disconnect:
			m.goodbyeAndDisconnect(ctx, p, reqresp.GoodbyeScoreTooLow)
		default:
			md, _ := m.store.Metadata(ctx, p)
			healthy = append(healthy, PeerInfo{
				ID:      p,
				Attnets: md.Attnets,
				Score:   m.scores.Score(p),
			})
		}
	}

	current := m.chain.CurrentSlot()
	m.subnets.prune(current)
	res := PrioritizePeers(healthy, m.subnets.active(current), Limits{
		TargetPeers: m.params.TargetPeers,
		MaxPeers:    m.params.MaxPeers,
	})

	if len(res.SubnetQueries) > 0 {
		m.metrics.observeDiscovery(ctx, discoverySubnets, len(res.SubnetQueries))
		m.disc.DiscoverSubnetPeers(res.SubnetQueries)
	}
	if res.PeersToConnect > 0 {
		m.metrics.observeDiscovery(ctx, discoveryPeers, res.PeersToConnect)
		m.disc.DiscoverPeers(res.PeersToConnect)
	}
	for _, p := range res.PeersToDisconnect {
		m.goodbyeAndDisconnect(ctx, p, reqresp.GoodbyeTooManyPeers)
	}

	log.Debugw("heartbeat",
		"healthy", len(healthy),
		"disconnecting", len(res.PeersToDisconnect),
		"subnet_queries", len(res.SubnetQueries),
		"peers_to_connect", res.PeersToConnect,
	)
}

// pingAndStatusTimeouts pings and requests status from every peer whose interval elapsed.
func (m *Manager) pingAndStatusTimeouts(ctx context.Context) {
	if m.stopping {
		return
	}
	now := m.clock.Now()

	var toStatus []peer.ID
	for p, rec := range m.peers {
		if rec.disconnecting {
			continue
		}
		if now.Sub(rec.lastPing) > m.params.PingInterval {
			rec.lastPing = now
			m.requestPing(ctx, p)
		}
		if now.Sub(rec.lastStatus) > m.params.StatusInterval {
			rec.lastStatus = now
			toStatus = append(toStatus, p)
		}
	}

	if len(toStatus) > 0 {
		sort.Slice(toStatus, func(i, j int) bool { return toStatus[i] < toStatus[j] })
		m.requestStatus(ctx, toStatus)
	}
}

func (m *Manager) requestPing(ctx context.Context, p peer.ID) {
	m.workers.Submit(func() {
		reqCtx, cancel := context.WithTimeout(ctx, m.params.RequestTimeout)
		defer cancel()

		seq, err := m.transport.Ping(reqCtx, p)
		m.metrics.observeRequest(ctx, reqresp.MethodPing, err)
		if err != nil {
			log.Debugw("pinging peer", "peer", p, "err", err)
			return
		}
		m.post(ctx, func(ctx context.Context) {
			m.checkMetadataSeq(ctx, p, seq)
		})
	})
}

func (m *Manager) requestMetadata(ctx context.Context, p peer.ID) {
	m.workers.Submit(func() {
		reqCtx, cancel := context.WithTimeout(ctx, m.params.RequestTimeout)
		defer cancel()

		md, err := m.transport.Metadata(reqCtx, p)
		m.metrics.observeRequest(ctx, reqresp.MethodMetadata, err)
		if err != nil {
			log.Debugw("requesting metadata", "peer", p, "err", err)
		}
		m.post(ctx, func(ctx context.Context) {
			m.onMetadata(ctx, p, md, err)
		})
	})
}

// requestStatus exchanges status with the peers concurrently. A peer that fails to answer is
// disconnected, the rest of the batch is not affected.
func (m *Manager) requestStatus(ctx context.Context, peers []peer.ID) {
	local := m.chain.Status()
	m.workers.Submit(func() {
		var eg errgroup.Group
		for _, p := range peers {
			eg.Go(func() error {
				reqCtx, cancel := context.WithTimeout(ctx, m.params.RequestTimeout)
				defer cancel()

				remote, err := m.transport.Status(reqCtx, p, local)
				m.metrics.observeRequest(ctx, reqresp.MethodStatus, err)
				if err != nil {
					log.Debugw("requesting status, disconnecting", "peer", p, "err", err)
					m.metrics.observeStatus(ctx, statusFailed)
					m.post(ctx, func(context.Context) {
						m.disconnect(p)
					})
					return nil
				}
				m.post(ctx, func(ctx context.Context) {
					m.onStatus(ctx, p, remote)
				})
				return nil
			})
		}
		eg.Wait() //nolint:errcheck
	})
}

// markDisconnecting reports whether the peer was not already on its way out.
func (m *Manager) markDisconnecting(p peer.ID) bool {
	rec, ok := m.peers[p]
	if !ok {
		return true
	}
	if rec.disconnecting {
		return false
	}
	rec.disconnecting = true
	return true
}

func (m *Manager) disconnect(p peer.ID) {
	if !m.markDisconnecting(p) {
		return
	}
	m.workers.Submit(func() {
		if err := m.conns.ClosePeer(p); err != nil {
			log.Debugw("closing peer", "peer", p, "err", err)
		}
	})
}

func (m *Manager) goodbyeAndDisconnect(ctx context.Context, p peer.ID, reason reqresp.GoodbyeReason) {
	if !m.markDisconnecting(p) {
		return
	}
	m.workers.Submit(func() {
		m.goodbyeAndClose(ctx, p, reason)
	})
}

// goodbyeAndClose sends the goodbye and closes the connections even if the goodbye failed.
func (m *Manager) goodbyeAndClose(ctx context.Context, p peer.ID, reason reqresp.GoodbyeReason) {
	reqCtx, cancel := context.WithTimeout(ctx, m.params.RequestTimeout)
	defer cancel()

	log.Debugw("saying goodbye", "peer", p, "reason", reason.String())
	m.metrics.observeGoodbye(ctx, reason, true)
	err := m.transport.Goodbye(reqCtx, p, reason)
	m.metrics.observeRequest(ctx, reqresp.MethodGoodbye, err)
	if err != nil {
		log.Debugw("sending goodbye", "peer", p, "reason", reason.String(), "err", err)
	}

	if err := m.conns.ClosePeer(p); err != nil {
		log.Debugw("closing peer", "peer", p, "err", err)
	}
}

func (m *Manager) updateCounts() {
	var in, out, unknown, usable int64
	for _, rec := range m.peers {
		switch rec.direction {
		case network.DirInbound:
			in++
		case network.DirOutbound:
			out++
		default:
			unknown++
		}
		if rec.usable {
			usable++
		}
	}
	m.counts.inbound.Store(in)
	m.counts.outbound.Store(out)
	m.counts.unknown.Store(unknown)
	m.counts.usable.Store(usable)
}
