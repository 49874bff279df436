package discovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/discovery"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/beaconnode/beacon-node/beacon"
)

var log = logging.Logger("discovery")

const (
	// findPeersTimeout limits the FindPeers operation in time
	findPeersTimeout = time.Minute

	// connectTimeout limits a single dial to a discovered peer.
	connectTimeout = 10 * time.Second

	// retryTimeout defines time interval between advertise attempts.
	retryTimeout = time.Second
)

// query is a pending discovery request for a namespace.
type query struct {
	tag   string
	count int
}

// Discovery runs rate-limited discovery queries on request and advertises the node.
// Found peers are dialed, after which the peer manager learns about them from connection events.
type Discovery struct {
	params    *Parameters
	host      host.Host
	disc      discovery.Discovery
	connector *backoffConnector
	limiter   *rate.Limiter

	queue chan query
	// pending holds tags that are queued or running, so a tag is never queried twice at once.
	pendingLk sync.Mutex
	pending   map[string]struct{}

	metrics *metrics

	cancel context.CancelFunc
	done   chan struct{}
}

// NewDiscovery constructs a new discovery.
func NewDiscovery(params *Parameters, h host.Host, d discovery.Discovery) (*Discovery, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	return &Discovery{
		params:    params,
		host:      h,
		disc:      d,
		connector: newBackoffConnector(h, defaultBackoffFactory),
		limiter:   rate.NewLimiter(rate.Limit(params.QueriesPerSecond), params.QueryBurst),
		queue:     make(chan query, params.MaxQueued),
		pending:   make(map[string]struct{}),
		done:      make(chan struct{}),
	}, nil
}

func (d *Discovery) Start(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	go d.connector.GC(ctx)
	go d.queryLoop(ctx)

	go d.Advertise(ctx, d.params.Tag)
	for _, id := range d.params.AdvertisedSubnets {
		go d.Advertise(ctx, SubnetTag(id))
	}
	return nil
}

func (d *Discovery) Stop(ctx context.Context) error {
	d.cancel()
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DiscoverPeers requests a search for up to count new peers. It never blocks; a request for a
// query that is already pending is dropped.
func (d *Discovery) DiscoverPeers(count int) {
	if count <= 0 {
		return
	}
	d.enqueue(query{tag: d.params.Tag, count: count})
}

// DiscoverSubnetPeers requests a search for peers advertising each of the subnets.
func (d *Discovery) DiscoverSubnetPeers(subnets []beacon.SubnetID) {
	for _, id := range subnets {
		d.enqueue(query{tag: SubnetTag(id), count: d.params.SubnetPeers})
	}
}

func (d *Discovery) enqueue(q query) {
	d.pendingLk.Lock()
	defer d.pendingLk.Unlock()

	if _, ok := d.pending[q.tag]; ok {
		d.metrics.observeEnqueue(context.Background(), q.tag, enqueueDeduplicated)
		log.Debugw("query already pending", "tag", q.tag)
		return
	}

	select {
	case d.queue <- q:
		d.pending[q.tag] = struct{}{}
		d.metrics.observeEnqueue(context.Background(), q.tag, enqueueQueued)
	default:
		d.metrics.observeEnqueue(context.Background(), q.tag, enqueueDropped)
		log.Warnw("discovery queue is full, dropping query", "tag", q.tag)
	}
}

func (d *Discovery) release(tag string) {
	d.pendingLk.Lock()
	defer d.pendingLk.Unlock()
	delete(d.pending, tag)
}

// Pending returns the amount of queued or running queries.
func (d *Discovery) Pending() int {
	d.pendingLk.Lock()
	defer d.pendingLk.Unlock()
	return len(d.pending)
}

// queryLoop runs queued queries no faster than the limiter allows.
func (d *Discovery) queryLoop(ctx context.Context) {
	defer close(d.done)

	var wg errgroup.Group
	wg.SetLimit(d.params.QueryBurst)
	defer wg.Wait() //nolint:errcheck

	for {
		select {
		case q := <-d.queue:
			if err := d.limiter.Wait(ctx); err != nil {
				d.release(q.tag)
				return
			}
			wg.Go(func() error {
				defer d.release(q.tag)
				d.find(ctx, q)
				return nil
			})
		case <-ctx.Done():
			return
		}
	}
}

// find searches the namespace until q.count new peers are connected or the search times out.
func (d *Discovery) find(ctx context.Context, q query) int {
	findCtx, findCancel := context.WithTimeout(ctx, findPeersTimeout)
	defer findCancel()

	log.Debugw("discovering peers", "tag", q.tag, "want", q.count)
	peers, err := d.disc.FindPeers(findCtx, q.tag)
	if err != nil {
		log.Errorw("unable to start discovery", "tag", q.tag, "err", err)
		return 0
	}

	var found int
	for p := range peers {
		if !d.handleDiscoveredPeer(ctx, p) {
			continue
		}
		found++
		log.Debugw("found peer", "peer", p.ID.String(), "tag", q.tag, "found_amount", found)
		if found >= q.count {
			// stop discovery when we are done
			findCancel()
			break
		}
	}

	isEnoughPeers := found >= q.count
	d.metrics.observeFindPeers(ctx, q.tag, isEnoughPeers)
	log.Debugw("discovery finished", "tag", q.tag, "found", found, "discovered_wanted", isEnoughPeers)
	return found
}

// handleDiscoveredPeer dials the peer unless it is us, already connected or in backoff.
// Reports whether a new connection was established.
func (d *Discovery) handleDiscoveredPeer(ctx context.Context, peer peer.AddrInfo) bool {
	logger := log.With("peer", peer.ID.String())
	switch {
	case peer.ID == d.host.ID():
		d.metrics.observeHandlePeer(ctx, handlePeerSkipSelf)
		logger.Debug("skip handle: self discovery")
		return false
	case len(peer.Addrs) == 0:
		d.metrics.observeHandlePeer(ctx, handlePeerEmptyAddrs)
		logger.Debug("skip handle: empty address list")
		return false
	case d.host.Network().Connectedness(peer.ID) == network.Connected:
		d.metrics.observeHandlePeer(ctx, handlePeerAlreadyConnected)
		logger.Debug("skip handle: already connected")
		return false
	}

	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	err := d.connector.Connect(connCtx, peer)
	if errors.Is(err, errBackoffNotEnded) {
		d.metrics.observeHandlePeer(ctx, handlePeerBackoff)
		logger.Debug("skip handle: backoff")
		return false
	}
	if err != nil {
		d.metrics.observeHandlePeer(ctx, handlePeerConnErr)
		logger.Debugw("unable to connect", "err", err)
		return false
	}

	d.metrics.observeHandlePeer(ctx, handlePeerConnected)
	logger.Debug("connected to discovered peer")
	return true
}

// Advertise is a utility function that persistently advertises a service through an Advertiser.
func (d *Discovery) Advertise(ctx context.Context, tag string) {
	timer := time.NewTimer(d.params.AdvertiseInterval)
	defer timer.Stop()
	for {
		_, err := d.disc.Advertise(ctx, tag)
		d.metrics.observeAdvertise(ctx, err)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warnw("error advertising", "rendezvous", tag, "err", err)

			// we don't want retry indefinitely in busy loop
			// internal discovery mechanism may need some time before attempts
			errTimer := time.NewTimer(retryTimeout)
			select {
			case <-errTimer.C:
				errTimer.Stop()
				continue
			case <-ctx.Done():
				errTimer.Stop()
				return
			}
		}

		log.Debugw("advertised", "rendezvous", tag)
		if !timer.Stop() {
			drainChannel(timer.C)
		}
		timer.Reset(d.params.AdvertiseInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}
}

func queryKind(tag string) string {
	if strings.HasPrefix(tag, subnetTagPrefix) {
		return "subnet"
	}
	return "peers"
}

func drainChannel(c <-chan time.Time) {
	for {
		select {
		case <-c:
		default:
			return
		}
	}
}
