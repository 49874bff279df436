package peers

import (
	"context"
	"sync/atomic"

	"github.com/libp2p/go-libp2p/core/network"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/beaconnode/beacon-node/libs/utils"
	"github.com/beaconnode/beacon-node/network/reqresp"
)

const (
	directionKey = "direction"
	usableKey    = "usable"

	goodbyeReasonKey = "reason"

	statusResultKey                     = "result"
	statusAccepted         statusResult = "accepted"
	statusIrrelevant       statusResult = "irrelevant"
	statusFailed           statusResult = "failed"
	statusFromDisconnected statusResult = "peer_gone"

	requestMethodKey = "method"
	requestFailedKey = "failed"

	discoveryKindKey               = "kind"
	discoveryPeers   discoveryKind = "peers"
	discoverySubnets discoveryKind = "subnets"
)

var meter = otel.Meter("peer_manager")

type (
	statusResult  string
	discoveryKind string
)

// peerCounts is a snapshot of the tracked set, updated by the event loop and read by metrics.
type peerCounts struct {
	inbound  atomic.Int64
	outbound atomic.Int64
	unknown  atomic.Int64
	usable   atomic.Int64
}

type metrics struct {
	goodbyeSent     metric.Int64Counter // attributes: reason
	goodbyeReceived metric.Int64Counter // attributes: reason
	statusResult    metric.Int64Counter // attributes: result
	requests        metric.Int64Counter // attributes: method, failed
	discovery       metric.Int64Counter // attributes: kind
	heartbeats      metric.Int64Counter
}

func initMetrics(m *Manager) (*metrics, error) {
	goodbyeSent, err := meter.Int64Counter("peer_manager_goodbye_sent",
		metric.WithDescription("goodbye messages sent to peers by reason"))
	if err != nil {
		return nil, err
	}

	goodbyeReceived, err := meter.Int64Counter("peer_manager_goodbye_received",
		metric.WithDescription("goodbye messages received from peers by reason"))
	if err != nil {
		return nil, err
	}

	statusResultCounter, err := meter.Int64Counter("peer_manager_status_result",
		metric.WithDescription("outcome of status exchanges"))
	if err != nil {
		return nil, err
	}

	requests, err := meter.Int64Counter("peer_manager_outbound_requests",
		metric.WithDescription("outbound requests issued by the peer manager"))
	if err != nil {
		return nil, err
	}

	discovery, err := meter.Int64Counter("peer_manager_discovery_requests",
		metric.WithDescription("discovery requests issued on heartbeat"))
	if err != nil {
		return nil, err
	}

	heartbeats, err := meter.Int64Counter("peer_manager_heartbeats",
		metric.WithDescription("heartbeats run"))
	if err != nil {
		return nil, err
	}

	peers, err := meter.Int64ObservableGauge("peer_manager_peers",
		metric.WithDescription("tracked peers by connection direction"))
	if err != nil {
		return nil, err
	}

	usable, err := meter.Int64ObservableGauge("peer_manager_usable_peers",
		metric.WithDescription("peers with an accepted status"))
	if err != nil {
		return nil, err
	}

	callback := func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(peers, m.counts.inbound.Load(),
			metric.WithAttributes(attribute.String(directionKey, network.DirInbound.String())))
		observer.ObserveInt64(peers, m.counts.outbound.Load(),
			metric.WithAttributes(attribute.String(directionKey, network.DirOutbound.String())))
		observer.ObserveInt64(peers, m.counts.unknown.Load(),
			metric.WithAttributes(attribute.String(directionKey, network.DirUnknown.String())))
		observer.ObserveInt64(usable, m.counts.usable.Load(),
			metric.WithAttributes(attribute.Bool(usableKey, true)))
		return nil
	}
	if _, err = meter.RegisterCallback(callback, peers, usable); err != nil {
		return nil, err
	}

	return &metrics{
		goodbyeSent:     goodbyeSent,
		goodbyeReceived: goodbyeReceived,
		statusResult:    statusResultCounter,
		requests:        requests,
		discovery:       discovery,
		heartbeats:      heartbeats,
	}, nil
}

func (m *metrics) observeGoodbye(ctx context.Context, reason reqresp.GoodbyeReason, sent bool) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)

	counter := m.goodbyeReceived
	if sent {
		counter = m.goodbyeSent
	}
	counter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(goodbyeReasonKey, reason.String())))
}

func (m *metrics) observeStatus(ctx context.Context, result statusResult) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)

	m.statusResult.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(statusResultKey, string(result))))
}

func (m *metrics) observeRequest(ctx context.Context, method reqresp.Method, err error) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)

	m.requests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(requestMethodKey, string(method)),
			attribute.Bool(requestFailedKey, err != nil)))
}

func (m *metrics) observeDiscovery(ctx context.Context, kind discoveryKind, amount int) {
	if m == nil || amount == 0 {
		return
	}
	ctx = utils.ResetContextOnError(ctx)

	m.discovery.Add(ctx, int64(amount),
		metric.WithAttributes(
			attribute.String(discoveryKindKey, string(kind))))
}

func (m *metrics) observeHeartbeat(ctx context.Context) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)
	m.heartbeats.Add(ctx, 1)
}
