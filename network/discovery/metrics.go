package discovery

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/beaconnode/beacon-node/libs/utils"
)

const (
	discoveryEnoughPeersKey = "enough_peers"
	queryKindKey            = "kind"

	handlePeerResultKey                         = "result"
	handlePeerSkipSelf         handlePeerResult = "skip_self"
	handlePeerEmptyAddrs       handlePeerResult = "skip_empty_addresses"
	handlePeerAlreadyConnected handlePeerResult = "skip_connected"
	handlePeerBackoff          handlePeerResult = "skip_backoff"
	handlePeerConnected        handlePeerResult = "connected"
	handlePeerConnErr          handlePeerResult = "conn_err"

	enqueueResultKey                  = "result"
	enqueueQueued       enqueueResult = "queued"
	enqueueDeduplicated enqueueResult = "deduplicated"
	enqueueDropped      enqueueResult = "dropped"

	advertiseFailedKey = "failed"
)

var (
	meter = otel.Meter("discovery")
)

type (
	handlePeerResult string
	enqueueResult    string
)

type metrics struct {
	discoveryResult  metric.Int64Counter // attributes: kind, enough_peers[bool]
	handlePeerResult metric.Int64Counter // attributes: result[string]
	enqueueResult    metric.Int64Counter // attributes: kind, result[string]
	advertise        metric.Int64Counter // attributes: failed[bool]
}

// WithMetrics turns on metric collection in discovery.
func (d *Discovery) WithMetrics() error {
	metrics, err := initMetrics(d)
	if err != nil {
		return fmt.Errorf("discovery: init metrics: %w", err)
	}
	d.metrics = metrics
	return nil
}

func initMetrics(d *Discovery) (*metrics, error) {
	discoveryResult, err := meter.Int64Counter("discovery_find_peers_result",
		metric.WithDescription("result of find peers run"))
	if err != nil {
		return nil, err
	}

	handlePeerResultCounter, err := meter.Int64Counter("discovery_handler_peer_result",
		metric.WithDescription("result handling found peer"))
	if err != nil {
		return nil, err
	}

	enqueueResultCounter, err := meter.Int64Counter("discovery_query_requests",
		metric.WithDescription("discovery query requests by outcome"))
	if err != nil {
		return nil, err
	}

	advertise, err := meter.Int64Counter("discovery_advertise_event",
		metric.WithDescription("advertise events counter"))
	if err != nil {
		return nil, err
	}

	pendingQueries, err := meter.Int64ObservableGauge("discovery_pending_queries",
		metric.WithDescription("amount of queued or running discovery queries"))
	if err != nil {
		return nil, err
	}

	backOffSize, err := meter.Int64ObservableGauge("discovery_backoff_amount",
		metric.WithDescription("amount of peers in backoff"))
	if err != nil {
		return nil, err
	}

	metrics := &metrics{
		discoveryResult:  discoveryResult,
		handlePeerResult: handlePeerResultCounter,
		enqueueResult:    enqueueResultCounter,
		advertise:        advertise,
	}

	callback := func(ctx context.Context, observer metric.Observer) error {
		observer.ObserveInt64(pendingQueries, int64(d.Pending()))
		observer.ObserveInt64(backOffSize, int64(d.connector.Size()))
		return nil
	}
	_, err = meter.RegisterCallback(callback, pendingQueries, backOffSize)
	if err != nil {
		return nil, fmt.Errorf("registering metrics callback: %w", err)
	}
	return metrics, nil
}

func (m *metrics) observeFindPeers(ctx context.Context, tag string, isEnoughPeers bool) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)

	m.discoveryResult.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(queryKindKey, queryKind(tag)),
			attribute.Bool(discoveryEnoughPeersKey, isEnoughPeers)))
}

func (m *metrics) observeHandlePeer(ctx context.Context, result handlePeerResult) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)

	m.handlePeerResult.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(handlePeerResultKey, string(result))))
}

func (m *metrics) observeEnqueue(ctx context.Context, tag string, result enqueueResult) {
	if m == nil {
		return
	}

	m.enqueueResult.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(queryKindKey, queryKind(tag)),
			attribute.String(enqueueResultKey, string(result))))
}

func (m *metrics) observeAdvertise(ctx context.Context, err error) {
	if m == nil {
		return
	}
	ctx = utils.ResetContextOnError(ctx)

	m.advertise.Add(ctx, 1,
		metric.WithAttributes(
			attribute.Bool(advertiseFailedKey, err != nil)))
}
