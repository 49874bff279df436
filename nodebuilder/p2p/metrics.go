package p2p

import (
	"context"

	hst "github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("p2p")

// WithMetrics option sets up metrics for p2p networking.
func WithMetrics(bc *metrics.BandwidthCounter, h hst.Host) error {
	bandwidthTotal, err := meter.Int64ObservableCounter(
		"p2p_bandwidth_total",
		metric.WithUnit("By"),
		metric.WithDescription("total number of bytes transferred by the host"),
	)
	if err != nil {
		return err
	}
	bandwidthRate, err := meter.Float64ObservableGauge(
		"p2p_bandwidth_rate",
		metric.WithUnit("By/s"),
		metric.WithDescription("current bandwidth rate of the host"),
	)
	if err != nil {
		return err
	}
	peerCount, err := meter.Int64ObservableGauge(
		"p2p_peer_count",
		metric.WithDescription("number of peers connected to the host"),
	)
	if err != nil {
		return err
	}

	inbound := metric.WithAttributes(attribute.String("direction", "inbound"))
	outbound := metric.WithAttributes(attribute.String("direction", "outbound"))
	callback := func(_ context.Context, observer metric.Observer) error {
		stats := bc.GetBandwidthTotals()
		observer.ObserveInt64(bandwidthTotal, stats.TotalIn, inbound)
		observer.ObserveInt64(bandwidthTotal, stats.TotalOut, outbound)
		observer.ObserveFloat64(bandwidthRate, stats.RateIn, inbound)
		observer.ObserveFloat64(bandwidthRate, stats.RateOut, outbound)
		observer.ObserveInt64(peerCount, int64(len(h.Network().Peers())))
		return nil
	}

	_, err = meter.RegisterCallback(callback, bandwidthTotal, bandwidthRate, peerCount)
	return err
}
