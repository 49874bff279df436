package network

import (
	"go.uber.org/multierr"

	"github.com/beaconnode/beacon-node/network/discovery"
	"github.com/beaconnode/beacon-node/network/peers"
	"github.com/beaconnode/beacon-node/network/reqresp"
)

// WithMetrics turns on metrics of the networking components.
func WithMetrics(mgr *peers.Manager, rr *reqresp.ReqResp, disc *discovery.Discovery) error {
	return multierr.Combine(
		mgr.WithMetrics(),
		rr.WithMetrics(),
		disc.WithMetrics(),
	)
}
