package peers

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/beaconnode/beacon-node/beacon"
)

// EvtPeerUsable is emitted once per connection, when the first status of the peer is accepted.
type EvtPeerUsable struct {
	Peer   peer.ID
	Status beacon.Status
}

// EvtPeerStatusUpdated is emitted for every later status of a usable peer that was accepted.
type EvtPeerStatusUpdated struct {
	Peer   peer.ID
	Status beacon.Status
}

// EvtPeerGone is emitted when a tracked peer lost its last connection.
type EvtPeerGone struct {
	Peer peer.ID
}
