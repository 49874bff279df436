package reqresp

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/beaconnode/beacon-node/beacon"
)

// EvtPingReceived is emitted after a remote peer pinged us. Seq is the remote's metadata sequence number.
type EvtPingReceived struct {
	Peer peer.ID
	Seq  uint64
}

// EvtStatusReceived is emitted after a remote peer sent us its status and got ours back.
type EvtStatusReceived struct {
	Peer   peer.ID
	Status beacon.Status
}

// EvtGoodbyeReceived is emitted when a remote peer says goodbye.
type EvtGoodbyeReceived struct {
	Peer   peer.ID
	Reason GoodbyeReason
}
