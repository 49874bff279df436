package peers

import (
	"context"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/beaconnode/beacon-node/beacon"
	"github.com/beaconnode/beacon-node/network/peers/score"
	"github.com/beaconnode/beacon-node/network/reqresp"
)

// Transport issues the outbound req/resp requests of the manager.
type Transport interface {
	Status(ctx context.Context, to peer.ID, local beacon.Status) (beacon.Status, error)
	Ping(ctx context.Context, to peer.ID) (uint64, error)
	Metadata(ctx context.Context, to peer.ID) (beacon.Metadata, error)
	Goodbye(ctx context.Context, to peer.ID, reason reqresp.GoodbyeReason) error
}

// Connections is the part of the libp2p network the manager reads and closes connections through.
type Connections interface {
	Peers() []peer.ID
	ConnsToPeer(peer.ID) []network.Conn
	ClosePeer(peer.ID) error
}

// Discoverer finds and dials new peers. Both methods must not block.
type Discoverer interface {
	DiscoverPeers(count int)
	DiscoverSubnetPeers(subnets []beacon.SubnetID)
}

// ScoreReader exposes the score of a peer and its classification.
//
//go:generate mockgen -destination=mocks/score.go -package=mocks . ScoreReader
type ScoreReader interface {
	State(peer.ID) score.State
	Score(peer.ID) float64
}

// MetadataStore keeps the latest metadata and status known for each peer.
type MetadataStore interface {
	Metadata(ctx context.Context, id peer.ID) (beacon.Metadata, bool)
	SetMetadata(ctx context.Context, id peer.ID, md beacon.Metadata) error
	SetStatus(ctx context.Context, id peer.ID, st beacon.Status) error
}

// ChainState is the local view of the chain the remote status is checked against.
type ChainState interface {
	Status() beacon.Status
	CurrentSlot() beacon.Slot
	FinalizedRoot(beacon.Epoch) (beacon.Root, bool)
	Config() beacon.Config
}
