package peers

import (
	"sort"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/beaconnode/beacon-node/beacon"
)

// PeerInfo is what the prioritization knows about a connected peer.
type PeerInfo struct {
	ID      peer.ID
	Attnets beacon.Attnets
	Score   float64
}

// Limits bounds the size of the connected set.
type Limits struct {
	TargetPeers int
	MaxPeers    int
}

// Prioritization is the outcome of a single heartbeat.
type Prioritization struct {
	// PeersToDisconnect are ordered from the least valuable peer.
	PeersToDisconnect []peer.ID
	// SubnetQueries are the active subnets no connected peer subscribes to, in ascending order.
	SubnetQueries []beacon.SubnetID
	// PeersToConnect is the amount of peers missing to reach the target.
	PeersToConnect int
}

// PrioritizePeers decides which peers to drop and what to search for, given the connected peers
// and the subnets that must stay covered.
//
// When the set is over the maximum, the lowest scoring peers go first, ties broken by peer ID.
// A peer that is the last subscriber of an active subnet is kept as long as other peers can be
// dropped instead.
func PrioritizePeers(peers []PeerInfo, activeSubnets []beacon.SubnetID, limits Limits) Prioritization {
	var res Prioritization
	active := uniqueSubnets(activeSubnets)

	subscribers := make(map[beacon.SubnetID]int, len(active))
	for _, id := range active {
		for _, p := range peers {
			if p.Attnets.Has(id) {
				subscribers[id]++
			}
		}
		if subscribers[id] == 0 {
			res.SubnetQueries = append(res.SubnetQueries, id)
		}
	}

	if len(peers) < limits.TargetPeers {
		res.PeersToConnect = limits.TargetPeers - len(peers)
	}
	if len(peers) <= limits.MaxPeers {
		return res
	}

	candidates := make([]PeerInfo, len(peers))
	copy(candidates, peers)
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score < candidates[j].Score
		}
		return candidates[i].ID < candidates[j].ID
	})

	toEvict := len(peers) - limits.MaxPeers
	evicted := make(map[peer.ID]struct{}, toEvict)
	evict := func(p PeerInfo) {
		evicted[p.ID] = struct{}{}
		res.PeersToDisconnect = append(res.PeersToDisconnect, p.ID)
		for _, id := range active {
			if p.Attnets.Has(id) {
				subscribers[id]--
			}
		}
	}

	for _, p := range candidates {
		if len(evicted) == toEvict {
			break
		}
		if isLastSubscriber(p, active, subscribers) {
			continue
		}
		evict(p)
	}
	// the peer limit wins over subnet coverage
	for _, p := range candidates {
		if len(evicted) == toEvict {
			break
		}
		if _, ok := evicted[p.ID]; ok {
			continue
		}
		evict(p)
	}
	return res
}

func isLastSubscriber(p PeerInfo, active []beacon.SubnetID, subscribers map[beacon.SubnetID]int) bool {
	for _, id := range active {
		if p.Attnets.Has(id) && subscribers[id] <= 1 {
			return true
		}
	}
	return false
}

func uniqueSubnets(ids []beacon.SubnetID) []beacon.SubnetID {
	seen := make(map[beacon.SubnetID]struct{}, len(ids))
	out := make([]beacon.SubnetID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
