package peers

import (
	"sort"

	"github.com/beaconnode/beacon-node/beacon"
)

// RequestedSubnet asks the manager to keep the subnet covered up to and including UntilSlot.
type RequestedSubnet struct {
	Subnet    beacon.SubnetID
	UntilSlot beacon.Slot
}

// subnetMap holds the slot until which each requested subnet stays active.
type subnetMap map[beacon.SubnetID]beacon.Slot

// request drops expired entries and records the requests. A later request for the same subnet
// replaces the earlier one. Subnets outside the attestation subnet range are ignored.
func (s subnetMap) request(reqs []RequestedSubnet, current beacon.Slot) {
	s.prune(current)
	for _, r := range reqs {
		if r.Subnet >= beacon.AttestationSubnetCount {
			log.Warnw("ignoring request for unknown subnet", "subnet", r.Subnet)
			continue
		}
		s[r.Subnet] = r.UntilSlot
	}
}

func (s subnetMap) prune(current beacon.Slot) {
	for id, until := range s {
		if until < current {
			delete(s, id)
		}
	}
}

// active returns the subnets still active at the slot, in ascending order.
func (s subnetMap) active(current beacon.Slot) []beacon.SubnetID {
	ids := make([]beacon.SubnetID, 0, len(s))
	for id, until := range s {
		if until >= current {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
