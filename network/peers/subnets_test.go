package peers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beaconnode/beacon-node/beacon"
)

func TestSubnetMap(t *testing.T) {
	s := make(subnetMap)

	s.request([]RequestedSubnet{{Subnet: 3, UntilSlot: 10}, {Subnet: 1, UntilSlot: 20}}, 5)
	assert.Equal(t, []beacon.SubnetID{1, 3}, s.active(5))

	// same request twice changes nothing
	s.request([]RequestedSubnet{{Subnet: 3, UntilSlot: 10}}, 5)
	assert.Equal(t, subnetMap{1: 20, 3: 10}, s)

	// later requests overwrite the expiry, even with an earlier one
	s.request([]RequestedSubnet{{Subnet: 1, UntilSlot: 15}}, 5)
	assert.Equal(t, beacon.Slot(15), s[1])

	// active at the expiry slot itself
	assert.Equal(t, []beacon.SubnetID{1, 3}, s.active(10))
	assert.Equal(t, []beacon.SubnetID{1}, s.active(11))

	s.prune(11)
	assert.Equal(t, subnetMap{1: 15}, s)

	s.request(nil, 16)
	assert.Empty(t, s)
	assert.Empty(t, s.active(16))

	// nobody can announce subnets past the attnets bitvector
	s.request([]RequestedSubnet{
		{Subnet: beacon.AttestationSubnetCount, UntilSlot: 30},
		{Subnet: 200, UntilSlot: 30},
		{Subnet: beacon.AttestationSubnetCount - 1, UntilSlot: 30},
	}, 16)
	assert.Equal(t, []beacon.SubnetID{beacon.AttestationSubnetCount - 1}, s.active(16))
}
