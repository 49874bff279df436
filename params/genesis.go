package params

import (
	"fmt"
	"time"

	"github.com/beaconnode/beacon-node/beacon"
)

const (
	slotsPerEpoch  = 32
	secondsPerSlot = 12
)

// ChainConfigFor reports the timing constants and fork digest of a given network.
// To run a private network with its own genesis use BEACON_PRIVATE_GENESIS env var.
func ChainConfigFor(net Network) (beacon.Config, error) {
	if err := net.Validate(); err != nil {
		return beacon.Config{}, err
	}

	cfg, ok := genesisList[net]
	if !ok {
		return beacon.Config{}, fmt.Errorf("params: genesis not found for network %s", net)
	}
	return cfg, nil
}

// NOTE: Every time we add a new long-running network, its genesis has to be added here.
var genesisList = map[Network]beacon.Config{
	Mainnet: {
		SlotsPerEpoch:  slotsPerEpoch,
		SecondsPerSlot: secondsPerSlot,
		GenesisTime:    time.Unix(1606824023, 0),
		ForkDigest:     beacon.ForkDigest{0x6a, 0x95, 0xa1, 0xa9},
	},
	Private: {
		SlotsPerEpoch:  slotsPerEpoch,
		SecondsPerSlot: secondsPerSlot,
		GenesisTime:    time.Unix(0, 0),
	},
}
