package params

import "errors"

// NOTE: Every time we add a new long-running network, it has to be added here.
const (
	// Mainnet is the public beacon chain.
	Mainnet Network = "mainnet"
	// Private is a local network configured through BEACON_PRIVATE_GENESIS.
	Private Network = "private"
)

// Network is a type definition for the beacon network run by the node.
type Network string

// ErrInvalidNetwork is thrown when unknown network is used.
var ErrInvalidNetwork = errors.New("params: invalid network")

// Validate the network.
func (n Network) Validate() error {
	if _, ok := networksList[n]; !ok {
		return ErrInvalidNetwork
	}
	return nil
}

func (n Network) String() string {
	return string(n)
}

// networksList is a strict list of all known long-standing networks.
var networksList = map[Network]struct{}{
	Mainnet: {},
	Private: {},
}

// Networks lists the known networks, most important first.
func Networks() []Network {
	return []Network{Mainnet, Private}
}
