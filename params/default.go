package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beaconnode/beacon-node/beacon"
)

// defaultNetwork defines a default network for the beacon node.
var defaultNetwork = Mainnet

// DefaultNetwork returns the network of the current build.
func DefaultNetwork() Network {
	return defaultNetwork
}

func init() {
	// check if a different network from the registry was specified
	if network, ok := os.LookupEnv("BEACON_NETWORK"); ok {
		if _, exists := networksList[Network(network)]; !exists {
			panic("unknown network specified")
		}
		defaultNetwork = Network(network)
	}
	// check if private network genesis is set
	if genesis, ok := os.LookupEnv("BEACON_PRIVATE_GENESIS"); ok {
		params := strings.Split(genesis, "=")
		if len(params) != 2 {
			panic("must provide BEACON_PRIVATE_GENESIS in this format: <unix genesis time>=<fork digest>")
		}
		unix, err := strconv.ParseInt(params[0], 10, 64)
		if err != nil {
			panic("invalid BEACON_PRIVATE_GENESIS genesis time: " + err.Error())
		}
		digest, err := beacon.ParseForkDigest(params[1])
		if err != nil {
			panic("invalid BEACON_PRIVATE_GENESIS fork digest: " + err.Error())
		}
		cfg := genesisList[Private]
		cfg.GenesisTime = time.Unix(unix, 0)
		cfg.ForkDigest = digest
		genesisList[Private] = cfg
		defaultNetwork = Private
	}
	// check if custom bootstrappers were provided for a network
	if bootstrappers, ok := os.LookupEnv("BEACON_BOOTSTRAPPERS"); ok {
		params := strings.Split(bootstrappers, "=")
		// ensure both params are present
		if len(params) != 2 {
			panic("must provide BEACON_BOOTSTRAPPERS in this format: " +
				"<network_ID>=<boostrappers comma separated list>")
		}

		netID, list := params[0], params[1]
		bootstrapList[Network(netID)] = strings.Split(list, ",")
	}
}
