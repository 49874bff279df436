package params

// BootstrappersFor reports multiaddresses of bootstrap peers for a given network.
func BootstrappersFor(net Network) ([]string, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}

	return bootstrapList[net], nil
}

// bootstrapList is empty for networks that rely on BEACON_BOOTSTRAPPERS or the node config.
var bootstrapList = map[Network][]string{
	Mainnet: {},
	Private: {},
}
