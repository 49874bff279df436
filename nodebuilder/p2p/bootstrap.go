package p2p

import (
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/beaconnode/beacon-node/params"
)

// Bootstrappers is a type definition for nodes that will be used as bootstrappers.
type Bootstrappers []peer.AddrInfo

// BootstrappersFor returns address information of bootstrap peers for a given network, extended
// with the peers set in the config.
func BootstrappersFor(net params.Network, cfg *Config) (Bootstrappers, error) {
	bs, err := params.BootstrappersFor(net)
	if err != nil {
		return nil, err
	}

	all := make([]string, 0, len(bs)+len(cfg.BootstrapPeers))
	all = append(all, bs...)
	all = append(all, cfg.BootstrapPeers...)
	return parseAddrInfos(all)
}

// parseAddrInfos converts strings to AddrInfos. Addresses of the same peer are merged.
func parseAddrInfos(addrs []string) ([]peer.AddrInfo, error) {
	maddrs := make([]ma.Multiaddr, 0, len(addrs))
	for _, addr := range addrs {
		maddr, err := ma.NewMultiaddr(addr)
		if err != nil {
			log.Errorw("parsing and validating addr", "addr", addr, "err", err)
			return nil, err
		}
		maddrs = append(maddrs, maddr)
	}

	infos, err := peer.AddrInfosFromP2pAddrs(maddrs...)
	if err != nil {
		log.Errorw("parsing info from multiaddrs", "err", err)
		return nil, err
	}
	return infos, nil
}
