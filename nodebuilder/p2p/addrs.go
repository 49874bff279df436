package p2p

import (
	"fmt"

	p2pconfig "github.com/libp2p/go-libp2p/config"
	hst "github.com/libp2p/go-libp2p/core/host"
	ma "github.com/multiformats/go-multiaddr"
)

// Listen returns invoke function that starts listening for inbound connections with libp2p.Host.
func Listen(listen []string) func(h hst.Host) error {
	return func(h hst.Host) error {
		maListen, err := parseMultiaddrs(listen)
		if err != nil {
			return fmt.Errorf("failure to parse config.P2P.ListenAddresses: %w", err)
		}
		return h.Network().Listen(maListen...)
	}
}

// addrsFactory returns a constructor for AddrsFactory. Announced addresses are always reported,
// listen addresses only if they are not listed as not to be announced.
func addrsFactory(announce []string, noAnnounce []string) func() (p2pconfig.AddrsFactory, error) {
	return func() (p2pconfig.AddrsFactory, error) {
		maAnnounce, err := parseMultiaddrs(announce)
		if err != nil {
			return nil, fmt.Errorf("failure to parse config.P2P.AnnounceAddresses: %w", err)
		}
		maNoAnnounce, err := parseMultiaddrs(noAnnounce)
		if err != nil {
			return nil, fmt.Errorf("failure to parse config.P2P.NoAnnounceAddresses: %w", err)
		}
		hidden := make(map[string]struct{}, len(maNoAnnounce))
		for _, maddr := range maNoAnnounce {
			hidden[string(maddr.Bytes())] = struct{}{}
		}

		return func(maListen []ma.Multiaddr) []ma.Multiaddr {
			out := make([]ma.Multiaddr, 0, len(maAnnounce)+len(maListen))
			out = append(out, maAnnounce...)
			for _, maddr := range maListen {
				if _, ok := hidden[string(maddr.Bytes())]; !ok {
					out = append(out, maddr)
				}
			}
			return out
		}, nil
	}
}
