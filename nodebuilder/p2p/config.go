package p2p

import (
	"fmt"
	"time"

	ma "github.com/multiformats/go-multiaddr"
)

const defaultPort = 9000

// Config combines all configuration fields for P2P subsystem.
type Config struct {
	// ListenAddresses - Addresses to listen to on local NIC.
	ListenAddresses []string
	// AnnounceAddresses - Addresses to be announced/advertised for peers to connect to
	AnnounceAddresses []string
	// NoAnnounceAddresses - Addresses the P2P subsystem may know about, but that should not be
	// announced/advertised, as undialable from WAN
	NoAnnounceAddresses []string
	// BootstrapPeers are dialed on top of the bootstrappers of the network.
	BootstrapPeers []string
	// ConnManager is a configuration tuple for ConnectionManager.
	ConnManager connManagerConfig

	EnableDebugMetrics      bool
	PrometheusAgentPort     string
	PrometheusAgentEndpoint string
}

// DefaultConfig returns default configuration for P2P subsystem.
func DefaultConfig() Config {
	return Config{
		ListenAddresses: []string{
			fmt.Sprintf("/ip4/0.0.0.0/udp/%d/quic-v1", defaultPort),
			fmt.Sprintf("/ip6/::/udp/%d/quic-v1", defaultPort),
			fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", defaultPort),
			fmt.Sprintf("/ip6/::/tcp/%d", defaultPort),
		},
		AnnounceAddresses: []string{},
		NoAnnounceAddresses: []string{
			fmt.Sprintf("/ip4/0.0.0.0/udp/%d/quic-v1", defaultPort),
			fmt.Sprintf("/ip4/127.0.0.1/udp/%d/quic-v1", defaultPort),
			fmt.Sprintf("/ip6/::/udp/%d/quic-v1", defaultPort),
			fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", defaultPort),
			fmt.Sprintf("/ip4/127.0.0.1/tcp/%d", defaultPort),
			fmt.Sprintf("/ip6/::/tcp/%d", defaultPort),
		},
		BootstrapPeers:          []string{},
		ConnManager:             defaultConnManagerConfig(),
		PrometheusAgentPort:     ":8890",
		PrometheusAgentEndpoint: "/metrics",
	}
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	addrSets := map[string][]string{
		"ListenAddresses":     cfg.ListenAddresses,
		"AnnounceAddresses":   cfg.AnnounceAddresses,
		"NoAnnounceAddresses": cfg.NoAnnounceAddresses,
	}
	for name, addrs := range addrSets {
		if _, err := parseMultiaddrs(addrs); err != nil {
			return fmt.Errorf("p2p: config.P2P.%s: %w", name, err)
		}
	}
	if _, err := parseAddrInfos(cfg.BootstrapPeers); err != nil {
		return fmt.Errorf("p2p: config.P2P.BootstrapPeers: %w", err)
	}
	return cfg.ConnManager.validate()
}

func parseMultiaddrs(addrs []string) ([]ma.Multiaddr, error) {
	out := make([]ma.Multiaddr, 0, len(addrs))
	for _, addr := range addrs {
		maddr, err := ma.NewMultiaddr(addr)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", addr, err)
		}
		out = append(out, maddr)
	}
	return out, nil
}

// connManagerConfig configures the libp2p connection manager. It only trims above the peer
// manager's own limits, so its watermarks must stay above the maximum amount of peers.
type connManagerConfig struct {
	// Low and High are watermarks governing the number of total connections a node can have before
	// the manager starts trimming.
	Low, High int
	// GracePeriod is the amount of time a newly opened connection is given before it becomes
	// subject to pruning.
	GracePeriod time.Duration
}

func defaultConnManagerConfig() connManagerConfig {
	return connManagerConfig{
		Low:         100,
		High:        150,
		GracePeriod: time.Minute,
	}
}

func (c connManagerConfig) validate() error {
	if c.Low <= 0 || c.High < c.Low {
		return fmt.Errorf("p2p: invalid conn manager watermarks: low %d, high %d", c.Low, c.High)
	}
	if c.GracePeriod < 0 {
		return fmt.Errorf("p2p: negative conn manager grace period: %v", c.GracePeriod)
	}
	return nil
}
