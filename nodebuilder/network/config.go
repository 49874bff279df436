package network

import (
	"fmt"
	"time"

	"github.com/beaconnode/beacon-node/beacon"
	"github.com/beaconnode/beacon-node/network/discovery"
	"github.com/beaconnode/beacon-node/network/peers"
	"github.com/beaconnode/beacon-node/network/peers/metastore"
	"github.com/beaconnode/beacon-node/network/peers/score"
	"github.com/beaconnode/beacon-node/network/reqresp"
)

// Config combines the configuration of the beacon networking stack: peer management, req/resp
// protocols and discovery.
type Config struct {
	// TargetPeers is the amount of peers the node tries to stay connected to.
	TargetPeers int
	// MaxPeers is the hard limit of connected peers.
	MaxPeers int
	// HeartbeatInterval is the interval at which the connected set is pruned and topped up.
	HeartbeatInterval time.Duration
	// PingInterval is the minimum time between two pings of the same peer.
	PingInterval time.Duration
	// StatusInterval is the minimum time between two status requests to the same peer. Zero means
	// one epoch.
	StatusInterval time.Duration
	// RequestTimeout limits every outbound req/resp request.
	RequestTimeout time.Duration

	// AttestationSubnets are the long-lived subnets the node announces and advertises.
	AttestationSubnets []uint64
	// DiscoveryQueriesPerSecond is the sustained rate of discovery queries.
	DiscoveryQueriesPerSecond float64

	// ScoreHalfLife is the time it takes a peer score to decay half way to zero.
	ScoreHalfLife time.Duration
	// BanDuration is how long a peer stays banned.
	BanDuration time.Duration
	// MetadataCacheSize is the amount of peers whose metadata is kept in memory.
	MetadataCacheSize int

	// PersistKnownPeers saves verified peers on stop and redials them on start.
	PersistKnownPeers bool
}

// DefaultConfig returns default configuration for the networking stack.
func DefaultConfig() Config {
	mgr := peers.DefaultParameters()
	disc := discovery.DefaultParameters()
	scores := score.DefaultParameters()
	return Config{
		TargetPeers:               mgr.TargetPeers,
		MaxPeers:                  mgr.MaxPeers,
		HeartbeatInterval:         mgr.HeartbeatInterval,
		PingInterval:              mgr.PingInterval,
		StatusInterval:            mgr.StatusInterval,
		RequestTimeout:            reqresp.DefaultParameters().RequestTimeout,
		AttestationSubnets:        []uint64{},
		DiscoveryQueriesPerSecond: disc.QueriesPerSecond,
		ScoreHalfLife:             scores.HalfLife,
		BanDuration:               scores.BanDuration,
		MetadataCacheSize:         metastore.DefaultCacheSize,
		PersistKnownPeers:         true,
	}
}

// Validate performs basic validation of the config.
func (cfg *Config) Validate() error {
	mgr := cfg.managerParameters()
	if err := mgr.Validate(); err != nil {
		return err
	}
	if err := cfg.discoveryParameters("validate").Validate(); err != nil {
		return err
	}
	if err := cfg.scoreParameters().Validate(); err != nil {
		return err
	}
	if cfg.MetadataCacheSize <= 0 {
		return fmt.Errorf("nodebuilder/network: metadata cache size must be positive")
	}
	return nil
}

func (cfg *Config) managerParameters() peers.Parameters {
	params := peers.DefaultParameters()
	params.TargetPeers = cfg.TargetPeers
	params.MaxPeers = cfg.MaxPeers
	params.HeartbeatInterval = cfg.HeartbeatInterval
	params.PingInterval = cfg.PingInterval
	params.StatusInterval = cfg.StatusInterval
	params.RequestTimeout = cfg.RequestTimeout
	return params
}

func (cfg *Config) discoveryParameters(tag string) *discovery.Parameters {
	params := discovery.DefaultParameters()
	discovery.WithTag(tag)(params)
	discovery.WithAdvertisedSubnets(cfg.subnets()...)(params)
	params.QueriesPerSecond = cfg.DiscoveryQueriesPerSecond
	return params
}

func (cfg *Config) scoreParameters() score.Parameters {
	params := score.DefaultParameters()
	params.HalfLife = cfg.ScoreHalfLife
	params.BanDuration = cfg.BanDuration
	return params
}

func (cfg *Config) subnets() []beacon.SubnetID {
	out := make([]beacon.SubnetID, len(cfg.AttestationSubnets))
	for i, id := range cfg.AttestationSubnets {
		out[i] = beacon.SubnetID(id)
	}
	return out
}
