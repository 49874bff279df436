package network

import (
	"fmt"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/beaconnode/beacon-node/beacon"
)

var (
	targetPeersFlag = "p2p.target-peers"
	maxPeersFlag    = "p2p.max-peers"
	subnetsFlag     = "p2p.subnets"
)

// Flags gives a set of flags of the networking stack.
func Flags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.Int(
		targetPeersFlag,
		0,
		"The amount of peers the node tries to stay connected to",
	)
	flags.Int(
		maxPeersFlag,
		0,
		"The hard limit of connected peers. Must not be lower than the target",
	)
	flags.UintSlice(
		subnetsFlag,
		nil,
		"Comma-separated attestation subnets the node subscribes to for its whole lifetime",
	)

	return flags
}

// ParseFlags parses networking flags from the given cmd and saves them to the passed config.
func ParseFlags(cmd *cobra.Command, cfg *Config) error {
	if cmd.Flag(targetPeersFlag).Changed {
		target, err := cmd.Flags().GetInt(targetPeersFlag)
		if err != nil {
			return err
		}
		cfg.TargetPeers = target
		// the limit follows a target raised above it, unless set explicitly
		if !cmd.Flag(maxPeersFlag).Changed && cfg.MaxPeers < target {
			cfg.MaxPeers = target
		}
	}

	if cmd.Flag(maxPeersFlag).Changed {
		maxPeers, err := cmd.Flags().GetInt(maxPeersFlag)
		if err != nil {
			return err
		}
		cfg.MaxPeers = maxPeers
	}

	if cmd.Flag(subnetsFlag).Changed {
		subnets, err := cmd.Flags().GetUintSlice(subnetsFlag)
		if err != nil {
			return err
		}
		cfg.AttestationSubnets = make([]uint64, 0, len(subnets))
		for _, id := range subnets {
			if id >= beacon.AttestationSubnetCount {
				return fmt.Errorf("cmd: while parsing '%s': subnet %d out of range", subnetsFlag, id)
			}
			cfg.AttestationSubnets = append(cfg.AttestationSubnets, uint64(id))
		}
	}
	return cfg.Validate()
}
