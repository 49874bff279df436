package p2p

import (
	"fmt"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/beaconnode/beacon-node/params"
)

var (
	bootstrappersFlag = "p2p.bootstrappers"
	listenFlag        = "p2p.listen"
	debugMetricsFlag  = "p2p.metrics"
	networkFlag       = "p2p.network"
)

// Flags gives a set of p2p flags.
func Flags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.String(
		networkFlag,
		params.DefaultNetwork().String(),
		fmt.Sprintf("The name of the network to connect to, e.g. %s. Must be passed on both init and start to take effect.",
			params.Networks()),
	)
	flags.StringSlice(
		bootstrappersFlag,
		nil,
		`Comma-separated multiaddresses of peers to bootstrap from, on top of the network defaults.
(Format: multiformats.io/multiaddr)`,
	)
	flags.StringSlice(
		listenFlag,
		nil,
		"Comma-separated multiaddresses to listen on. Overrides the configured listen addresses.",
	)
	flags.Bool(
		debugMetricsFlag,
		false,
		"Serves libp2p internals in the prometheus format on the configured agent port",
	)

	return flags
}

// ParseFlags parses P2P flags from the given cmd and saves them to the passed config.
func ParseFlags(cmd *cobra.Command, cfg *Config) error {
	bootstrappers, err := cmd.Flags().GetStringSlice(bootstrappersFlag)
	if err != nil {
		return err
	}
	if len(bootstrappers) != 0 {
		if _, err = parseAddrInfos(bootstrappers); err != nil {
			return fmt.Errorf("cmd: while parsing '%s': %w", bootstrappersFlag, err)
		}
		cfg.BootstrapPeers = bootstrappers
	}

	listen, err := cmd.Flags().GetStringSlice(listenFlag)
	if err != nil {
		return err
	}
	if len(listen) != 0 {
		if _, err = parseMultiaddrs(listen); err != nil {
			return fmt.Errorf("cmd: while parsing '%s': %w", listenFlag, err)
		}
		cfg.ListenAddresses = listen
	}

	if cmd.Flag(debugMetricsFlag).Changed {
		cfg.EnableDebugMetrics, err = cmd.Flags().GetBool(debugMetricsFlag)
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseNetwork tries to parse the network from the flags and environment,
// and returns either the parsed network or the build's default network
func ParseNetwork(cmd *cobra.Command) (params.Network, error) {
	parsed := cmd.Flag(networkFlag).Value.String()
	if parsed == "" {
		return "", fmt.Errorf("cmd: while parsing '%s': network can't be empty", networkFlag)
	}

	net := params.Network(parsed)
	if err := net.Validate(); err != nil {
		return "", fmt.Errorf("cmd: while parsing '%s': %w", networkFlag, err)
	}
	return net, nil
}
