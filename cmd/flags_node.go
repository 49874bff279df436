package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/beaconnode/beacon-node/nodebuilder"
	"github.com/beaconnode/beacon-node/params"
)

var (
	nodeStoreFlag  = "node.store"
	nodeConfigFlag = "node.config"
)

// NodeFlags gives a set of hardcoded Node package flags.
func NodeFlags() *flag.FlagSet {
	flags := &flag.FlagSet{}

	flags.String(
		nodeStoreFlag,
		"",
		"The path to root/home directory of your beacon node Store. Defaults to ~/.beacon-node[-<network>]",
	)
	flags.String(
		nodeConfigFlag,
		"",
		"Path to a customized node config TOML file",
	)

	return flags
}

// ParseNodeFlags parses Node flags from the given cmd and applies values to Env.
func ParseNodeFlags(ctx context.Context, cmd *cobra.Command, net params.Network) (context.Context, error) {
	path := cmd.Flag(nodeStoreFlag).Value.String()
	if path == "" {
		var err error
		path, err = nodebuilder.DefaultNodeStorePath(net)
		if err != nil {
			return ctx, err
		}
	}
	ctx = WithStorePath(ctx, path)

	nodeConfig := cmd.Flag(nodeConfigFlag).Value.String()
	if nodeConfig != "" {
		// try to load config from given path
		cfg, err := nodebuilder.LoadConfig(nodeConfig)
		if err != nil {
			return ctx, fmt.Errorf("cmd: while parsing '%s': %w", nodeConfigFlag, err)
		}

		ctx = WithNodeConfig(ctx, cfg)
	} else if nodebuilder.IsInit(path) {
		// load the config already existing at the store path
		cfgPath, err := nodebuilder.ConfigPath(path)
		if err != nil {
			return ctx, err
		}
		cfg, err := nodebuilder.LoadConfig(cfgPath)
		if err != nil {
			return ctx, err
		}
		ctx = WithNodeConfig(ctx, cfg)
	}
	return ctx, nil
}
