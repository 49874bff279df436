package cmd

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/beaconnode/beacon-node/nodebuilder/network"
	"github.com/beaconnode/beacon-node/nodebuilder/p2p"
)

var log = logging.Logger("cmd")

// PersistentPreRunEnv builds the Env of the node commands: network, store path and the config
// with every flag applied on top of it.
func PersistentPreRunEnv(cmd *cobra.Command, _ []string) error {
	var (
		ctx = cmd.Context()
		err error
	)

	parsedNetwork, err := p2p.ParseNetwork(cmd)
	if err != nil {
		return err
	}
	ctx = WithNetwork(ctx, parsedNetwork)

	// loads existing config into the environment
	ctx, err = ParseNodeFlags(ctx, cmd, Network(ctx))
	if err != nil {
		return err
	}

	cfg := NodeConfig(ctx)

	err = p2p.ParseFlags(cmd, &cfg.P2P)
	if err != nil {
		return err
	}

	err = network.ParseFlags(cmd, &cfg.Network)
	if err != nil {
		return err
	}

	ctx, err = ParseMiscFlags(ctx, cmd)
	if err != nil {
		return err
	}

	// set config
	ctx = WithNodeConfig(ctx, &cfg)
	cmd.SetContext(ctx)
	return nil
}

// NodeCommands constructs the commands managing the node. They share the node flags and the Env
// built from them.
func NodeCommands() []*cobra.Command {
	flags := []*flag.FlagSet{
		NodeFlags(),
		p2p.Flags(),
		network.Flags(),
		MiscFlags(),
	}

	cmds := []*cobra.Command{
		Init(flags...),
		Start(flags...),
		ResetStore(flags...),
		RemoveConfigCmd(flags...),
		UpdateConfigCmd(flags...),
	}
	for _, cmd := range cmds {
		cmd.PersistentPreRunE = PersistentPreRunEnv
	}
	return cmds
}
