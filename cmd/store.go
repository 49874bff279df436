package cmd

import (
	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/beaconnode/beacon-node/nodebuilder"
)

// ResetStore constructs a CLI command to drop the node data while keeping its config.
func ResetStore(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsafe-reset-store",
		Short: "Resets the node's store to a new state. Leaves the config file intact.",
		Long: `Removes the p2p identity, banned addresses, cached peer metadata and known peers.
The node starts with a new identity afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nodebuilder.Reset(StorePath(cmd.Context()))
		},
	}
	for _, set := range fsets {
		cmd.Flags().AddFlagSet(set)
	}
	return cmd
}

// RemoveConfigCmd constructs a CLI command to remove the config of the node store.
func RemoveConfigCmd(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config-remove",
		Short: "Deletes the node's config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nodebuilder.RemoveConfig(StorePath(cmd.Context()))
		},
	}
	for _, set := range fsets {
		cmd.Flags().AddFlagSet(set)
	}
	return cmd
}

// UpdateConfigCmd constructs a CLI command to fill the node's config with newly added defaults.
func UpdateConfigCmd(fsets ...*flag.FlagSet) *cobra.Command {
	cmd := &cobra.Command{
		Use: "config-update",
		Short: "Updates the node's outdated config with default values from newly-added fields. Check the config " +
			"afterwards to ensure all old custom values were preserved.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return nodebuilder.UpdateConfig(StorePath(cmd.Context()))
		},
	}
	for _, set := range fsets {
		cmd.Flags().AddFlagSet(set)
	}
	return cmd
}
