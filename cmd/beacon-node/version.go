package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beaconnode/beacon-node/nodebuilder/node"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show information about the current binary build",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprint(cmd.OutOrStdout(), node.GetBuildInfo().String())
	},
}
