package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/beaconnode/beacon-node/cmd"
)

func init() {
	rootCmd.AddCommand(cmd.NodeCommands()...)
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetHelpCommand(&cobra.Command{})
}

func main() {
	err := run()
	if err != nil {
		os.Exit(1)
	}
}

func run() error {
	return rootCmd.ExecuteContext(context.Background())
}

var rootCmd = &cobra.Command{
	Use: "beacon-node [subcommand]",
	Short: `
	    __                               
	   / /_  ___  ____ __________  ____ 
	  / __ \/ _ \/ __ ` + "`" + `/ ___/ __ \/ __ \
	 / /_/ /  __/ /_/ / /__/ /_/ / / / /
	/_.___/\___/\__,_/\___/\____/_/ /_/ 
	`,
	Args: cobra.NoArgs,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}
