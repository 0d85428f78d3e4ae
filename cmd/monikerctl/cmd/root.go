// Package cmd wires monikerctl's subcommands onto a cobra root command.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/describe"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/fetch"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/read"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/search"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/tree"
)

// NewRootCommand builds the monikerctl root command.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "monikerctl",
		Short: "monikerctl is the CLI interface to the moniker client",
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (loaded after $HOME/.moniker/client.yaml and ./.moniker.yaml)")

	cmd.AddCommand(read.NewCommand(&cfgFile))
	cmd.AddCommand(fetch.NewCommand(&cfgFile))
	cmd.AddCommand(describe.NewCommand(&cfgFile))
	cmd.AddCommand(tree.NewCommand(&cfgFile))
	cmd.AddCommand(search.NewCommand(&cfgFile))

	return cmd
}

// Execute runs the root command, exiting non-zero on error.
func Execute() {
	cobra.EnableCommandSorting = false
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
