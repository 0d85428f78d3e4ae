// Package search implements the "search" monikerctl subcommand.
package search

import (
	"github.com/spf13/cobra"

	moniker "github.com/open-moniker/moniker-client"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/cmdutil"
)

// NewCommand builds the "search" subcommand: catalog search by query and
// status, printed as JSON.
func NewCommand(cfgFile *string) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the moniker catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}

			client := moniker.NewClient(cfg)

			result, err := client.Search(cmd.Context(), args[0], status, limit)
			if err != nil {
				return err
			}

			return cmdutil.PrintJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by moniker status")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results to return (0 = resolver default)")

	return cmd
}
