// Package describe implements the "describe" monikerctl subcommand.
package describe

import (
	"github.com/spf13/cobra"

	moniker "github.com/open-moniker/moniker-client"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/cmdutil"
)

// NewCommand builds the "describe" subcommand: resolver-side metadata about
// a moniker, printed as JSON.
func NewCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <path>",
		Short: "Describe a moniker's binding and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}

			client := moniker.NewClient(cfg)
			m := moniker.New(args[0])

			result, err := client.Describe(cmd.Context(), m)
			if err != nil {
				return err
			}

			return cmdutil.PrintJSON(cmd.OutOrStdout(), result)
		},
	}

	return cmd
}
