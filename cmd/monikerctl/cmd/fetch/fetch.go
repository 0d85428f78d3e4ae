// Package fetch implements the "fetch" monikerctl subcommand.
package fetch

import (
	"github.com/spf13/cobra"

	moniker "github.com/open-moniker/moniker-client"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/cmdutil"
)

// NewCommand builds the "fetch" subcommand: server-side data fetch against
// the resolver's /fetch endpoint, printing the result as JSON.
func NewCommand(cfgFile *string) *cobra.Command {
	var limit int
	var extra map[string]string

	cmd := &cobra.Command{
		Use:   "fetch <path>",
		Short: "Fetch data for a moniker directly from the resolver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}

			client := moniker.NewClient(cfg)
			m := moniker.New(args[0])

			result, err := client.FetchServerSide(cmd.Context(), m, limit, extra)
			if err != nil {
				return err
			}

			return cmdutil.PrintJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows to return (0 = resolver default)")
	cmd.Flags().StringToStringVar(&extra, "param", nil, "extra resolver parameter, repeatable as key=value")

	return cmd
}
