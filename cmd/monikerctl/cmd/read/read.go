// Package read implements the "read" monikerctl subcommand.
package read

import (
	"github.com/spf13/cobra"

	moniker "github.com/open-moniker/moniker-client"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/cmdutil"
)

// NewCommand builds the "read" subcommand: resolve a moniker path and fetch
// it through the matching client-side adapter, printing the result as JSON.
func NewCommand(cfgFile *string) *cobra.Command {
	var extra map[string]string

	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Resolve a moniker and read its bound data through the matching adapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}

			client := moniker.NewClient(cfg)
			m := moniker.New(args[0])

			extraAny := make(map[string]any, len(extra))
			for k, v := range extra {
				extraAny[k] = v
			}

			result, err := client.Read(cmd.Context(), m, extraAny)
			if err != nil {
				return err
			}

			return cmdutil.PrintJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringToStringVar(&extra, "param", nil, "extra adapter option, repeatable as key=value")

	return cmd
}
