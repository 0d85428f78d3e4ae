// Package tree implements the "tree" monikerctl subcommand.
package tree

import (
	"github.com/spf13/cobra"

	moniker "github.com/open-moniker/moniker-client"
	"github.com/open-moniker/moniker-client/cmd/monikerctl/cmd/cmdutil"
)

// NewCommand builds the "tree" subcommand: the moniker subtree rooted at
// path, up to depth levels deep, printed as JSON.
func NewCommand(cfgFile *string) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "tree <path>",
		Short: "Print the moniker subtree rooted at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig(*cfgFile)
			if err != nil {
				return err
			}

			client := moniker.NewClient(cfg)
			m := moniker.New(args[0])

			result, err := client.Tree(cmd.Context(), m, depth)
			if err != nil {
				return err
			}

			return cmdutil.PrintJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 1, "number of child levels to include")

	return cmd
}
