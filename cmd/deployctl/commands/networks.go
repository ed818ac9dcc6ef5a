package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// networks: list the deployable networks in registry order.
func networksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List deployable networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tCHAIN ID\tNAME\tRPC\tEXPLORER")
			for _, n := range registry.All() {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", n.Key, n.ChainID, n.Name, n.RPCEndpoint, n.ExplorerURL)
			}
			return w.Flush()
		},
	}
}
