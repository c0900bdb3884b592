package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List all registered VMs",
		Aliases: []string{"ls"},
		RunE: func(cmd *cobra.Command, args []string) error {
			vms, err := vbClient.ListVMs(cmd.Context())
			if err != nil {
				return err
			}

			if len(vms) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No VMs found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tUUID")
			fmt.Fprintln(w, "----\t----")

			for _, vm := range vms {
				fmt.Fprintf(w, "%s\t%s\n", vm.Name, vm.UUID)
			}

			return w.Flush()
		},
	}
}
