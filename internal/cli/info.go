package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <vm>",
		Short: "Show the machine-readable settings of a VM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vm, err := vbClient.FindVM(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			info, err := vbClient.ShowVMInfo(cmd.Context(), vm.UUID)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, key := range info.Keys() {
				fmt.Fprintf(w, "%s\t%s\n", key, info[key])
			}
			return w.Flush()
		},
	}
}
