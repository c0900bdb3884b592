package cli

import (
	"fmt"
	"strings"

	"github.com/mjshashank/vboxclonevm/internal/disk"
	"github.com/spf13/cobra"
)

func newHDDsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hdds [vm]",
		Short: "Show the hard disk forest",
		Long: `Show every registered hard disk as a tree of base images and their
differencing children.

With a VM name or UUID, only the disks currently attached to that VM are
shown, each followed by the chain of images it depends on.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			forest, err := disk.Load(cmd.Context(), vbClient)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				fmt.Fprint(cmd.OutOrStdout(), forest.String())
				return nil
			}

			vm, err := vbClient.FindVM(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			attached := forest.AttachedTo(vm.UUID)
			if len(attached) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No hdds attached to VM '%s'\n", vm.Name)
				return nil
			}

			for _, hdd := range attached {
				chain, err := forest.Lineage(hdd.UUID)
				if err != nil {
					return err
				}
				for depth, n := range chain {
					fmt.Fprintf(cmd.OutOrStdout(), "%s%s %s (%s)\n", strings.Repeat("  ", depth), n.UUID, n.Location, n.Type)
				}
			}
			return nil
		},
	}
}
