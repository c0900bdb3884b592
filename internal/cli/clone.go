package cli

import (
	"fmt"

	"github.com/mjshashank/vboxclonevm/internal/clone"
	"github.com/spf13/cobra"
)

func newCloneCmd() *cobra.Command {
	var (
		ostype     string
		diskFormat string
	)

	cmd := &cobra.Command{
		Use:   "clone <source> <new_name>",
		Short: "Clone a VM",
		Long: `Clone an existing VM into a new, registered VM.

The source is given by name or UUID. Hard disks are cloned into the new
VM's folder as <new_name>-1.vdi, <new_name>-2.vdi and so on. The source VM
should be powered off while it is being cloned.

If --ostype is not given, the default from ~/.vboxclonevm/config.json is
used, then the source VM's OS type.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := args[0]
			dest := args[1]

			if ostype == "" {
				ostype = cfg.DefaultOSType
			}
			if diskFormat == "" {
				diskFormat = cfg.DiskFormat
			}

			cloner := clone.New(vbClient,
				clone.WithLogger(logger),
				clone.WithOutput(cmd.OutOrStdout()),
				clone.WithDiskFormat(diskFormat),
			)

			fmt.Fprintf(cmd.OutOrStdout(), "Cloning VM '%s' to '%s'...\n", source, dest)
			vm, err := cloner.Clone(cmd.Context(), clone.Request{
				Source: source,
				Name:   dest,
				OSType: ostype,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "VM '%s' cloned to '%s' {%s}\n", source, vm.Name, vm.UUID)
			return nil
		},
	}

	cmd.Flags().StringVar(&ostype, "ostype", "", "OS type of the new VM, e.g., Ubuntu_64 (default: config, then source VM)")
	cmd.Flags().StringVar(&diskFormat, "format", "", "Image format for cloned disks: VDI, VMDK or VHD (default from config)")

	return cmd
}
