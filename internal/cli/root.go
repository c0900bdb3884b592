package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mjshashank/vboxclonevm/internal/config"
	"github.com/mjshashank/vboxclonevm/internal/logging"
	"github.com/mjshashank/vboxclonevm/internal/vboxmanage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg       *config.Config
	vbClient  vboxmanage.Client
	logger    = zap.NewNop()
	version   = "dev"
	buildTime = "unknown"

	vboxManagePath string
	verbose        bool
)

// SetVersion sets the version and build time for the CLI
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vboxclonevm",
		Short: "vboxclonevm - Clone VirtualBox VMs with their settings and disks",
		Long: `vboxclonevm clones a VirtualBox VM through VBoxManage.

The new VM gets the source's machine settings (CPU, memory, firmware,
boot order, VRDE), its network adapters and storage controllers, and a
full copy of every attached hard disk. DVD and floppy media are attached
to the new VM as they are.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip config loading for help commands
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logger, err = logging.New(cfg.LogLevel, verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			vbClient = vboxmanage.NewRealClient(
				vboxmanage.WithBinary(cfg.Binary(vboxManagePath)),
				vboxmanage.WithLogger(logger),
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&vboxManagePath, "vboxmanage", "", "Path to the VBoxManage binary (default from config or $VBOXMANAGE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every VBoxManage command")

	rootCmd.AddCommand(
		newCloneCmd(),
		newListCmd(),
		newHDDsCmd(),
		newInfoCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the root command. Interrupting cancels the running
// VBoxManage command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vboxclonevm version %s (built %s)\n", version, buildTime)
		},
	}
}
