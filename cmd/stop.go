package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackctl/internal/color"
	"stackctl/internal/lockfile"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop all managed services",
		Long: `Stop terminates every service the registry knows about and brings the
container group down when one is configured. Services that are already
stopped are skipped; stale registry entries are cleared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadStack()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			lock, err := lockfile.Acquire(cfg.Paths.LockFile)
			if err != nil {
				return err
			}
			defer lock.Release()

			ctl, reg, _, err := buildController(cfg)
			if err != nil {
				return fmt.Errorf("opening process registry: %w", err)
			}
			defer reg.Close()

			ctl.StopAll(cmd.Context())

			fmt.Fprintf(cmd.OutOrStdout(), "%s all managed services stopped\n", color.Success.Render("✓"))
			return nil
		},
	}
}
