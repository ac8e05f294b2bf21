package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackctl/internal/color"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of every managed service",
		Long: `Status reports each local service's registry entry, process liveness,
and readiness probe result, plus the container group's state when one
is configured. Status never mutates anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadStack()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			ctl, reg, _, err := buildController(cfg)
			if err != nil {
				return fmt.Errorf("opening process registry: %w", err)
			}
			defer reg.Close()

			statuses, err := ctl.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("reading service status: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, s := range statuses {
				var state, detail string
				switch {
				case !s.Running:
					state = color.Error.Render("stopped")
				case s.HasURL && !s.Ready:
					state = color.Warning.Render("starting")
					detail = fmt.Sprintf("pid %d, not ready", s.PID)
				default:
					state = color.Success.Render("running")
					detail = fmt.Sprintf("pid %d", s.PID)
				}
				fmt.Fprintf(out, "%-10s %s", s.Name, state)
				if detail != "" {
					fmt.Fprintf(out, "  %s", color.Muted.Render(detail))
				}
				fmt.Fprintln(out)
			}

			containers, err := ctl.GroupStatus(cmd.Context())
			if err != nil {
				// The group state is supplementary; a compose failure must not
				// hide the local service report above.
				fmt.Fprintf(out, "%s container group state unavailable: %v\n", color.Warning.Render("!"), err)
				return nil
			}
			for _, c := range containers {
				state := color.Success.Render(c.State)
				if c.State != "running" {
					state = color.Warning.Render(c.State)
				}
				fmt.Fprintf(out, "%-10s %s  %s\n", c.Service, state, color.Muted.Render(c.Name))
			}
			return nil
		},
	}
}
