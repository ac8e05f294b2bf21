package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackctl/internal/backup"
	"stackctl/internal/color"
	"stackctl/internal/config"
	"stackctl/internal/execx"
	"stackctl/internal/lockfile"
	"stackctl/internal/orchestrator"
)

func newDeployCmd() *cobra.Command {
	var (
		withModels  bool
		skipRefresh bool
	)

	cmd := &cobra.Command{
		Use:   "deploy [environment]",
		Short: "Run a full deployment of the stack",
		Long: `Deploy runs the full deployment sequence: back up persistent state,
stop running services, refresh code and dependencies, provision the
environment, optionally set up models, start the stack, and verify
health. The environment is "development" (default) or "production".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.EnvDevelopment
			if len(args) == 1 {
				parsed, err := config.ParseEnvironment(args[0])
				if err != nil {
					return err
				}
				env = parsed
			}

			cfg, err := loadStack()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			lock, err := lockfile.Acquire(cfg.Paths.LockFile)
			if err != nil {
				return err
			}
			defer lock.Release()

			ctl, reg, checker, err := buildController(cfg)
			if err != nil {
				return fmt.Errorf("opening process registry: %w", err)
			}
			defer reg.Close()

			runner := execx.NewRunner()
			orch := orchestrator.New(cfg, orchestrator.Deps{
				Backup:      backup.NewManager(cfg.Paths.DataStore, cfg.Paths.DocumentsDir, cfg.Paths.ModelsDir, cfg.Paths.BackupsDir),
				Controller:  ctl,
				Health:      checker,
				Refresher:   orchestrator.NewToolRefresher(runner, cfg.Refresh, cfg.ProjectRoot),
				Provisioner: orchestrator.NewStackProvisioner(cfg),
				Models:      orchestrator.NewOllamaProvisioner(runner, cfg.Models, cfg.Paths.ModelsDir),
			})

			outcome := orch.Run(cmd.Context(), env, orchestrator.Options{
				WithModelSetup: withModels,
				SkipRefresh:    skipRefresh,
			})

			out := cmd.OutOrStdout()
			if !outcome.Success {
				fmt.Fprintf(out, "%s run %s failed at stage %s\n",
					color.Error.Render("✗"), outcome.RunID, color.Bold.Render(string(outcome.FailedStage)))
				if outcome.Detail != "" {
					fmt.Fprintln(out, color.Muted.Render(outcome.Detail))
				}
				return fmt.Errorf("deployment failed at stage %s", outcome.FailedStage)
			}

			fmt.Fprintf(out, "%s run %s deployed to %s\n",
				color.Success.Render("✓"), outcome.RunID, color.Bold.Render(string(env)))
			for _, ep := range outcome.Endpoints {
				fmt.Fprintf(out, "  %-10s %s\n", ep.Service, color.Muted.Render(ep.URL))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withModels, "with-models", false, "run the optional model setup stage")
	cmd.Flags().BoolVar(&skipRefresh, "skip-refresh", false, "skip code and dependency refresh")

	return cmd
}
