package cmd

import (
	"stackctl/internal/compose"
	"stackctl/internal/config"
	"stackctl/internal/controller"
	"stackctl/internal/execx"
	"stackctl/internal/health"
	"stackctl/internal/registry"
)

// loadStack loads the configuration, honoring --config when set.
func loadStack() (config.StackConfig, error) {
	if flagConfig != "" {
		return config.LoadConfigFromFile(flagConfig)
	}
	return config.LoadConfig()
}

// buildController wires the registry, compose client, and health checker
// into a service controller. The caller owns closing the registry.
func buildController(cfg config.StackConfig) (*controller.Controller, *registry.Registry, *health.Checker, error) {
	reg, err := registry.Open(cfg.Paths.RegistryDB)
	if err != nil {
		return nil, nil, nil, err
	}

	runner := execx.NewRunner()
	composeClient := compose.NewClient(runner, cfg.Compose.File, cfg.Compose.ProjectName, cfg.Compose.EnvFile, cfg.ProjectRoot)
	checker := health.NewChecker(cfg.Timing.ProbeTimeout)

	return controller.New(cfg, reg, composeClient, runner, checker), reg, checker, nil
}
