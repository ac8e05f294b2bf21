package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"stackctl/internal/config"
	"stackctl/internal/execx"
	"stackctl/pkg/logging"
)

// ToolRefresher updates the checkout and its dependencies with the stack's
// own tooling: git for code, pip for the backend, npm for the frontend.
// Any non-zero exit aborts the run with the tool's captured output.
type ToolRefresher struct {
	runner execx.Runner
	cfg    config.RefreshConfig
	root   string
}

// NewToolRefresher creates a Refresher rooted at the project checkout.
func NewToolRefresher(runner execx.Runner, cfg config.RefreshConfig, root string) *ToolRefresher {
	return &ToolRefresher{runner: runner, cfg: cfg, root: root}
}

// Refresh implements the Refresher interface.
func (r *ToolRefresher) Refresh(ctx context.Context) error {
	if r.cfg.SkipGitPull {
		logging.Debug(subsystem, "git pull disabled in config")
	} else {
		if result, err := r.runner.Run(ctx, r.root, "git", "pull", "--ff-only"); err != nil {
			return fmt.Errorf("git pull: %s", result.Output())
		}
	}

	if fileExists(filepath.Join(r.cfg.BackendDir, "requirements.txt")) {
		if result, err := r.runner.Run(ctx, r.cfg.BackendDir, "pip", "install", "-r", "requirements.txt"); err != nil {
			return fmt.Errorf("pip install: %s", result.Output())
		}
	}

	if fileExists(filepath.Join(r.cfg.FrontendDir, "package.json")) {
		if result, err := r.runner.Run(ctx, r.cfg.FrontendDir, "npm", "install"); err != nil {
			return fmt.Errorf("npm install: %s", result.Output())
		}
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
