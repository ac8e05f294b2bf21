package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"stackctl/internal/config"
	"stackctl/internal/datastore"
	"stackctl/pkg/logging"
)

// StackProvisioner ensures the stack's directory tree, application config
// file, and data store exist. Every step is idempotent; an existing config
// file is never overwritten. Only a filesystem or data store error is
// fatal.
type StackProvisioner struct {
	cfg config.StackConfig
}

// NewStackProvisioner creates a Provisioner for the configured paths.
func NewStackProvisioner(cfg config.StackConfig) *StackProvisioner {
	return &StackProvisioner{cfg: cfg}
}

// Provision implements the Provisioner interface.
func (p *StackProvisioner) Provision(ctx context.Context) error {
	paths := p.cfg.Paths
	dirs := []string{
		paths.LogsDir,
		filepath.Dir(paths.DataStore),
		filepath.Join(paths.DocumentsDir, "raw"),
		filepath.Join(paths.DocumentsDir, "processed"),
		paths.UploadsDir,
		paths.BackupsDir,
		paths.ModelsDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if err := config.EnsureEnvFile(paths.EnvFile); err != nil {
		return err
	}

	if err := datastore.Initialize(paths.DataStore); err != nil {
		return err
	}

	logging.Debug(subsystem, "environment provisioned under %s", p.cfg.ProjectRoot)
	return nil
}
