package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stackctl/internal/config"
	"stackctl/internal/execx"
	"stackctl/pkg/logging"
)

// modelSubdirs is the fixed layout of the model artifacts directory.
var modelSubdirs = []string{"llama", "qwen", "mistral", "embeddings", "finetuned"}

// OllamaProvisioner pulls the configured models through the ollama CLI and
// writes the catalog file the backend reads. Everything here is advisory:
// the stack runs without pre-provisioned models.
type OllamaProvisioner struct {
	runner    execx.Runner
	models    config.ModelsConfig
	modelsDir string
}

// NewOllamaProvisioner creates a ModelProvisioner for the configured
// model list.
func NewOllamaProvisioner(runner execx.Runner, models config.ModelsConfig, modelsDir string) *OllamaProvisioner {
	return &OllamaProvisioner{runner: runner, models: models, modelsDir: modelsDir}
}

// EnsureModels implements the ModelProvisioner interface.
func (m *OllamaProvisioner) EnsureModels(ctx context.Context) error {
	for _, sub := range modelSubdirs {
		if err := os.MkdirAll(filepath.Join(m.modelsDir, sub), 0o755); err != nil {
			return fmt.Errorf("creating model directory %s: %w", sub, err)
		}
	}

	if _, err := m.runner.Run(ctx, "", "ollama", "--version"); err != nil {
		return fmt.Errorf("ollama not available: %w", err)
	}

	var pullErrs []error
	for _, name := range m.models.Names {
		logging.Info(subsystem, "pulling model %s", name)
		if result, err := m.runner.Run(ctx, "", "ollama", "pull", name); err != nil {
			pullErrs = append(pullErrs, fmt.Errorf("pull %s: %s", name, result.Output()))
		}
	}

	if err := m.writeCatalog(); err != nil {
		pullErrs = append(pullErrs, err)
	}

	return errors.Join(pullErrs...)
}

type modelCatalog struct {
	Models  []string  `json:"models"`
	Updated time.Time `json:"updated"`
}

// writeCatalog records the provisioned model list for the backend.
func (m *OllamaProvisioner) writeCatalog() error {
	if m.models.CatalogFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(modelCatalog{Models: m.models.Names, Updated: time.Now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding model catalog: %w", err)
	}
	if err := os.WriteFile(m.models.CatalogFile, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing model catalog: %w", err)
	}
	return nil
}
