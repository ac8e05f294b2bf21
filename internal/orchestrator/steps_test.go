package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackctl/internal/config"
	"stackctl/internal/execx"
)

// scriptedRunner replays canned results keyed on a substring of the full
// command line.
type scriptedRunner struct {
	calls   []string
	results map[string]execx.Result
	errs    map[string]error
}

func newScriptedRunner() *scriptedRunner {
	return &scriptedRunner{
		results: make(map[string]execx.Result),
		errs:    make(map[string]error),
	}
}

func (s *scriptedRunner) Run(_ context.Context, dir string, name string, args ...string) (execx.Result, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	s.calls = append(s.calls, call)
	for pattern, err := range s.errs {
		if strings.Contains(call, pattern) {
			return s.results[pattern], err
		}
	}
	for pattern, result := range s.results {
		if strings.Contains(call, pattern) {
			return result, nil
		}
	}
	return execx.Result{}, nil
}

func TestRefreshRunsAllThreeTools(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("fastapi\n"), 0o644))
	frontend := filepath.Join(dir, "frontend")
	require.NoError(t, os.MkdirAll(frontend, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(frontend, "package.json"), []byte("{}"), 0o644))

	runner := newScriptedRunner()
	refresher := NewToolRefresher(runner, config.RefreshConfig{BackendDir: dir, FrontendDir: frontend}, dir)

	require.NoError(t, refresher.Refresh(context.Background()))
	require.Len(t, runner.calls, 3)
	assert.Equal(t, "git pull --ff-only", runner.calls[0])
	assert.Equal(t, "pip install -r requirements.txt", runner.calls[1])
	assert.Equal(t, "npm install", runner.calls[2])
}

func TestRefreshSkipsMissingManifests(t *testing.T) {
	dir := t.TempDir()
	runner := newScriptedRunner()
	refresher := NewToolRefresher(runner, config.RefreshConfig{BackendDir: dir, FrontendDir: dir, SkipGitPull: true}, dir)

	require.NoError(t, refresher.Refresh(context.Background()))
	assert.Empty(t, runner.calls)
}

func TestRefreshSurfacesToolOutputOnFailure(t *testing.T) {
	dir := t.TempDir()
	runner := newScriptedRunner()
	runner.results["git pull"] = execx.Result{ExitCode: 1, Stderr: "fatal: couldn't find remote ref main"}
	runner.errs["git pull"] = fmt.Errorf("git exited with code 1")

	refresher := NewToolRefresher(runner, config.RefreshConfig{BackendDir: dir, FrontendDir: dir}, dir)

	err := refresher.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "couldn't find remote ref")
}

func TestProvisionCreatesTreeAndEnvAndDataStore(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StackConfig{
		ProjectRoot: dir,
		Paths: config.PathsConfig{
			DataStore:    filepath.Join(dir, "database", "main.db"),
			DocumentsDir: filepath.Join(dir, "documents"),
			ModelsDir:    filepath.Join(dir, "ai-models"),
			UploadsDir:   filepath.Join(dir, "uploads"),
			BackupsDir:   filepath.Join(dir, "backups"),
			LogsDir:      filepath.Join(dir, "logs"),
			EnvFile:      filepath.Join(dir, ".env"),
		},
	}

	p := NewStackProvisioner(cfg)
	require.NoError(t, p.Provision(context.Background()))

	assert.DirExists(t, filepath.Join(dir, "documents", "raw"))
	assert.DirExists(t, filepath.Join(dir, "documents", "processed"))
	assert.DirExists(t, filepath.Join(dir, "logs"))
	assert.FileExists(t, filepath.Join(dir, ".env"))
	assert.FileExists(t, filepath.Join(dir, "database", "main.db"))

	// Idempotent, and never overwrites an existing config file.
	require.NoError(t, os.WriteFile(cfg.Paths.EnvFile, []byte("PORT=8888\n"), 0o644))
	require.NoError(t, p.Provision(context.Background()))
	data, err := os.ReadFile(cfg.Paths.EnvFile)
	require.NoError(t, err)
	assert.Equal(t, "PORT=8888\n", string(data))
}

func TestEnsureModelsPullsEachAndWritesCatalog(t *testing.T) {
	dir := t.TempDir()
	runner := newScriptedRunner()
	models := config.ModelsConfig{
		Names:       []string{"qwen2.5:7b", "nomic-embed-text"},
		CatalogFile: filepath.Join(dir, "models.json"),
	}

	p := NewOllamaProvisioner(runner, models, dir)
	require.NoError(t, p.EnsureModels(context.Background()))

	assert.Contains(t, runner.calls, "ollama --version")
	assert.Contains(t, runner.calls, "ollama pull qwen2.5:7b")
	assert.Contains(t, runner.calls, "ollama pull nomic-embed-text")

	for _, sub := range modelSubdirs {
		assert.DirExists(t, filepath.Join(dir, sub))
	}

	data, err := os.ReadFile(models.CatalogFile)
	require.NoError(t, err)
	var catalog modelCatalog
	require.NoError(t, json.Unmarshal(data, &catalog))
	assert.Equal(t, models.Names, catalog.Models)
}

func TestEnsureModelsWithoutOllamaBinary(t *testing.T) {
	dir := t.TempDir()
	runner := newScriptedRunner()
	runner.errs["--version"] = fmt.Errorf(`exec: "ollama": executable file not found in $PATH`)

	p := NewOllamaProvisioner(runner, config.ModelsConfig{Names: []string{"mistral:7b"}}, dir)

	err := p.EnsureModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama not available")
	assert.NotContains(t, runner.calls, "ollama pull mistral:7b")
}

func TestEnsureModelsContinuesAfterOnePullFails(t *testing.T) {
	dir := t.TempDir()
	runner := newScriptedRunner()
	runner.results["pull qwen2.5:7b"] = execx.Result{ExitCode: 1, Stderr: "manifest not found"}
	runner.errs["pull qwen2.5:7b"] = fmt.Errorf("ollama exited with code 1")

	models := config.ModelsConfig{Names: []string{"qwen2.5:7b", "mistral:7b"}}
	p := NewOllamaProvisioner(runner, models, dir)

	err := p.EnsureModels(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest not found")
	assert.Contains(t, runner.calls, "ollama pull mistral:7b", "one failed pull does not stop the rest")
}
