package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/srv/platform")

	require.NoError(t, cfg.Validate())

	local := cfg.LocalServices()
	names := make([]string, 0, len(local))
	for _, d := range local {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"ollama", "backend", "frontend"}, names)

	group, ok := cfg.ContainerGroupService()
	require.True(t, ok)
	assert.Equal(t, "platform", group.Name)

	assert.Equal(t, "/srv/platform/database/main.db", cfg.Paths.DataStore)
	assert.Equal(t, "/srv/platform/.stackctl/registry.db", cfg.Paths.RegistryDB)
}

func TestServiceDescriptorValidate(t *testing.T) {
	tests := []struct {
		name       string
		descriptor ServiceDescriptor
		wantErr    string
	}{
		{
			name: "valid local process",
			descriptor: ServiceDescriptor{
				Name:       "backend",
				LaunchMode: LaunchLocalProcess,
				Command:    []string{"python", "main.py"},
			},
		},
		{
			name: "local process without command",
			descriptor: ServiceDescriptor{
				Name:       "backend",
				LaunchMode: LaunchLocalProcess,
			},
			wantErr: "requires a command",
		},
		{
			name: "container group without command is fine",
			descriptor: ServiceDescriptor{
				Name:       "platform",
				LaunchMode: LaunchContainerGroup,
			},
		},
		{
			name:       "missing name",
			descriptor: ServiceDescriptor{LaunchMode: LaunchLocalProcess, Command: []string{"x"}},
			wantErr:    "no name",
		},
		{
			name: "unknown launch mode",
			descriptor: ServiceDescriptor{
				Name:       "backend",
				LaunchMode: "magic",
			},
			wantErr: "unknown launchMode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.descriptor.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestServiceDescriptorEndpoint(t *testing.T) {
	withURL := ServiceDescriptor{ReadinessURL: "http://localhost:5000/health"}
	assert.Equal(t, "http://localhost:5000/health", withURL.Endpoint())

	withPort := ServiceDescriptor{ListenPorts: []int{3000}}
	assert.Equal(t, "http://localhost:3000", withPort.Endpoint())

	assert.Equal(t, "", ServiceDescriptor{}.Endpoint())
}

func TestProjectConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()

	// Point the loader at a fake working directory with a project config.
	origGetwd := osGetwd
	osGetwd = func() (string, error) { return dir, nil }
	defer func() { osGetwd = origGetwd }()

	origUserPath := getUserConfigPath
	getUserConfigPath = func() (string, error) { return filepath.Join(dir, "no-user-config.yaml"), nil }
	defer func() { getUserConfigPath = origUserPath }()

	projectDir := filepath.Join(dir, projectConfigDir)
	require.NoError(t, os.MkdirAll(projectDir, 0o755))
	projectConfig := `
timing:
  settleDelay: 1s
refresh:
  skipGitPull: true
`
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, configFileName), []byte(projectConfig), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Timing.SettleDelay)
	assert.True(t, cfg.Refresh.SkipGitPull)
	// Untouched fields keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.Timing.ReadyTimeout)
	assert.Len(t, cfg.Services, 4)
}

func TestEnsureEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	require.NoError(t, EnsureEnvFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "DATABASE_URL=")

	// A second call must not overwrite local edits.
	require.NoError(t, os.WriteFile(path, []byte("PORT=9999\n"), 0o644))
	require.NoError(t, EnsureEnvFile(path))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PORT=9999\n", string(data))
}
