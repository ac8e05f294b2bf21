package config

import (
	"path/filepath"
	"time"
)

// Default stack layout. Paths are relative to the project root unless
// overridden in the config file.
const (
	defaultBackendPort  = 5000
	defaultFrontendPort = 3000
	defaultOllamaPort   = 11434
)

// DefaultConfig returns the built-in configuration for the AI platform
// stack: FastAPI backend, web frontend, Ollama model daemon, and the
// production compose group.
func DefaultConfig(projectRoot string) StackConfig {
	abs := func(p string) string { return filepath.Join(projectRoot, p) }

	return StackConfig{
		ProjectRoot: projectRoot,
		Services: []ServiceDescriptor{
			{
				Name:         "ollama",
				LaunchMode:   LaunchLocalProcess,
				WorkDir:      projectRoot,
				Command:      []string{"ollama", "serve"},
				ReadinessURL: "http://localhost:11434/api/version",
				ListenPorts:  []int{defaultOllamaPort},
			},
			{
				Name:         "backend",
				LaunchMode:   LaunchLocalProcess,
				WorkDir:      projectRoot,
				Command:      []string{"python", "main.py"},
				ReadinessURL: "http://localhost:5000/health",
				ListenPorts:  []int{defaultBackendPort},
			},
			{
				Name:         "frontend",
				LaunchMode:   LaunchLocalProcess,
				WorkDir:      abs("frontend"),
				Command:      []string{"npm", "run", "dev"},
				ReadinessURL: "http://localhost:3000",
				ListenPorts:  []int{defaultFrontendPort},
			},
			{
				Name:        "platform",
				LaunchMode:  LaunchContainerGroup,
				WorkDir:     projectRoot,
				ListenPorts: []int{defaultBackendPort, defaultFrontendPort},
			},
		},
		Compose: ComposeConfig{
			File:        abs("docker-compose.prod.yml"),
			ProjectName: "ai-platform",
			EnvFile:     abs(".env"),
		},
		Paths: PathsConfig{
			DataStore:    abs("database/main.db"),
			DocumentsDir: abs("documents"),
			ModelsDir:    abs("ai-models"),
			UploadsDir:   abs("uploads"),
			BackupsDir:   abs("backups"),
			LogsDir:      abs("logs"),
			RegistryDB:   abs(".stackctl/registry.db"),
			LockFile:     abs(".stackctl/deploy.lock"),
			EnvFile:      abs(".env"),
		},
		Timing: TimingConfig{
			SettleDelay:    3 * time.Second,
			ReadyTimeout:   60 * time.Second,
			PollInterval:   2 * time.Second,
			ProbeTimeout:   3 * time.Second,
			ComposeTimeout: 120 * time.Second,
		},
		Refresh: RefreshConfig{
			BackendDir:  projectRoot,
			FrontendDir: abs("frontend"),
		},
		Models: ModelsConfig{
			Names: []string{
				"qwen2.5:7b",
				"llama3.2:3b",
				"mistral:7b",
				"nomic-embed-text",
			},
			CatalogFile: abs("ai-models/models.json"),
		},
	}
}
