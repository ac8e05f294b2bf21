package config

import (
	"fmt"
	"time"
)

// Environment selects the deployment target.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ParseEnvironment validates a user-supplied environment name.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(s) {
	case EnvDevelopment, EnvProduction:
		return Environment(s), nil
	default:
		return "", fmt.Errorf("unknown environment %q (expected %q or %q)", s, EnvDevelopment, EnvProduction)
	}
}

// LaunchMode defines how a service is started.
type LaunchMode string

const (
	// LaunchLocalProcess spawns the service's command directly on the host.
	LaunchLocalProcess LaunchMode = "localProcess"
	// LaunchContainerGroup delegates the service to the compose runtime.
	LaunchContainerGroup LaunchMode = "containerGroup"
)

// ServiceDescriptor identifies one managed service and how to launch and
// probe it. Descriptors are immutable for the duration of a run.
type ServiceDescriptor struct {
	Name         string     `yaml:"name"`
	LaunchMode   LaunchMode `yaml:"launchMode"`
	WorkDir      string     `yaml:"workDir,omitempty"`      // Working directory for the launch command
	Command      []string   `yaml:"command,omitempty"`      // Command and arguments, e.g. ["python", "main.py"]
	Env          []string   `yaml:"env,omitempty"`          // Extra environment, KEY=VALUE pairs passed through opaquely
	ReadinessURL string     `yaml:"readinessURL,omitempty"` // Optional; absent means ready once the process is running
	ListenPorts  []int      `yaml:"listenPorts,omitempty"`  // Ports the service binds; reclaimed before launch if held
}

// Validate checks the descriptor's structural invariants.
func (d ServiceDescriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("service descriptor has no name")
	}
	switch d.LaunchMode {
	case LaunchLocalProcess:
		if len(d.Command) == 0 {
			return fmt.Errorf("service %q: launchMode localProcess requires a command", d.Name)
		}
	case LaunchContainerGroup:
		// The compose definition supplies the command.
	default:
		return fmt.Errorf("service %q: unknown launchMode %q", d.Name, d.LaunchMode)
	}
	return nil
}

// Endpoint returns the externally reachable address reported on a
// successful deployment: the readiness URL when one is configured,
// otherwise the first declared listen port on localhost.
func (d ServiceDescriptor) Endpoint() string {
	if d.ReadinessURL != "" {
		return d.ReadinessURL
	}
	if len(d.ListenPorts) > 0 {
		return fmt.Sprintf("http://localhost:%d", d.ListenPorts[0])
	}
	return ""
}

// ComposeConfig locates the production compose definition.
type ComposeConfig struct {
	File        string `yaml:"file,omitempty"`        // Path to the compose file (default: docker-compose.prod.yml)
	ProjectName string `yaml:"projectName,omitempty"` // Compose project name
	EnvFile     string `yaml:"envFile,omitempty"`     // Env file passed to compose
}

// PathsConfig names the filesystem locations the orchestrator owns or backs up.
type PathsConfig struct {
	DataStore    string `yaml:"dataStore,omitempty"`    // Structured data store file (sqlite)
	DocumentsDir string `yaml:"documentsDir,omitempty"` // Document store directory
	ModelsDir    string `yaml:"modelsDir,omitempty"`    // Model artifacts directory
	UploadsDir   string `yaml:"uploadsDir,omitempty"`   // User upload staging directory
	BackupsDir   string `yaml:"backupsDir,omitempty"`   // Where Snapshot() creates timestamped archives
	LogsDir      string `yaml:"logsDir,omitempty"`      // Per-service log files
	RegistryDB   string `yaml:"registryDB,omitempty"`   // Process registry database file
	LockFile     string `yaml:"lockFile,omitempty"`     // Exclusive run lock
	EnvFile      string `yaml:"envFile,omitempty"`      // Application config file provisioned from the template
}

// TimingConfig carries the orchestrator's delays and deadlines.
type TimingConfig struct {
	SettleDelay    time.Duration `yaml:"settleDelay,omitempty"`    // Pause after launching before probing
	ReadyTimeout   time.Duration `yaml:"readyTimeout,omitempty"`   // Overall readiness deadline per service
	PollInterval   time.Duration `yaml:"pollInterval,omitempty"`   // Delay between readiness probes
	ProbeTimeout   time.Duration `yaml:"probeTimeout,omitempty"`   // Per-attempt probe timeout
	ComposeTimeout time.Duration `yaml:"composeTimeout,omitempty"` // Deadline for the container group to reach "running"
}

// RefreshConfig locates the code and dependency refresh targets.
type RefreshConfig struct {
	BackendDir  string `yaml:"backendDir,omitempty"`  // Directory holding requirements.txt
	FrontendDir string `yaml:"frontendDir,omitempty"` // Directory holding package.json
	SkipGitPull bool   `yaml:"skipGitPull,omitempty"` // For checkouts without a remote
}

// ModelsConfig lists the models the optional setup stage provisions.
type ModelsConfig struct {
	Names       []string `yaml:"names,omitempty"`       // Ollama model names, e.g. "qwen2.5:7b"
	CatalogFile string   `yaml:"catalogFile,omitempty"` // models.json path inside the models dir
}

// StackConfig is the top-level configuration for stackctl.
type StackConfig struct {
	ProjectRoot string              `yaml:"projectRoot,omitempty"`
	Services    []ServiceDescriptor `yaml:"services,omitempty"`
	Compose     ComposeConfig       `yaml:"compose,omitempty"`
	Paths       PathsConfig         `yaml:"paths,omitempty"`
	Timing      TimingConfig        `yaml:"timing,omitempty"`
	Refresh     RefreshConfig       `yaml:"refresh,omitempty"`
	Models      ModelsConfig        `yaml:"models,omitempty"`
}

// Validate checks every descriptor and required path.
func (c StackConfig) Validate() error {
	if len(c.Services) == 0 {
		return fmt.Errorf("no services configured")
	}
	seen := make(map[string]bool, len(c.Services))
	for _, d := range c.Services {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate service name %q", d.Name)
		}
		seen[d.Name] = true
	}
	if c.Paths.RegistryDB == "" {
		return fmt.Errorf("paths.registryDB must be set")
	}
	return nil
}

// ContainerGroupService returns the containerGroup descriptor, if any.
func (c StackConfig) ContainerGroupService() (ServiceDescriptor, bool) {
	for _, d := range c.Services {
		if d.LaunchMode == LaunchContainerGroup {
			return d, true
		}
	}
	return ServiceDescriptor{}, false
}

// LocalServices returns all localProcess descriptors in declaration order.
func (c StackConfig) LocalServices() []ServiceDescriptor {
	var out []ServiceDescriptor
	for _, d := range c.Services {
		if d.LaunchMode == LaunchLocalProcess {
			out = append(out, d)
		}
	}
	return out
}
