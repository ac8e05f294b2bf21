package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackctl/internal/backup"
	"stackctl/internal/config"
	"stackctl/internal/controller"
)

// --- fakes ---

type fakeBackup struct {
	archive backup.Archive
	err     error
	calls   int
}

func (f *fakeBackup) Snapshot() (backup.Archive, error) {
	f.calls++
	return f.archive, f.err
}

type fakeController struct {
	startResult    []controller.StartedService
	startErr       error
	startCalls     int
	stopAllCalls   int
	stopped        []string
	exited         map[string]bool
	groupWaitErr   error
	groupDownCalls int
	tails          map[string]string
}

func (f *fakeController) StartAll(ctx context.Context, env config.Environment) ([]controller.StartedService, error) {
	f.startCalls++
	return f.startResult, f.startErr
}

func (f *fakeController) StopAll(ctx context.Context) { f.stopAllCalls++ }

func (f *fakeController) Stop(ctx context.Context, name string) error {
	f.stopped = append(f.stopped, name)
	return nil
}

func (f *fakeController) Exited(name string) bool { return f.exited[name] }

func (f *fakeController) WaitGroupRunning(ctx context.Context, timeout, pollInterval time.Duration) error {
	return f.groupWaitErr
}

func (f *fakeController) GroupDown(ctx context.Context) { f.groupDownCalls++ }

func (f *fakeController) GroupLogs(ctx context.Context, tail int) string {
	return "backend-1 exited with code 137"
}

func (f *fakeController) DiagnosticTail(name string, lines int) string {
	if tail, ok := f.tails[name]; ok {
		return tail
	}
	return "(empty)"
}

type fakeHealth struct {
	failures map[string]error
	waited   []string
}

func (f *fakeHealth) WaitReady(ctx context.Context, url string, timeout, pollInterval time.Duration) error {
	f.waited = append(f.waited, url)
	return f.failures[url]
}

type fakeStep struct {
	err   error
	calls int
}

func (f *fakeStep) Refresh(ctx context.Context) error      { f.calls++; return f.err }
func (f *fakeStep) Provision(ctx context.Context) error    { f.calls++; return f.err }
func (f *fakeStep) EnsureModels(ctx context.Context) error { f.calls++; return f.err }

// --- fixtures ---

func testConfig() config.StackConfig {
	return config.StackConfig{
		ProjectRoot: "/srv/platform",
		Services: []config.ServiceDescriptor{
			{
				Name:         "backend",
				LaunchMode:   config.LaunchLocalProcess,
				Command:      []string{"python", "main.py"},
				ReadinessURL: "http://localhost:5000/health",
				ListenPorts:  []int{5000},
			},
			{
				Name:         "frontend",
				LaunchMode:   config.LaunchLocalProcess,
				Command:      []string{"npm", "run", "dev"},
				ReadinessURL: "http://localhost:3000",
				ListenPorts:  []int{3000},
			},
			{
				Name:        "platform",
				LaunchMode:  config.LaunchContainerGroup,
				ListenPorts: []int{5000, 3000},
			},
		},
		Paths: config.PathsConfig{RegistryDB: "/srv/platform/.stackctl/registry.db"},
		Timing: config.TimingConfig{
			ReadyTimeout:   time.Second,
			PollInterval:   10 * time.Millisecond,
			ComposeTimeout: time.Second,
		},
	}
}

type fixture struct {
	orch       *Orchestrator
	backup     *fakeBackup
	controller *fakeController
	health     *fakeHealth
	refresher  *fakeStep
	provision  *fakeStep
	models     *fakeStep
}

func newFixture(cfg config.StackConfig) *fixture {
	f := &fixture{
		backup: &fakeBackup{},
		controller: &fakeController{
			startResult: []controller.StartedService{
				{Name: "backend", Mode: config.LaunchLocalProcess, PID: 101},
				{Name: "frontend", Mode: config.LaunchLocalProcess, PID: 102},
			},
			exited: map[string]bool{},
			tails:  map[string]string{},
		},
		health:    &fakeHealth{failures: map[string]error{}},
		refresher: &fakeStep{},
		provision: &fakeStep{},
		models:    &fakeStep{},
	}
	f.orch = New(cfg, Deps{
		Backup:      f.backup,
		Controller:  f.controller,
		Health:      f.health,
		Refresher:   f.refresher,
		Provisioner: f.provision,
		Models:      f.models,
	})
	return f
}

// --- tests ---

func TestRunDevelopmentSuccess(t *testing.T) {
	f := newFixture(testConfig())

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{})

	require.True(t, outcome.Success, "detail: %s", outcome.Detail)
	assert.NotEmpty(t, outcome.RunID)
	assert.Empty(t, outcome.FailedStage)

	// Every stage ran, in its place.
	assert.Equal(t, 1, f.backup.calls)
	assert.Equal(t, 1, f.controller.stopAllCalls)
	assert.Equal(t, 1, f.refresher.calls)
	assert.Equal(t, 1, f.provision.calls)
	assert.Equal(t, 0, f.models.calls, "model setup only runs when requested")
	assert.Equal(t, 1, f.controller.startCalls)

	// Both readiness URLs verified, and reported as endpoints.
	assert.Equal(t, []string{"http://localhost:5000/health", "http://localhost:3000"}, f.health.waited)
	assert.Equal(t, []Endpoint{
		{Service: "backend", URL: "http://localhost:5000/health"},
		{Service: "frontend", URL: "http://localhost:3000"},
	}, outcome.Endpoints)
}

func TestRunBackupFailureIsAdvisory(t *testing.T) {
	f := newFixture(testConfig())
	f.backup.err = fmt.Errorf("disk full")

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{})
	assert.True(t, outcome.Success)
}

func TestRunRefreshFailureIsFatal(t *testing.T) {
	f := newFixture(testConfig())
	f.refresher.err = fmt.Errorf("git pull: merge conflict in main.py")

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{})

	require.False(t, outcome.Success)
	assert.Equal(t, StageRefresh, outcome.FailedStage)
	assert.Contains(t, outcome.Detail, "merge conflict")
	assert.Zero(t, f.controller.startCalls, "nothing launches after a failed refresh")
}

func TestRunSkipRefresh(t *testing.T) {
	f := newFixture(testConfig())
	f.refresher.err = fmt.Errorf("would fail")

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{SkipRefresh: true})

	assert.True(t, outcome.Success)
	assert.Zero(t, f.refresher.calls)
}

func TestRunProvisionFailureIsFatal(t *testing.T) {
	f := newFixture(testConfig())
	f.provision.err = fmt.Errorf("mkdir /srv/platform/logs: permission denied")

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{})

	require.False(t, outcome.Success)
	assert.Equal(t, StageProvision, outcome.FailedStage)
}

func TestRunModelSetupFailureIsAdvisory(t *testing.T) {
	f := newFixture(testConfig())
	f.models.err = fmt.Errorf("ollama not available")

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{WithModelSetup: true})

	assert.True(t, outcome.Success)
	assert.Equal(t, 1, f.models.calls)
}

func TestRunStartFailureCleansUpPartialLaunches(t *testing.T) {
	f := newFixture(testConfig())
	f.controller.startResult = []controller.StartedService{
		{Name: "backend", Mode: config.LaunchLocalProcess, PID: 101},
	}
	f.controller.startErr = fmt.Errorf("starting frontend: npm not found")

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{})

	require.False(t, outcome.Success)
	assert.Equal(t, StageStart, outcome.FailedStage)
	assert.Equal(t, []string{"backend"}, f.controller.stopped)
}

func TestRunVerifyFailureTearsDownEverythingStarted(t *testing.T) {
	f := newFixture(testConfig())
	f.health.failures["http://localhost:5000/health"] = fmt.Errorf("http://localhost:5000/health not ready within 1s")
	f.controller.tails["backend"] = "ModuleNotFoundError: No module named 'fastapi'"

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{})

	require.False(t, outcome.Success)
	assert.Equal(t, StageVerify, outcome.FailedStage)
	assert.Contains(t, outcome.Detail, "ModuleNotFoundError")
	// The frontend came up fine, but a failed run leaves nothing behind.
	assert.ElementsMatch(t, []string{"backend", "frontend"}, f.controller.stopped)
}

func TestRunVerifyFastFailsWhenProcessAlreadyExited(t *testing.T) {
	f := newFixture(testConfig())
	f.controller.exited["backend"] = true
	f.controller.tails["backend"] = "Traceback (most recent call last)"

	outcome := f.orch.Run(context.Background(), config.EnvDevelopment, Options{})

	require.False(t, outcome.Success)
	assert.Equal(t, StageVerify, outcome.FailedStage)
	assert.Contains(t, outcome.Detail, "exited before becoming ready")
	assert.Contains(t, outcome.Detail, "Traceback")
	assert.Empty(t, f.health.waited, "no point polling a dead process")
}

func TestRunProductionVerifiesContainerGroup(t *testing.T) {
	f := newFixture(testConfig())
	f.controller.startResult = []controller.StartedService{
		{Name: "platform", Mode: config.LaunchContainerGroup},
	}

	outcome := f.orch.Run(context.Background(), config.EnvProduction, Options{})

	require.True(t, outcome.Success, "detail: %s", outcome.Detail)
	assert.Empty(t, f.health.waited, "production readiness comes from the group status, not HTTP probes")
}

func TestRunProductionGroupFailureIncludesComposeLogs(t *testing.T) {
	f := newFixture(testConfig())
	f.controller.startResult = []controller.StartedService{
		{Name: "platform", Mode: config.LaunchContainerGroup},
	}
	f.controller.groupWaitErr = fmt.Errorf("container group members not running after 1s: [backend (exited)]")

	outcome := f.orch.Run(context.Background(), config.EnvProduction, Options{})

	require.False(t, outcome.Success)
	assert.Equal(t, StageVerify, outcome.FailedStage)
	assert.Contains(t, outcome.Detail, "exited with code 137")
	assert.Equal(t, 1, f.controller.groupDownCalls, "failed group run is torn down")
}
