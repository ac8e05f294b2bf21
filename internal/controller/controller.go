// Package controller starts, stops, and queries the stack's services,
// abstracting over two backends: direct local process launch and the
// compose container group.
package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"stackctl/internal/compose"
	"stackctl/internal/config"
	"stackctl/internal/execx"
	"stackctl/internal/health"
	"stackctl/internal/registry"
	"stackctl/pkg/logging"
)

const subsystem = "Controller"

// StartedService is the handle for one launch performed by this controller
// in the current invocation.
type StartedService struct {
	Name    string
	Mode    config.LaunchMode
	PID     int
	LogPath string
}

// Controller manages the lifecycle of every configured service.
type Controller struct {
	cfg      config.StackConfig
	registry *registry.Registry
	compose  *compose.Client
	runner   execx.Runner
	health   *health.Checker

	mu       sync.Mutex
	launched map[string]*localProcess // processes spawned by this invocation
}

// localProcess tracks a process spawned by this invocation so an immediate
// exit can be distinguished from a healthy slow start.
type localProcess struct {
	cmd  *exec.Cmd
	done chan struct{} // closed once Wait returns
}

func (p *localProcess) exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// New creates a Controller over the given registry and compose client.
func New(cfg config.StackConfig, reg *registry.Registry, composeClient *compose.Client, runner execx.Runner, checker *health.Checker) *Controller {
	return &Controller{
		cfg:      cfg,
		registry: reg,
		compose:  composeClient,
		runner:   runner,
		health:   checker,
		launched: make(map[string]*localProcess),
	}
}

// StartAll launches the stack for the given environment. In production
// with a container group configured, the group is launched; otherwise each
// localProcess descriptor is launched directly, sequentially, in
// declaration order. It returns a handle for every launch that succeeded,
// including when a later launch fails, so the caller can clean up.
func (c *Controller) StartAll(ctx context.Context, env config.Environment) ([]StartedService, error) {
	if env == config.EnvProduction {
		if group, ok := c.cfg.ContainerGroupService(); ok {
			return c.startGroup(ctx, group)
		}
		logging.Warn(subsystem, "production requested but no containerGroup service configured; launching local processes")
	}

	var started []StartedService
	for _, d := range c.cfg.LocalServices() {
		handle, err := c.Start(ctx, d)
		if err != nil {
			return started, fmt.Errorf("starting %s: %w", d.Name, err)
		}
		started = append(started, handle)
		// Settle before the next launch (and before Verify probes the last
		// one); readiness probes immediately after launch fail transiently,
		// and sequential launch keeps port-binding order deterministic.
		time.Sleep(c.cfg.Timing.SettleDelay)
	}
	return started, nil
}

// Start launches one localProcess descriptor: reclaim its declared ports,
// spawn the command in its own process group with output captured to the
// service log file, and record the pid durably. Launch failures are
// reported, not retried.
func (c *Controller) Start(ctx context.Context, d config.ServiceDescriptor) (StartedService, error) {
	if d.LaunchMode != config.LaunchLocalProcess {
		return StartedService{}, fmt.Errorf("service %s: Start only handles localProcess descriptors", d.Name)
	}

	c.ReclaimPorts(ctx, d)

	logPath, logFile, err := c.openLogFile(d.Name)
	if err != nil {
		return StartedService{}, err
	}

	cmd := exec.Command(d.Command[0], d.Command[1:]...)
	cmd.Dir = d.WorkDir
	cmd.Env = append(os.Environ(), d.Env...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	// Own process group so Stop can signal the whole tree (npm and uvicorn
	// both fork workers).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return StartedService{}, fmt.Errorf("launching %q: %w", d.Command[0], err)
	}
	pid := cmd.Process.Pid

	proc := &localProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		cmd.Wait()
		logFile.Close()
		close(proc.done)
	}()

	c.mu.Lock()
	c.launched[d.Name] = proc
	c.mu.Unlock()

	if err := c.registry.Record(d.Name, pid); err != nil {
		// The process is up but untracked; kill it rather than orphan it.
		killGroup(pid, syscall.SIGTERM)
		return StartedService{}, fmt.Errorf("recording pid for %s: %w", d.Name, err)
	}

	logging.Info(subsystem, "started %s (pid %d), logging to %s", d.Name, pid, logPath)
	return StartedService{Name: d.Name, Mode: config.LaunchLocalProcess, PID: pid, LogPath: logPath}, nil
}

// Exited reports whether a service launched by this invocation has already
// terminated. Services launched by prior invocations report false.
func (c *Controller) Exited(name string) bool {
	c.mu.Lock()
	proc, ok := c.launched[name]
	c.mu.Unlock()
	return ok && proc.exited()
}

// Stop terminates the named service if the registry holds a pid for it.
// Signaling an already-dead pid is not an error, and a missing registry
// entry is a no-op, so Stop is idempotent.
func (c *Controller) Stop(ctx context.Context, name string) error {
	pid, err := c.registry.Lookup(name)
	if errors.Is(err, registry.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	logging.Info(subsystem, "stopping %s (pid %d)", name, pid)
	killGroup(pid, syscall.SIGTERM)

	if err := c.registry.Clear(name); err != nil {
		return err
	}
	return nil
}

// StopAll tears down everything a prior run may have left behind: the
// compose group (regardless of which mode the prior run used) and every
// registry-recorded local process. All errors are logged and swallowed;
// the goal is "stopped or already stopped".
func (c *Controller) StopAll(ctx context.Context) {
	if _, ok := c.cfg.ContainerGroupService(); ok && c.compose != nil {
		if _, err := c.compose.Down(ctx); err != nil {
			logging.Debug(subsystem, "compose down (best-effort): %v", err)
		}
	}

	entries, err := c.registry.All()
	if err != nil {
		logging.Warn(subsystem, "reading registry during stop: %v", err)
		return
	}
	for _, entry := range entries {
		if err := c.Stop(ctx, entry.Service); err != nil {
			logging.Warn(subsystem, "stopping %s: %v", entry.Service, err)
		}
	}
}

// DiagnosticTail returns the last lines of a service's log file, used as
// failure detail so the operator does not have to dig through logs by hand.
func (c *Controller) DiagnosticTail(name string, lines int) string {
	path := filepath.Join(c.cfg.Paths.LogsDir, name+".log")
	tail, err := tailFile(path, lines)
	if err != nil {
		return fmt.Sprintf("(no log output captured for %s: %v)", name, err)
	}
	return tail
}

func (c *Controller) openLogFile(name string) (string, *os.File, error) {
	if err := os.MkdirAll(c.cfg.Paths.LogsDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating logs directory: %w", err)
	}
	path := filepath.Join(c.cfg.Paths.LogsDir, name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return path, f, nil
}

// killGroup signals the process group led by pid, falling back to the pid
// itself when no group exists. ESRCH (already gone) is ignored.
func killGroup(pid int, sig syscall.Signal) {
	if err := syscall.Kill(-pid, sig); err != nil {
		if err := syscall.Kill(pid, sig); err != nil && err != syscall.ESRCH {
			logging.Debug(subsystem, "signaling pid %d: %v", pid, err)
		}
	}
}

// processAlive reports whether pid refers to a live process.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
