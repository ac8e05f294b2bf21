package controller

import (
	"context"
	"errors"
	"os"
	"strings"

	"stackctl/internal/compose"
	"stackctl/internal/registry"
)

// ServiceStatus is a point-in-time view of one managed service, assembled
// for the status command.
type ServiceStatus struct {
	Name    string
	PID     int  // 0 when no registry entry exists
	Running bool // pid recorded and process alive
	Ready   bool // readiness probe answered 2xx
	HasURL  bool // descriptor declares a readiness URL
}

// Status reports the current state of every localProcess descriptor.
func (c *Controller) Status(ctx context.Context) ([]ServiceStatus, error) {
	var statuses []ServiceStatus
	for _, d := range c.cfg.LocalServices() {
		status := ServiceStatus{Name: d.Name, HasURL: d.ReadinessURL != ""}

		pid, err := c.registry.Lookup(d.Name)
		switch {
		case err == nil:
			status.PID = pid
			status.Running = processAlive(pid)
		case errors.Is(err, registry.ErrNotFound):
			// Not managed right now.
		default:
			return nil, err
		}

		if status.HasURL && c.health != nil {
			status.Ready = c.health.Probe(ctx, d.ReadinessURL) == nil
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// GroupStatus returns the compose group's container states, or nil when no
// container group is configured.
func (c *Controller) GroupStatus(ctx context.Context) ([]compose.ContainerState, error) {
	if _, ok := c.cfg.ContainerGroupService(); !ok || c.compose == nil {
		return nil, nil
	}
	return c.compose.PS(ctx)
}

// tailFile returns the last n lines of the file at path.
func tailFile(path string, n int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n"), nil
}
