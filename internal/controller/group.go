package controller

import (
	"context"
	"fmt"
	"time"

	"stackctl/internal/config"
	"stackctl/pkg/logging"
)

// startGroup launches the compose container group with up-and-rebuild
// semantics. Compose reports success on enqueue, so actual readiness is
// confirmed separately by WaitGroupRunning during the Verify stage.
func (c *Controller) startGroup(ctx context.Context, group config.ServiceDescriptor) ([]StartedService, error) {
	if c.compose == nil {
		return nil, fmt.Errorf("no compose client configured for container group %s", group.Name)
	}

	c.ReclaimPorts(ctx, group)

	logging.Info(subsystem, "bringing up container group %s", group.Name)
	result, err := c.compose.Up(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("compose up failed: %s", result.Output())
	}

	return []StartedService{{Name: group.Name, Mode: config.LaunchContainerGroup}}, nil
}

// WaitGroupRunning polls the compose status report until every member of
// the group is "running" or the timeout elapses. On failure the returned
// error names the members that never came up.
func (c *Controller) WaitGroupRunning(ctx context.Context, timeout, pollInterval time.Duration) error {
	if c.compose == nil {
		return fmt.Errorf("no compose client configured")
	}

	deadline := time.Now().Add(timeout)
	var lastNotRunning []string
	for {
		all, notRunning, err := c.compose.AllRunning(ctx)
		if err != nil {
			return err
		}
		if all {
			return nil
		}
		lastNotRunning = notRunning

		if time.Now().After(deadline) {
			if len(lastNotRunning) == 0 {
				return fmt.Errorf("container group reported no members after %s", timeout)
			}
			return fmt.Errorf("container group members not running after %s: %v", timeout, lastNotRunning)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// GroupDown tears the container group down, best-effort.
func (c *Controller) GroupDown(ctx context.Context) {
	if c.compose == nil {
		return
	}
	if result, err := c.compose.Down(ctx); err != nil {
		logging.Warn(subsystem, "compose down failed: %s", result.Output())
	}
}

// GroupLogs returns the tail of the container group's combined logs for
// failure diagnostics.
func (c *Controller) GroupLogs(ctx context.Context, tail int) string {
	if c.compose == nil {
		return "(no compose client configured)"
	}
	return c.compose.Logs(ctx, tail)
}
