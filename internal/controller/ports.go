package controller

import (
	"context"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"stackctl/internal/config"
	"stackctl/pkg/logging"
)

// ReclaimPorts forcibly frees the descriptor's declared listen ports when a
// foreign process still holds one, typically a survivor of a prior failed
// run. The operation is bounded to exactly the declared ports and entirely
// best-effort: a development machine must not be left with an orphaned
// listener, but failing to reclaim never aborts a deployment.
func (c *Controller) ReclaimPorts(ctx context.Context, d config.ServiceDescriptor) {
	for _, port := range d.ListenPorts {
		for _, pid := range c.listeningPIDs(ctx, port) {
			if pid == os.Getpid() {
				continue
			}
			logging.Warn(subsystem, "port %d still held by pid %d, reclaiming for %s", port, pid, d.Name)
			killGroup(pid, syscall.SIGTERM)
		}
	}

	// Give TERM'd listeners a moment to release their sockets, then force
	// out anything that ignored it.
	var stragglers []int
	for _, port := range d.ListenPorts {
		if pids := c.listeningPIDs(ctx, port); len(pids) > 0 {
			stragglers = append(stragglers, pids...)
		}
	}
	if len(stragglers) == 0 {
		return
	}
	time.Sleep(500 * time.Millisecond)
	for _, pid := range stragglers {
		if pid != os.Getpid() && processAlive(pid) {
			killGroup(pid, syscall.SIGKILL)
		}
	}
}

// listeningPIDs returns the pids bound to the given TCP port, via lsof.
// An empty result is returned when nothing listens there or lsof is
// unavailable.
func (c *Controller) listeningPIDs(ctx context.Context, port int) []int {
	// lsof exits non-zero when no process matches; that is not an error here.
	result, err := c.runner.Run(ctx, "", "lsof", "-t", "-i", ":"+strconv.Itoa(port), "-sTCP:LISTEN")
	if err != nil && result.Stdout == "" {
		return nil
	}

	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(result.Stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}
