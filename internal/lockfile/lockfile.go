// Package lockfile provides the exclusive run lock that deploy and stop
// invocations hold for their duration. Two orchestrator runs against the
// same stack must never overlap: a concurrent run could read a registry
// entry mid-update and kill or orphan the wrong process.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"stackctl/pkg/logging"
)

const subsystem = "Lock"

// Lock represents a held lock file.
type Lock struct {
	path string
}

// Acquire takes the lock at path, writing the holder's pid into the file.
// A lock held by a process that no longer exists is considered stale and
// replaced. Returns an error when another live process holds the lock.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file %s: %w", path, err)
		}

		holder, readErr := readHolder(path)
		if readErr == nil && processAlive(holder) {
			return nil, fmt.Errorf("another stackctl invocation (pid %d) holds %s", holder, path)
		}

		// Stale or unreadable lock: the holder is gone, reclaim it.
		logging.Warn(subsystem, "removing stale lock %s (holder pid %d gone)", path, holder)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing stale lock %s: %w", path, err)
		}
	}
	return nil, fmt.Errorf("could not acquire lock %s", path)
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logging.Warn(subsystem, "releasing lock %s: %v", l.path, err)
	}
}

func readHolder(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("lock file %s holds no pid: %w", path, err)
	}
	return pid, nil
}

// processAlive reports whether pid refers to a live process. Signal 0
// performs the existence check without delivering anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
