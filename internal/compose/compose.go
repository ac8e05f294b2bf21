// Package compose shells out to `docker compose` for the production
// container group: up, down, ps, and logs against one named compose
// definition. Compose reports success on enqueue, not readiness, so
// callers poll AllRunning to distinguish "accepted" from "actually up".
package compose

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stackctl/internal/execx"
)

// Client runs docker compose commands for one project.
type Client struct {
	runner      execx.Runner
	file        string
	projectName string
	envFile     string
	dir         string
}

// NewClient creates a compose client for the given compose file and
// project. dir is the working directory for the docker invocations.
func NewClient(runner execx.Runner, file, projectName, envFile, dir string) *Client {
	return &Client{
		runner:      runner,
		file:        file,
		projectName: projectName,
		envFile:     envFile,
		dir:         dir,
	}
}

func (c *Client) composeArgs(args ...string) []string {
	base := []string{"compose", "-f", c.file, "-p", c.projectName}
	if c.envFile != "" {
		base = append(base, "--env-file", c.envFile)
	}
	return append(base, args...)
}

// Up starts the whole group detached. With rebuild set, images are rebuilt
// and containers recreated.
func (c *Client) Up(ctx context.Context, rebuild bool) (execx.Result, error) {
	args := []string{"up", "-d"}
	if rebuild {
		args = append(args, "--build", "--force-recreate")
	}
	return c.runner.Run(ctx, c.dir, "docker", c.composeArgs(args...)...)
}

// Down tears the whole group down. Missing containers are not an error as
// far as compose is concerned.
func (c *Client) Down(ctx context.Context) (execx.Result, error) {
	return c.runner.Run(ctx, c.dir, "docker", c.composeArgs("down", "--remove-orphans")...)
}

// ContainerState is one row of `docker compose ps --format json`.
type ContainerState struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
}

// PS returns the state of every container in the group.
func (c *Client) PS(ctx context.Context) ([]ContainerState, error) {
	result, err := c.runner.Run(ctx, c.dir, "docker", c.composeArgs("ps", "-a", "--format", "json")...)
	if err != nil {
		return nil, fmt.Errorf("compose ps: %w", err)
	}
	return parsePS(result.Stdout)
}

// parsePS handles both output shapes compose has shipped: a JSON array,
// and one JSON object per line.
func parsePS(out string) ([]ContainerState, error) {
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var states []ContainerState
		if err := json.Unmarshal([]byte(trimmed), &states); err != nil {
			return nil, fmt.Errorf("parsing compose ps output: %w", err)
		}
		return states, nil
	}

	var states []ContainerState
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var state ContainerState
		if err := json.Unmarshal([]byte(line), &state); err != nil {
			return nil, fmt.Errorf("parsing compose ps line %q: %w", line, err)
		}
		states = append(states, state)
	}
	return states, nil
}

// AllRunning reports whether every container in the group is in the
// "running" state, along with the names of those that are not.
func (c *Client) AllRunning(ctx context.Context) (bool, []string, error) {
	states, err := c.PS(ctx)
	if err != nil {
		return false, nil, err
	}
	if len(states) == 0 {
		return false, nil, nil // nothing launched yet
	}

	var notRunning []string
	for _, s := range states {
		if !strings.EqualFold(s.State, "running") {
			name := s.Service
			if name == "" {
				name = s.Name
			}
			notRunning = append(notRunning, fmt.Sprintf("%s (%s)", name, s.State))
		}
	}
	return len(notRunning) == 0, notRunning, nil
}

// Logs returns the last tail lines of the group's combined logs, used as
// diagnostic detail when verification fails.
func (c *Client) Logs(ctx context.Context, tail int) string {
	result, err := c.runner.Run(ctx, c.dir, "docker", c.composeArgs("logs", "--no-color", "--tail", fmt.Sprintf("%d", tail))...)
	if err != nil {
		return fmt.Sprintf("(could not capture compose logs: %v)", err)
	}
	return result.Output()
}
