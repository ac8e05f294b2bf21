// Package health polls a service's readiness endpoint until it answers
// with a successful status or a deadline elapses.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stackctl/pkg/logging"
)

const subsystem = "Health"

// Checker issues bounded HTTP readiness probes. Each probe attempt carries
// its own short timeout, distinct from the overall WaitReady deadline, so a
// single hung connection cannot eat the whole budget.
type Checker struct {
	client *http.Client
}

// NewChecker creates a Checker whose individual probes time out after
// probeTimeout.
func NewChecker(probeTimeout time.Duration) *Checker {
	return &Checker{
		client: &http.Client{Timeout: probeTimeout},
	}
}

// Probe issues a single readiness request. Any 2xx response is success.
func (c *Checker) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building probe request for %s: %w", url, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return nil
}

// WaitReady polls url every pollInterval until a probe succeeds or timeout
// elapses. It returns no later than timeout plus one poll interval after
// invocation. The caller decides whether a timeout is fatal.
func (c *Checker) WaitReady(ctx context.Context, url string, timeout, pollInterval time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error

	for attempt := 1; ; attempt++ {
		lastErr = c.Probe(ctx, url)
		if lastErr == nil {
			logging.Debug(subsystem, "%s ready after %d probe(s)", url, attempt)
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%s not ready within %s: %w", url, timeout, lastErr)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("readiness wait for %s cancelled: %w", url, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}
