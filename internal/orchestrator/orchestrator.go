// Package orchestrator sequences one deployment run: back up persistent
// state, tear down whatever is running, refresh code and dependencies,
// provision the environment, launch the stack, and verify health. Every
// run ends in exactly one Outcome, and a failed run cleans up the
// processes it launched before returning.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stackctl/internal/backup"
	"stackctl/internal/config"
	"stackctl/internal/controller"
	"stackctl/pkg/logging"
)

const subsystem = "Deploy"

const logTailLines = 40

// BackupManager snapshots persistent state before any destructive step.
type BackupManager interface {
	Snapshot() (backup.Archive, error)
}

// ServiceController starts, stops, and inspects the managed services.
type ServiceController interface {
	StartAll(ctx context.Context, env config.Environment) ([]controller.StartedService, error)
	StopAll(ctx context.Context)
	Stop(ctx context.Context, name string) error
	Exited(name string) bool
	WaitGroupRunning(ctx context.Context, timeout, pollInterval time.Duration) error
	GroupDown(ctx context.Context)
	GroupLogs(ctx context.Context, tail int) string
	DiagnosticTail(name string, lines int) string
}

// HealthWaiter blocks until a readiness endpoint answers or a deadline
// elapses.
type HealthWaiter interface {
	WaitReady(ctx context.Context, url string, timeout, pollInterval time.Duration) error
}

// Refresher updates code and dependencies. A refresh failure is fatal:
// deploying stale or inconsistent code is unacceptable.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Provisioner ensures directories, the application config file, and the
// data store exist. Idempotent.
type Provisioner interface {
	Provision(ctx context.Context) error
}

// ModelProvisioner performs the optional model setup. Failures are
// advisory; the stack runs without pre-provisioned models.
type ModelProvisioner interface {
	EnsureModels(ctx context.Context) error
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Backup      BackupManager
	Controller  ServiceController
	Health      HealthWaiter
	Refresher   Refresher
	Provisioner Provisioner
	Models      ModelProvisioner
}

// Orchestrator is the top-level deployment state machine.
type Orchestrator struct {
	cfg  config.StackConfig
	deps Deps
}

// New creates an Orchestrator. Callers must hold the run lock for the
// duration of Run; concurrent runs against the same stack are not
// supported.
func New(cfg config.StackConfig, deps Deps) *Orchestrator {
	return &Orchestrator{cfg: cfg, deps: deps}
}

// Run executes one deployment to a terminal Outcome. There is no retry
// between stages and no cancellation mid-run beyond ctx; the operator's
// retry policy is to re-invoke the whole run.
func (o *Orchestrator) Run(ctx context.Context, env config.Environment, opts Options) Outcome {
	runID := uuid.NewString()[:8]
	logging.Info(subsystem, "run %s: deploying to %s", runID, env)

	// Backup: best-effort protection, never a precondition.
	if archive, err := o.deps.Backup.Snapshot(); err != nil {
		logging.Warn(subsystem, "run %s: backup failed (continuing): %v", runID, err)
	} else {
		logging.Info(subsystem, "run %s: backed up %d artifact(s) to %s", runID, len(archive.Artifacts), archive.Dir)
	}

	// Stop: "stopped or already stopped" — errors are handled inside.
	o.deps.Controller.StopAll(ctx)

	// Refresh: stale code must never be deployed.
	if opts.SkipRefresh {
		logging.Info(subsystem, "run %s: refresh skipped by request", runID)
	} else if err := o.deps.Refresher.Refresh(ctx); err != nil {
		return o.fail(runID, StageRefresh, err.Error())
	}

	// Provision: fatal only on filesystem or data store error.
	if err := o.deps.Provisioner.Provision(ctx); err != nil {
		return o.fail(runID, StageProvision, err.Error())
	}

	// Model setup: optional and advisory.
	if opts.WithModelSetup {
		if err := o.deps.Models.EnsureModels(ctx); err != nil {
			logging.Warn(subsystem, "run %s: model setup failed (continuing): %v", runID, err)
		}
	}

	// Start.
	started, err := o.deps.Controller.StartAll(ctx, env)
	if err != nil {
		o.cleanup(ctx, runID, started)
		return o.fail(runID, StageStart, err.Error())
	}

	// Verify.
	if detail := o.verify(ctx, env); detail != "" {
		o.cleanup(ctx, runID, started)
		return o.fail(runID, StageVerify, detail)
	}

	outcome := Outcome{
		RunID:     runID,
		Success:   true,
		Endpoints: o.endpoints(env),
	}
	logging.Info(subsystem, "run %s: deployment succeeded", runID)
	return outcome
}

// verify confirms the launched stack is actually serving. It returns the
// diagnostic detail on failure, empty on success.
func (o *Orchestrator) verify(ctx context.Context, env config.Environment) string {
	if env == config.EnvProduction {
		if _, ok := o.cfg.ContainerGroupService(); ok {
			if err := o.deps.Controller.WaitGroupRunning(ctx, o.cfg.Timing.ComposeTimeout, o.cfg.Timing.PollInterval); err != nil {
				return fmt.Sprintf("%v\n--- container group logs ---\n%s", err, o.deps.Controller.GroupLogs(ctx, logTailLines))
			}
			return ""
		}
	}

	for _, d := range o.cfg.LocalServices() {
		if d.ReadinessURL == "" {
			// Considered ready as soon as the process reports running.
			continue
		}
		if o.deps.Controller.Exited(d.Name) {
			return fmt.Sprintf("%s exited before becoming ready\n--- %s log tail ---\n%s",
				d.Name, d.Name, o.deps.Controller.DiagnosticTail(d.Name, logTailLines))
		}
		if err := o.deps.Health.WaitReady(ctx, d.ReadinessURL, o.cfg.Timing.ReadyTimeout, o.cfg.Timing.PollInterval); err != nil {
			return fmt.Sprintf("%v\n--- %s log tail ---\n%s",
				err, d.Name, o.deps.Controller.DiagnosticTail(d.Name, logTailLines))
		}
	}
	return ""
}

// cleanup tears down exactly the launches of this run, once, best-effort.
// Processes the orchestrator did not start are never touched.
func (o *Orchestrator) cleanup(ctx context.Context, runID string, started []controller.StartedService) {
	for _, s := range started {
		switch s.Mode {
		case config.LaunchContainerGroup:
			o.deps.Controller.GroupDown(ctx)
		default:
			if err := o.deps.Controller.Stop(ctx, s.Name); err != nil {
				logging.Warn(subsystem, "run %s: cleanup of %s failed: %v", runID, s.Name, err)
			}
		}
	}
}

func (o *Orchestrator) endpoints(env config.Environment) []Endpoint {
	var out []Endpoint
	for _, d := range o.cfg.LocalServices() {
		if url := d.Endpoint(); url != "" {
			out = append(out, Endpoint{Service: d.Name, URL: url})
		}
	}
	if len(out) == 0 && env == config.EnvProduction {
		if group, ok := o.cfg.ContainerGroupService(); ok {
			if url := group.Endpoint(); url != "" {
				out = append(out, Endpoint{Service: group.Name, URL: url})
			}
		}
	}
	return out
}

func (o *Orchestrator) fail(runID string, stage Stage, detail string) Outcome {
	logging.Error(subsystem, nil, "run %s: stage %s failed", runID, stage)
	return Outcome{RunID: runID, Success: false, FailedStage: stage, Detail: detail}
}
