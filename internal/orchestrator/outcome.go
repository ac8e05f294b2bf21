package orchestrator

// Stage names one step of the deployment sequence. A failed run's outcome
// carries the stage that aborted it.
type Stage string

const (
	StageBackup     Stage = "Backup"
	StageStop       Stage = "Stop"
	StageRefresh    Stage = "Refresh"
	StageProvision  Stage = "Provision"
	StageModelSetup Stage = "ModelSetup"
	StageStart      Stage = "Start"
	StageVerify     Stage = "Verify"
)

// Options carries the caller's per-run switches.
type Options struct {
	WithModelSetup bool // run the optional model provisioning stage
	SkipRefresh    bool // skip code/dependency refresh (local iteration)
}

// Endpoint is one service's externally reachable address, reported on
// success.
type Endpoint struct {
	Service string
	URL     string
}

// Outcome is the terminal value of one deployment run, produced exactly
// once.
type Outcome struct {
	RunID       string
	Success     bool
	FailedStage Stage      // set when Success is false
	Detail      string     // diagnostic output for the failing stage
	Endpoints   []Endpoint // set when Success is true
}
