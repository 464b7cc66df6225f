package engine

import (
	"time"

	"github.com/poiesic/loom/core"
)

// RunState is one step of the run state machine. A run starts Pending,
// moves to Running when admitted, and finishes in exactly one terminal
// state.
type RunState string

const (
	RunPending   RunState = "pending"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunTimedOut  RunState = "timed_out"
	RunCancelled RunState = "cancelled"
)

// Terminal reports whether the state is final.
func (s RunState) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunTimedOut, RunCancelled:
		return true
	}
	return false
}

// RunOutcome is the final report of one run.
type RunOutcome struct {
	State RunState

	// FailedNode and Message are set when State is RunFailed.
	FailedNode core.NodeID
	Message    string

	Started  time.Time
	Finished time.Time

	// Attempts counts the batch-operation attempts each node made,
	// retries included.
	Attempts map[core.NodeID]int
}

// Duration returns the wall-clock time the run took.
func (o *RunOutcome) Duration() time.Duration {
	return o.Finished.Sub(o.Started)
}
