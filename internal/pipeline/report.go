package pipeline

import "time"

// Outcome classifies how a stage ended.
type Outcome string

const (
	// OutcomeSkipped means the checkpoint was already satisfied.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeRan means the action executed and completed normally.
	OutcomeRan Outcome = "ran"
	// OutcomeFailed means evaluation or the action failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeAborted means an earlier failure prevented the stage from
	// being attempted.
	OutcomeAborted Outcome = "aborted"
)

// State describes the pipeline lifecycle.
type State string

const (
	StateNotStarted State = "not_started"
	StateRunning    State = "running"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
)

// StageResult records one stage's evaluation.
type StageResult struct {
	Name      string
	Outcome   Outcome
	Detail    string
	Err       error
	StdoutLog string
	StderrLog string
	Duration  time.Duration
}

// ErrKind returns the classification label of the stage error, if any.
func (r StageResult) ErrKind() string {
	return Kind(r.Err)
}

// Report is the full account of one pipeline run. Every stage appears exactly
// once, including stages that never got a turn.
type Report struct {
	RunID      string
	Pipeline   string
	Subject    string
	Root       string
	State      State
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageResult
}

// Completed reports whether every stage ended skipped or ran.
func (r *Report) Completed() bool {
	return r.State == StateCompleted
}

// FirstFailure returns the stage that halted the run, or nil.
func (r *Report) FirstFailure() *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Outcome == OutcomeFailed {
			return &r.Stages[i]
		}
	}
	return nil
}

// Duration is the wall-clock span of the run.
func (r *Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
