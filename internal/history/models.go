package history

import "time"

// Run is one recorded pipeline execution.
type Run struct {
	ID         int64
	RunID      string
	Pipeline   string
	Subject    string
	Root       string
	State      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Stages is populated by Latest and Stages, not by List.
	Stages []StageRecord
}

// Duration reports the wall-clock span of the run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageRecord is one stage outcome within a recorded run.
type StageRecord struct {
	Position  int
	Name      string
	Outcome   string
	Detail    string
	ErrorKind string
	Duration  time.Duration
	StdoutLog string
	StderrLog string
}
