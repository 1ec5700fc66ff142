package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tract/internal/logging"
)

// Pipeline is an immutable, ordered stage list. Declaration order is
// execution order.
type Pipeline struct {
	name        string
	stages      []Stage
	checkpoints map[string]Checkpoint
	logger      *slog.Logger
}

// Option customizes pipeline construction.
type Option func(*Pipeline)

// WithLogger attaches a logger used for stage lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New validates the stage wiring and builds a pipeline. Prerequisites must
// name stages declared earlier in the list.
func New(name string, stages []Stage, opts ...Option) (*Pipeline, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("pipeline name is required")
	}
	if len(stages) == 0 {
		return nil, errors.New("pipeline requires at least one stage")
	}

	checkpoints := make(map[string]Checkpoint, len(stages))
	for i, st := range stages {
		if strings.TrimSpace(st.Name) == "" {
			return nil, fmt.Errorf("stage %d: name is required", i)
		}
		if _, dup := checkpoints[st.Name]; dup {
			return nil, fmt.Errorf("stage %s: duplicate name", st.Name)
		}
		if st.Checkpoint == nil {
			return nil, fmt.Errorf("stage %s: checkpoint is required", st.Name)
		}
		if st.Action == nil {
			return nil, fmt.Errorf("stage %s: action is required", st.Name)
		}
		for _, prereq := range st.Prerequisites {
			if _, ok := checkpoints[prereq]; !ok {
				return nil, fmt.Errorf("stage %s: prerequisite %s is not an earlier stage", st.Name, prereq)
			}
		}
		checkpoints[st.Name] = st.Checkpoint
	}

	p := &Pipeline{
		name:        name,
		stages:      append([]Stage(nil), stages...),
		checkpoints: checkpoints,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the pipeline identifier.
func (p *Pipeline) Name() string { return p.name }

// Stages returns a copy of the stage list in execution order.
func (p *Pipeline) Stages() []Stage {
	return append([]Stage(nil), p.stages...)
}

// Run executes the stages strictly in order against the workspace. The first
// failing stage halts the run; stages after it are recorded as aborted.
// Cancellation of ctx fails the pipeline at the stage holding the turn.
func (p *Pipeline) Run(ctx context.Context, ws *Workspace) *Report {
	report := &Report{
		Pipeline:  p.name,
		Subject:   ws.Subject,
		Root:      ws.Root,
		State:     StateRunning,
		StartedAt: time.Now().UTC(),
		Stages:    make([]StageResult, 0, len(p.stages)),
	}

	failed := false
	for _, st := range p.stages {
		if failed {
			report.Stages = append(report.Stages, StageResult{
				Name:    st.Name,
				Outcome: OutcomeAborted,
				Detail:  "not attempted after earlier failure",
			})
			continue
		}
		result := p.evaluateStage(ctx, ws, st)
		report.Stages = append(report.Stages, result)
		if result.Outcome == OutcomeFailed {
			failed = true
		}
	}

	report.FinishedAt = time.Now().UTC()
	if failed {
		report.State = StateAborted
	} else {
		report.State = StateCompleted
	}
	return report
}

// evaluateStage applies the stage evaluation order: checkpoint, required
// inputs, prerequisites, action.
func (p *Pipeline) evaluateStage(ctx context.Context, ws *Workspace, st Stage) StageResult {
	stageCtx := logging.WithStage(ctx, st.Name)
	logger := logging.WithContext(stageCtx, p.logger)

	if err := ctx.Err(); err != nil {
		logger.Error("stage canceled before start",
			logging.String(logging.FieldEventType, "stage_canceled"),
			logging.Error(err),
		)
		return StageResult{Name: st.Name, Outcome: OutcomeFailed, Detail: "run canceled", Err: err}
	}

	if st.Checkpoint.IsSatisfied(ws) {
		detail := "checkpoint satisfied"
		if artifact := DescribeCheckpoint(st.Checkpoint, ws); artifact != "" {
			detail += ": " + artifact
		}
		logger.Info("stage skipped",
			logging.String(logging.FieldEventType, "stage_skipped"),
			logging.String("detail", detail),
		)
		return StageResult{Name: st.Name, Outcome: OutcomeSkipped, Detail: detail}
	}

	if missing := st.MissingInputs(ws); len(missing) > 0 {
		joined := strings.Join(missing, ", ")
		err := Wrap(ErrMissingPrecondition, st.Name, "required inputs", joined, nil)
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_kind", Kind(err)),
			logging.String("missing", joined),
		)
		return StageResult{Name: st.Name, Outcome: OutcomeFailed, Detail: "required input missing: " + joined, Err: err}
	}

	for _, prereq := range st.Prerequisites {
		cp, ok := p.checkpoints[prereq]
		if !ok || cp.IsSatisfied(ws) {
			continue
		}
		err := Wrap(ErrPrerequisiteUnmet, st.Name, "prerequisites", prereq, nil)
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_kind", Kind(err)),
			logging.String("prerequisite", prereq),
		)
		return StageResult{Name: st.Name, Outcome: OutcomeFailed, Detail: "prerequisite not satisfied: " + prereq, Err: err}
	}

	sink, err := ws.OpenSink(st.Name)
	if err != nil {
		wrapped := Wrap(ErrActionFailure, st.Name, "open log sink", "", err)
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_kind", Kind(wrapped)),
			logging.Error(err),
		)
		return StageResult{Name: st.Name, Outcome: OutcomeFailed, Detail: "log sink unavailable", Err: wrapped}
	}

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
	)

	started := time.Now()
	actionErr := st.Action(stageCtx, ws, sink)
	duration := time.Since(started)

	if closeErr := sink.Close(); closeErr != nil {
		logging.WarnWithContext(logger, "log sink close failed", "sink_close_failed",
			logging.Error(closeErr),
			logging.String(logging.FieldImpact, "trailing tool output may be missing from stage logs"),
		)
	}

	result := StageResult{
		Name:      st.Name,
		StdoutLog: sink.OutPath,
		StderrLog: sink.ErrPath,
		Duration:  duration,
	}

	if actionErr != nil {
		wrapped := actionErr
		if Kind(actionErr) == "failure" {
			wrapped = Wrap(ErrActionFailure, st.Name, "action", "", actionErr)
		}
		result.Outcome = OutcomeFailed
		result.Detail = strings.TrimSpace(actionErr.Error())
		result.Err = wrapped
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_kind", Kind(wrapped)),
			logging.Duration("duration", duration),
			logging.Error(actionErr),
		)
		return result
	}

	result.Outcome = OutcomeRan
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", duration),
	)
	return result
}

// PlanEntry is the dry-run view of one stage: what its checkpoint found and
// which required inputs are currently missing. Building a plan never mutates
// the workspace.
type PlanEntry struct {
	Stage               string
	CheckpointSatisfied bool
	Artifact            string
	MissingInputs       []string
}

// WouldRun reports whether the stage's action would be attempted.
func (e PlanEntry) WouldRun() bool { return !e.CheckpointSatisfied }

// Plan evaluates every stage's checkpoint and input availability without
// invoking any action.
func (p *Pipeline) Plan(ws *Workspace) []PlanEntry {
	entries := make([]PlanEntry, 0, len(p.stages))
	for _, st := range p.stages {
		entries = append(entries, PlanEntry{
			Stage:               st.Name,
			CheckpointSatisfied: st.Checkpoint.IsSatisfied(ws),
			Artifact:            DescribeCheckpoint(st.Checkpoint, ws),
			MissingInputs:       st.MissingInputs(ws),
		})
	}
	return entries
}
