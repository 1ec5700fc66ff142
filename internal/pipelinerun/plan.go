package pipelinerun

import (
	"errors"
	"strconv"
	"strings"

	"tract/internal/command"
	"tract/internal/config"
	"tract/internal/dwi"
	"tract/internal/logging"
	"tract/internal/pipeline"
)

// PlanResult is the dry-run view of a working directory: per-stage checkpoint
// state plus the caller-supplied inputs that are currently absent.
type PlanResult struct {
	Root          string
	Subject       string
	MissingInputs []string
	Entries       []pipeline.PlanEntry
}

// Plan evaluates checkpoints and input availability without locking the
// directory or invoking any tool. Missing required inputs are reported in the
// result rather than as an error so the operator sees the whole picture.
func Plan(cfg *config.Config, opts Options) (*PlanResult, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	ws, err := buildWorkspace(opts)
	if err != nil {
		return nil, err
	}

	p, err := dwi.NewPipeline(dwi.Options{
		Config: cfg,
		Runner: command.NewRunner(logging.NewNop()),
	})
	if err != nil {
		return nil, err
	}

	return &PlanResult{
		Root:          ws.Root,
		Subject:       ws.Subject,
		MissingInputs: missingInputs(ws),
		Entries:       p.Plan(ws),
	}, nil
}

// Ready reports whether every caller-supplied input is present.
func (r *PlanResult) Ready() bool {
	return len(r.MissingInputs) == 0
}

// Summary renders the one-line verdict used under the plan table.
func (r *PlanResult) Summary() string {
	if !r.Ready() {
		return "missing required inputs: " + strings.Join(r.MissingInputs, ", ")
	}
	pending := 0
	for _, entry := range r.Entries {
		if entry.WouldRun() {
			pending++
		}
	}
	if pending == 0 {
		return "nothing to do: every checkpoint is satisfied"
	}
	return "stages pending: " + strconv.Itoa(pending)
}
