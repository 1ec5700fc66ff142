package preflight

import (
	"tract/internal/config"
	"tract/internal/deps"
)

// Result reports the outcome of a single preflight check. Warning marks a
// passed check that still deserves operator attention, such as a missing
// optional tool.
type Result struct {
	Name    string
	Passed  bool
	Warning bool
	Detail  string
}

// RunAll executes every check that applies before a pipeline run: access to
// the working directory, then availability of the configured stage tools.
// The directory check is skipped when workdir is empty so callers can report
// on tool availability alone.
func RunAll(cfg *config.Config, workdir string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if workdir != "" {
		results = append(results, CheckDirectoryAccess("Working directory", workdir))
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, toolResult(status))
	}
	return results
}

// toolResult flattens a dependency status into a Result. A missing optional
// tool still passes: runs launched without the sampling flag never invoke it.
func toolResult(status deps.Status) Result {
	if status.Available {
		return Result{Name: status.Name, Passed: true, Detail: status.Detail}
	}
	if status.Optional {
		return Result{Name: status.Name, Passed: true, Warning: true, Detail: status.Detail + " (optional)"}
	}
	return Result{Name: status.Name, Detail: status.Detail}
}
