// Package pipelinerun is the run controller: it turns CLI arguments into a
// validated workspace, takes the per-directory lock, wires the logger and
// the stage set, executes the pipeline, and records the outcome in the
// history ledger.
//
// Argument problems are reported as ErrInvalidInput before any stage is
// constructed; the CLI maps them to a distinct exit code. Stage failures are
// not errors here: the report carries them and the run itself still returns
// cleanly.
package pipelinerun
