// Package pipeline implements the checkpointed stage execution model at the
// core of tract.
//
// A Pipeline is an ordered list of Stages bound to a Workspace (a working
// directory plus a subject identifier). Every stage carries a Checkpoint
// describing the on-disk artifact it produces. Before a stage's action runs,
// the checkpoint is consulted: a satisfied checkpoint means the work already
// happened and the stage is skipped. Checkpoints are re-evaluated fresh on
// every run, so externally deleted artifacts cause exactly the missing work
// to be redone.
//
// Stage evaluation follows a fixed order: checkpoint, required inputs,
// prerequisites, action. The first failing stage aborts the remainder of the
// run; there is no retry and no rollback. Every stage lands in the Report
// with one of four outcomes: skipped, ran, failed, or aborted.
//
// The package has no global state. Concurrent pipelines over disjoint
// working directories are safe; a single pipeline instance is strictly
// sequential.
package pipeline
