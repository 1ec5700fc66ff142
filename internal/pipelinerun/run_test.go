package pipelinerun_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"tract/internal/pipeline"
	"tract/internal/pipelinerun"
	"tract/internal/testsupport"
)

func seedInputs(t *testing.T, root string) {
	t.Helper()
	testsupport.WriteFile(t, filepath.Join(root, "subj01_dwi.nii.gz"), 4096)
	testsupport.WriteFile(t, filepath.Join(root, "bvecs"), 64)
	testsupport.WriteFile(t, filepath.Join(root, "bvals"), 64)
}

func runOpts(root string, sampling bool) pipelinerun.Options {
	return pipelinerun.Options{
		Workdir:  root,
		Subject:  "subj01",
		Sampling: sampling,
		Quiet:    true,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunCompletesAndRecordsHistory(t *testing.T) {
	testsupport.StubWorkingToolchain(t)
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	seedInputs(t, root)

	result, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.RunID == "" {
		t.Fatal("expected a run id")
	}
	if !result.Report.Completed() {
		t.Fatalf("run did not complete: %+v", result.Report)
	}
	if len(result.Report.Stages) != 4 {
		t.Fatalf("expected 4 stage results, got %d", len(result.Report.Stages))
	}
	for _, stage := range result.Report.Stages {
		if stage.Outcome != pipeline.OutcomeRan {
			t.Fatalf("stage %s outcome = %s, want ran", stage.Name, stage.Outcome)
		}
	}

	logText := readFile(t, result.LogPath)
	if !strings.Contains(logText, "run completed") {
		t.Fatalf("run log missing summary:\n%s", logText)
	}
	if !strings.Contains(logText, "dependency snapshot") {
		t.Fatal("run log missing dependency snapshot")
	}

	eddyLog := readFile(t, filepath.Join(root, "LOGS", "eddy.log"))
	if !strings.Contains(eddyLog, "eddy_correct subj01_dwi.nii.gz subj01_dwi_ecc 0") {
		t.Fatalf("eddy sink missing tool output:\n%s", eddyLog)
	}

	store := testsupport.MustOpenHistory(t, root)
	runs, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != result.RunID {
		t.Fatalf("unexpected ledger contents: %#v", runs)
	}
	if runs[0].State != "completed" {
		t.Fatalf("ledger state = %q, want completed", runs[0].State)
	}
}

func TestRunEmptyDirectoryIsInvalidInput(t *testing.T) {
	testsupport.StubWorkingToolchain(t)
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()

	result, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false))
	if err == nil {
		t.Fatal("expected error for empty working directory")
	}
	if !errors.Is(err, pipeline.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result, got %#v", result)
	}
	if _, statErr := os.Stat(filepath.Join(root, "LOGS")); !os.IsNotExist(statErr) {
		t.Fatal("invalid input must not create the LOGS directory")
	}
}

func TestRunInvalidSubject(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	seedInputs(t, root)

	for _, subject := range []string{"", "  ", "a/b"} {
		opts := runOpts(root, false)
		opts.Subject = subject
		_, err := pipelinerun.Run(context.Background(), cfg, opts)
		if !errors.Is(err, pipeline.ErrInvalidInput) {
			t.Fatalf("subject %q: expected ErrInvalidInput, got %v", subject, err)
		}
	}
}

func TestRunMissingWorkdirIsInvalidInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	opts := runOpts(filepath.Join(t.TempDir(), "nope"), false)
	_, err := pipelinerun.Run(context.Background(), cfg, opts)
	if !errors.Is(err, pipeline.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunBrokenToolAbortsPipeline(t *testing.T) {
	binDir := t.TempDir()
	// eddy_correct exits cleanly but never writes its output.
	testsupport.StubTool(t, binDir, "eddy_correct", "#!/bin/sh\necho working\n")
	for _, name := range []string{"bet", "dtifit", "bedpostx"} {
		testsupport.StubTool(t, binDir, name, "#!/bin/sh\nexit 0\n")
	}
	testsupport.PrependPath(t, binDir)

	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	seedInputs(t, root)

	result, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	report := result.Report
	if report.Completed() {
		t.Fatal("run should have aborted")
	}

	outcomes := []pipeline.Outcome{
		pipeline.OutcomeRan,     // eddy exits 0
		pipeline.OutcomeFailed,  // bet input never appeared
		pipeline.OutcomeAborted, // dtifit
		pipeline.OutcomeAborted, // bedpost
	}
	for i, want := range outcomes {
		if report.Stages[i].Outcome != want {
			t.Fatalf("stage %s outcome = %s, want %s", report.Stages[i].Name, report.Stages[i].Outcome, want)
		}
	}
	failure := report.FirstFailure()
	if failure.ErrKind() != "missing_precondition" {
		t.Fatalf("error kind = %q, want missing_precondition", failure.ErrKind())
	}
	if !strings.Contains(failure.Detail, "subj01_dwi_ecc.nii.gz") {
		t.Fatalf("failure detail should name the missing artifact: %q", failure.Detail)
	}

	store := testsupport.MustOpenHistory(t, root)
	runs, listErr := store.List(context.Background(), 1)
	if listErr != nil || len(runs) != 1 || runs[0].State != "aborted" {
		t.Fatalf("aborted run not recorded: %v %#v", listErr, runs)
	}
}

func TestRunToolFailureKeepsStderrSink(t *testing.T) {
	binDir := t.TempDir()
	testsupport.StubTool(t, binDir, "eddy_correct", "#!/bin/sh\ntouch \"$2.nii.gz\"\n")
	testsupport.StubTool(t, binDir, "bet", "#!/bin/sh\necho 'mask estimation failed' >&2\nexit 2\n")
	for _, name := range []string{"dtifit", "bedpostx"} {
		testsupport.StubTool(t, binDir, name, "#!/bin/sh\nexit 0\n")
	}
	testsupport.PrependPath(t, binDir)

	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	seedInputs(t, root)

	result, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	failure := result.Report.FirstFailure()
	if failure == nil || failure.Name != "bet" {
		t.Fatalf("unexpected failure: %+v", failure)
	}
	if failure.ErrKind() != "action_failure" {
		t.Fatalf("error kind = %q, want action_failure", failure.ErrKind())
	}
	if failure.StderrLog == "" {
		t.Fatal("failure should carry the stderr sink path")
	}
	if text := readFile(t, failure.StderrLog); !strings.Contains(text, "mask estimation failed") {
		t.Fatalf("stderr sink missing tool output:\n%s", text)
	}
}

func TestRunRefusesLockedDirectory(t *testing.T) {
	testsupport.StubWorkingToolchain(t)
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	seedInputs(t, root)

	logsDir := filepath.Join(root, "LOGS")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		t.Fatalf("mkdir LOGS: %v", err)
	}
	lock := flock.New(filepath.Join(logsDir, pipelinerun.LockFileName))
	held, err := lock.TryLock()
	if err != nil || !held {
		t.Fatalf("could not take test lock: %v", err)
	}
	defer func() { _ = lock.Unlock() }()

	_, err = pipelinerun.Run(context.Background(), cfg, runOpts(root, false))
	if !errors.Is(err, pipelinerun.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestSecondRunSkipsEverything(t *testing.T) {
	testsupport.StubWorkingToolchain(t)
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	seedInputs(t, root)

	first, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false))
	if err != nil || !first.Report.Completed() {
		t.Fatalf("first run: %v %+v", err, first)
	}

	second, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false))
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !second.Report.Completed() {
		t.Fatalf("second run did not complete: %+v", second.Report)
	}
	for _, stage := range second.Report.Stages {
		if stage.Outcome != pipeline.OutcomeSkipped {
			t.Fatalf("stage %s outcome = %s, want skipped", stage.Name, stage.Outcome)
		}
	}
	if second.RunID == first.RunID {
		t.Fatal("runs must have distinct ids")
	}

	store := testsupport.MustOpenHistory(t, root)
	runs, err := store.List(context.Background(), 0)
	if err != nil || len(runs) != 2 {
		t.Fatalf("expected 2 ledger rows: %v %#v", err, runs)
	}
}

func TestSamplingFlagEndToEnd(t *testing.T) {
	testsupport.StubWorkingToolchain(t)
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	seedInputs(t, root)
	callsFile := filepath.Join(root, "bedpostx.calls")

	if _, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false)); err != nil {
		t.Fatalf("flag-off run failed: %v", err)
	}
	if _, err := os.Stat(callsFile); !os.IsNotExist(err) {
		t.Fatal("bedpostx ran with the flag off")
	}

	result, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, true))
	if err != nil || !result.Report.Completed() {
		t.Fatalf("flag-on run: %v %+v", err, result)
	}
	if calls := readFile(t, callsFile); strings.Count(calls, "\n") != 1 {
		t.Fatalf("expected exactly one sampling invocation, got:\n%s", calls)
	}

	third, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, true))
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}
	for _, stage := range third.Report.Stages {
		if stage.Outcome != pipeline.OutcomeSkipped {
			t.Fatalf("stage %s outcome = %s, want skipped", stage.Name, stage.Outcome)
		}
	}
	if calls := readFile(t, callsFile); strings.Count(calls, "\n") != 1 {
		t.Fatalf("sampling reran after its checkpoint was satisfied:\n%s", calls)
	}
}

func TestRunHistoryDisabled(t *testing.T) {
	testsupport.StubWorkingToolchain(t)
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	root := t.TempDir()
	seedInputs(t, root)

	if _, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "LOGS", "history.db")); !os.IsNotExist(err) {
		t.Fatal("ledger created despite history disabled")
	}
}

func TestPlanReportsWithoutTouchingDirectory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "subj01_dwi.nii.gz"), 64)

	plan, err := pipelinerun.Plan(cfg, runOpts(root, false))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Ready() {
		t.Fatal("plan should report missing inputs")
	}
	if len(plan.MissingInputs) != 2 {
		t.Fatalf("missing inputs = %v", plan.MissingInputs)
	}
	if len(plan.Entries) != 4 {
		t.Fatalf("expected 4 plan entries, got %d", len(plan.Entries))
	}
	for _, entry := range plan.Entries {
		if entry.CheckpointSatisfied {
			t.Fatalf("stage %s checkpoint unexpectedly satisfied", entry.Stage)
		}
	}
	if !strings.Contains(plan.Summary(), "missing required inputs") {
		t.Fatalf("summary = %q", plan.Summary())
	}
	if _, err := os.Stat(filepath.Join(root, "LOGS")); !os.IsNotExist(err) {
		t.Fatal("plan must not create the LOGS directory")
	}
}

func TestPlanAfterCompletedRun(t *testing.T) {
	testsupport.StubWorkingToolchain(t)
	cfg := testsupport.NewConfig(t)
	root := t.TempDir()
	seedInputs(t, root)

	if _, err := pipelinerun.Run(context.Background(), cfg, runOpts(root, false)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	plan, err := pipelinerun.Plan(cfg, runOpts(root, false))
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	for _, entry := range plan.Entries {
		if entry.WouldRun() {
			t.Fatalf("stage %s should be satisfied after a full run", entry.Stage)
		}
	}
	if !strings.Contains(plan.Summary(), "nothing to do") {
		t.Fatalf("summary = %q", plan.Summary())
	}
}
