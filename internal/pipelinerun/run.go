package pipelinerun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tract/internal/command"
	"tract/internal/config"
	"tract/internal/dwi"
	"tract/internal/history"
	"tract/internal/logging"
	"tract/internal/pipeline"
	"tract/internal/preflight"
	"tract/internal/sink"
)

// LockFileName is the per-directory lock under the LOGS subdirectory.
// Holding it serializes runs against one working directory; disjoint
// directories run freely in parallel.
const LockFileName = "tract.lock"

// ErrLocked reports that another run holds the working directory.
var ErrLocked = errors.New("another run is active in this working directory")

// Options carries the per-invocation inputs resolved by the CLI.
type Options struct {
	Workdir  string
	Subject  string
	Sampling bool

	// LogLevel overrides the configured level when non-empty.
	LogLevel string
	// Quiet drops the console from the logger outputs; the per-run log file
	// still receives everything.
	Quiet bool
}

// Result pairs the execution report with the run's identifiers.
type Result struct {
	Report  *pipeline.Report
	RunID   string
	LogPath string
}

// Run drives one full pipeline execution: validate, lock, log, execute,
// record. Errors returned before the pipeline starts carry ErrInvalidInput
// when the caller supplied unusable arguments; a finished-but-aborted run is
// not an error, the report says so.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	ws, err := buildWorkspace(opts)
	if err != nil {
		return nil, err
	}

	if missing := missingInputs(ws); len(missing) > 0 {
		return nil, pipeline.Wrap(pipeline.ErrInvalidInput, "", "required inputs", strings.Join(missing, ", "), nil)
	}

	logsDir := sink.Dir(ws.Root)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	lock := flock.New(filepath.Join(logsDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire directory lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, ws.Root)
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	logPath := filepath.Join(logsDir, fmt.Sprintf("tract-%s.log", runID))
	logger, err := newRunLogger(cfg, opts, logPath)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	ctx = logging.WithSubject(ctx, ws.Subject)
	ctx = logging.WithRunID(ctx, runID)
	runLogger := logging.WithContext(ctx, logger)

	runLogger.Info("run starting",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("workdir", ws.Root),
		logging.Bool("sampling", opts.Sampling),
		logging.String("log_file", logPath),
	)
	logDependencySnapshot(runLogger, cfg)
	logging.CleanupOldLogs(runLogger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: logsDir, Pattern: "tract-*.log", Exclude: []string{logPath}},
	)

	p, err := dwi.NewPipeline(dwi.Options{
		Config: cfg,
		Runner: command.NewRunner(logger),
		Logger: logger,
	}, pipeline.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("assemble pipeline: %w", err)
	}

	report := p.Run(ctx, ws)
	report.RunID = runID

	logSummary(runLogger, report)
	recordHistory(runLogger, cfg, ws.Root, report)

	return &Result{Report: report, RunID: runID, LogPath: logPath}, nil
}

// buildWorkspace validates the CLI arguments and resolves the working
// directory to an absolute path so checkpoints and sinks are unambiguous no
// matter where the process was launched from.
func buildWorkspace(opts Options) (*pipeline.Workspace, error) {
	subject := strings.TrimSpace(opts.Subject)
	if subject == "" {
		return nil, pipeline.Wrap(pipeline.ErrInvalidInput, "", "subject", "identifier is empty", nil)
	}
	if strings.ContainsAny(subject, `/\`) {
		return nil, pipeline.Wrap(pipeline.ErrInvalidInput, "", "subject", "identifier must not contain path separators", nil)
	}

	workdir := strings.TrimSpace(opts.Workdir)
	if workdir == "" {
		return nil, pipeline.Wrap(pipeline.ErrInvalidInput, "", "working directory", "path is empty", nil)
	}
	root, err := filepath.Abs(workdir)
	if err != nil {
		return nil, pipeline.Wrap(pipeline.ErrInvalidInput, "", "working directory", err.Error(), nil)
	}
	if access := preflight.CheckDirectoryAccess("working directory", root); !access.Passed {
		return nil, pipeline.Wrap(pipeline.ErrInvalidInput, "", "working directory", access.Detail, nil)
	}

	return &pipeline.Workspace{
		Root:    root,
		Subject: subject,
		Flags:   map[string]bool{dwi.FlagBedpostx: opts.Sampling},
		Sinks:   sink.NewDirFactory(root),
	}, nil
}

// missingInputs lists required caller-supplied artifacts that are absent.
// These are checked before any stage is constructed: a directory without the
// raw acquisition is an operator mistake, not a pipeline failure.
func missingInputs(ws *pipeline.Workspace) []string {
	var missing []string
	for _, tmpl := range dwi.RequiredInputs() {
		if _, err := os.Stat(ws.Path(tmpl)); err != nil {
			missing = append(missing, ws.Expand(tmpl))
		}
	}
	return missing
}

func newRunLogger(cfg *config.Config, opts Options, logPath string) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	outputs := []string{"stdout", logPath}
	errOutputs := []string{"stderr", logPath}
	if opts.Quiet {
		outputs = []string{logPath}
		errOutputs = []string{logPath}
	}
	return logging.New(logging.Options{
		Level:            level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputs,
		ErrorOutputPaths: errOutputs,
	})
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	args := []any{logging.String(logging.FieldEventType, "dependency_snapshot")}
	for _, status := range preflight.CheckSystemDeps(cfg) {
		args = append(args,
			logging.Bool(status.Name+"_available", status.Available),
			logging.String(status.Name+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", args...)
}

func logSummary(logger *slog.Logger, report *pipeline.Report) {
	counts := make(map[pipeline.Outcome]int, 4)
	for _, stage := range report.Stages {
		counts[stage.Outcome]++
	}
	args := []any{
		logging.String(logging.FieldEventType, "run_summary"),
		logging.String("state", string(report.State)),
		logging.Duration("duration", report.Duration()),
		logging.Int("skipped", counts[pipeline.OutcomeSkipped]),
		logging.Int("ran", counts[pipeline.OutcomeRan]),
		logging.Int("failed", counts[pipeline.OutcomeFailed]),
		logging.Int("aborted", counts[pipeline.OutcomeAborted]),
	}
	if report.Completed() {
		logger.Info("run completed", args...)
		return
	}
	if failure := report.FirstFailure(); failure != nil {
		args = append(args, logging.String("failed_stage", failure.Name))
		if failure.StderrLog != "" {
			args = append(args, logging.String("stderr_log", failure.StderrLog))
		}
	}
	logger.Error("run aborted", args...)
}

// recordHistory appends the report to the per-directory ledger. Recording is
// best effort: a broken ledger downgrades to a warning rather than failing a
// run whose imaging work already happened.
func recordHistory(logger *slog.Logger, cfg *config.Config, root string, report *pipeline.Report) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.Open(root)
	if err != nil {
		logging.WarnWithContext(logger, "history ledger unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete LOGS/history.db if the schema is stale"),
			logging.String(logging.FieldImpact, "run will not appear in tract history"),
		)
		return
	}
	defer store.Close()
	if err := store.Record(context.Background(), report); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will not appear in tract history"),
		)
	}
}
