package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tract/internal/pipeline"
	"tract/internal/sink"
)

// FileName is the ledger file inside the working directory's log subdirectory.
const FileName = "history.db"

// Store manages run history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history ledger for the working
// directory rooted at root.
func Open(root string) (*Store, error) {
	logsDir := sink.Dir(root)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}

	dbPath := filepath.Join(logsDir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the ledger file location.
func (s *Store) Path() string {
	return s.path
}

// Record persists a finished report together with its per-stage outcomes.
func (s *Store) Record(ctx context.Context, report *pipeline.Report) error {
	if report == nil {
		return errors.New("report is nil")
	}
	if strings.TrimSpace(report.RunID) == "" {
		return errors.New("report has no run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO runs (run_id, pipeline, subject, root, state, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.Pipeline,
		report.Subject,
		report.Root,
		string(report.State),
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, stage := range report.Stages {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO run_stages (run_id, position, name, outcome, detail, error_kind, duration_ms, stdout_log, stderr_log)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID,
			i,
			stage.Name,
			string(stage.Outcome),
			nullableString(stage.Detail),
			nullableString(stage.ErrKind()),
			stage.Duration.Milliseconds(),
			nullableString(stage.StdoutLog),
			nullableString(stage.StderrLog),
		)
		if err != nil {
			return fmt.Errorf("insert stage %s: %w", stage.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// List returns recorded runs, newest first. A limit of zero or less returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Stages returns the stage outcomes for a run in execution order.
func (s *Store) Stages(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT position, name, outcome, detail, error_kind, duration_ms, stdout_log, stderr_log
         FROM run_stages WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run stages: %w", err)
	}
	defer rows.Close()

	var stages []StageRecord
	for rows.Next() {
		var (
			record     StageRecord
			detail     sql.NullString
			errorKind  sql.NullString
			durationMS int64
			stdoutLog  sql.NullString
			stderrLog  sql.NullString
		)
		if err := rows.Scan(
			&record.Position,
			&record.Name,
			&record.Outcome,
			&detail,
			&errorKind,
			&durationMS,
			&stdoutLog,
			&stderrLog,
		); err != nil {
			return nil, err
		}
		record.Detail = detail.String
		record.ErrorKind = errorKind.String
		record.Duration = time.Duration(durationMS) * time.Millisecond
		record.StdoutLog = stdoutLog.String
		record.StderrLog = stderrLog.String
		stages = append(stages, record)
	}
	return stages, rows.Err()
}

// Latest returns the most recent run with its stages, or nil when the ledger
// is empty.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	stages, err := s.Stages(ctx, run.RunID)
	if err != nil {
		return nil, err
	}
	run.Stages = stages
	return &run, nil
}

const runColumns = "id, run_id, pipeline, subject, root, state, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw string
	)
	if err := scanner.Scan(
		&run.ID,
		&run.RunID,
		&run.Pipeline,
		&run.Subject,
		&run.Root,
		&run.State,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		run.FinishedAt = finished
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
