// Package command abstracts external process execution for the pipeline
// stages. The Runner interface exists so stage logic can be tested without
// spawning real tools.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"tract/internal/logging"
)

// Command describes one external tool invocation. Stdout and Stderr are
// typically the stage's sink streams; nil writers discard.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the argv for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// NewRunner returns the production runner backed by os/exec.
func NewRunner(logger *slog.Logger) Runner {
	return &execRunner{logger: logging.NewComponentLogger(logger, "command")}
}

type execRunner struct {
	logger *slog.Logger
}

func (r *execRunner) Run(ctx context.Context, cmd Command) error {
	if strings.TrimSpace(cmd.Binary) == "" {
		return errors.New("command binary required")
	}

	execCmd := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec
	execCmd.Dir = cmd.Dir
	if cmd.Stdout != nil {
		execCmd.Stdout = cmd.Stdout
	} else {
		execCmd.Stdout = io.Discard
	}
	if cmd.Stderr != nil {
		execCmd.Stderr = cmd.Stderr
	} else {
		execCmd.Stderr = io.Discard
	}

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("command started",
		logging.String(logging.FieldEventType, "command_start"),
		logging.String("argv", cmd.String()),
		logging.String("dir", cmd.Dir),
	)

	started := time.Now()
	err := execCmd.Run()
	duration := time.Since(started)

	if err != nil {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "command_failure"),
			logging.String("argv", cmd.String()),
			logging.Duration("duration", duration),
			logging.Error(err),
		}
		if code, ok := ExitCode(err); ok {
			attrs = append(attrs, logging.Int("exit_code", code))
		}
		logger.Debug("command failed", logging.Args(attrs...)...)
		return fmt.Errorf("run %s: %w", cmd.Binary, err)
	}

	logger.Debug("command completed",
		logging.String(logging.FieldEventType, "command_complete"),
		logging.String("argv", cmd.String()),
		logging.Duration("duration", duration),
	)
	return nil
}

// ExitCode extracts the process exit status from a Runner error.
func ExitCode(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
