package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tract/internal/pipeline"
	"tract/internal/pipelinerun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run <workdir> <subject> <yes|no>",
		Short: "Execute the preprocessing pipeline for one subject",
		Long: `Run drives the diffusion preprocessing stages over a subject's working
directory. Stages whose checkpoint artifact already exists are skipped, so
rerunning after a failure resumes where the previous run stopped.

The third argument controls fiber orientation sampling: pass yes to run
bedpostx after tensor fitting, no to stop at the tensor fit.`,
		Args: invalidArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sampling, err := parseSamplingArg(args[2])
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := pipelinerun.Run(runCtx, cfg, pipelinerun.Options{
				Workdir:  args[0],
				Subject:  args[1],
				Sampling: sampling,
				LogLevel: logLevel,
				Quiet:    quiet,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range runReportLines(result.Report, colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintf(out, "Log file: %s\n", result.LogPath)

			if !result.Report.Completed() {
				return runFailureError(result.Report)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level for this run")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress live log output; the run log file still records everything")

	return cmd
}

// parseSamplingArg interprets the mandatory yes/no positional argument. The
// argument is positional rather than a flag so an invocation always states
// whether sampling is wanted.
func parseSamplingArg(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, pipeline.Wrap(pipeline.ErrInvalidInput, "", "sampling argument", fmt.Sprintf("expected yes or no, got %q", raw), nil)
	}
}

// runReportLines renders the per-stage outcome block shown after a run.
func runReportLines(report *pipeline.Report, colorize bool) []string {
	lines := renderSectionHeader("Run "+report.Subject, colorize)
	counts := make(map[pipeline.Outcome]int, 4)
	for _, st := range report.Stages {
		counts[st.Outcome]++
		message := displayLabel(string(st.Outcome))
		if st.Outcome == pipeline.OutcomeRan && st.Duration > 0 {
			message += " in " + st.Duration.Round(time.Millisecond).String()
		}
		if st.Detail != "" {
			message += " (" + st.Detail + ")"
		}
		lines = append(lines, renderStatusLine(st.Name, outcomeKind(st.Outcome), message, colorize))
	}

	kind := statusOK
	if !report.Completed() {
		kind = statusError
	}
	summary := fmt.Sprintf("%s in %s (%d skipped, %d ran)",
		displayLabel(string(report.State)),
		report.Duration().Round(time.Millisecond),
		counts[pipeline.OutcomeSkipped],
		counts[pipeline.OutcomeRan],
	)
	lines = append(lines, renderStatusLine("result", kind, summary, colorize))
	return lines
}

// runFailureError converts an aborted report into the error surfaced to the
// shell so the process exits non-zero.
func runFailureError(report *pipeline.Report) error {
	if failure := report.FirstFailure(); failure != nil {
		return fmt.Errorf("run aborted: stage %s failed: %s", failure.Name, failure.Detail)
	}
	return errors.New("run aborted")
}
