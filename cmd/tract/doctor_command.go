package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tract/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [workdir]",
		Short: "Check stage tool availability and working directory access",
		Long: `Doctor runs the same preflight checks a pipeline run performs: the
configured stage tools must resolve on PATH, and the working directory, when
given, must be a readable and writable directory. It exits non-zero when any
required check fails.`,
		Args: invalidArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			workdir := ""
			if len(args) == 1 {
				workdir = args[0]
			}

			results := preflight.RunAll(cfg, workdir)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}

			var failed []string
			for _, result := range results {
				kind := statusOK
				switch {
				case !result.Passed:
					kind = statusError
					failed = append(failed, result.Name)
				case result.Warning:
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			if len(failed) > 0 {
				fmt.Fprintln(out, renderStatusLine("verdict", statusError,
					"failed checks: "+strings.Join(failed, ", "), colorize))
				return errors.New("environment not ready")
			}
			fmt.Fprintln(out, renderStatusLine("verdict", statusOK, "environment ready", colorize))
			return nil
		},
	}
}
