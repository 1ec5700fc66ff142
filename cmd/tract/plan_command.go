package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tract/internal/pipelinerun"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <workdir> <subject> [yes|no]",
		Short: "Preview which stages a run would execute",
		Long: `Plan evaluates every stage checkpoint without invoking any tool or taking
the directory lock. The optional third argument mirrors the run command's
sampling switch and defaults to no.`,
		Args: invalidArgs(cobra.RangeArgs(2, 3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sampling := false
			if len(args) == 3 {
				if sampling, err = parseSamplingArg(args[2]); err != nil {
					return err
				}
			}

			result, err := pipelinerun.Plan(cfg, pipelinerun.Options{
				Workdir:  args[0],
				Subject:  args[1],
				Sampling: sampling,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Plan "+result.Subject, colorize) {
				fmt.Fprintln(out, line)
			}
			if !result.Ready() {
				fmt.Fprintln(out, renderStatusLine("required inputs", statusError,
					"missing: "+strings.Join(result.MissingInputs, ", "), colorize))
			}

			rows := make([][]string, 0, len(result.Entries))
			for _, entry := range result.Entries {
				action := "skip"
				if entry.WouldRun() {
					action = "run"
				}
				rows = append(rows, []string{
					entry.Stage,
					displayLabel(action),
					entry.Artifact,
					strings.Join(entry.MissingInputs, ", "),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"STAGE", "ACTION", "CHECKPOINT", "MISSING INPUTS"}, rows))
			fmt.Fprintln(out, result.Summary())
			return nil
		},
	}
}
