package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tract/internal/history"
	"tract/internal/sink"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <workdir>",
		Short: "Show recorded runs for a working directory",
		Long: `History reads the per-directory run ledger under LOGS/ and lists past
runs newest first, followed by the stage outcomes of the most recent run.`,
		Args: invalidArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureConfig(); err != nil {
				return err
			}
			root, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve working directory: %w", err)
			}

			out := cmd.OutOrStdout()
			ledgerPath := filepath.Join(sink.Dir(root), history.FileName)
			if _, err := os.Stat(ledgerPath); err != nil {
				if os.IsNotExist(err) {
					fmt.Fprintln(out, "No recorded runs.")
					return nil
				}
				return fmt.Errorf("stat history ledger: %w", err)
			}

			store, err := history.Open(root)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No recorded runs.")
				return nil
			}

			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Runs", colorize) {
				fmt.Fprintln(out, line)
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortRunID(run.RunID),
					run.Subject,
					displayLabel(run.State),
					run.StartedAt.Local().Format(time.DateTime),
					run.Duration().Round(time.Millisecond).String(),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"RUN", "SUBJECT", "STATE", "STARTED", "DURATION"}, rows, 4))

			latest, err := store.Latest(cmd.Context())
			if err != nil {
				return err
			}
			if latest == nil || len(latest.Stages) == 0 {
				return nil
			}
			for _, line := range renderSectionHeader("Latest run stages", colorize) {
				fmt.Fprintln(out, line)
			}
			stageRows := make([][]string, 0, len(latest.Stages))
			for _, st := range latest.Stages {
				stageRows = append(stageRows, []string{
					strconv.Itoa(st.Position),
					st.Name,
					displayLabel(st.Outcome),
					formatStageDuration(st.Duration),
					st.Detail,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "STAGE", "OUTCOME", "DURATION", "DETAIL"}, stageRows, 0, 3))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to list (0 for all)")

	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatStageDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
