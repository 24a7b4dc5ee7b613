// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/niderhoff/scolar/internal/library"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past research runs",
	Long:  `Runs lists the research history recorded in the output directory's library.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings := loadSettings()
		if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
			settings.OutputDir = dir
		}
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := library.Open(filepath.Join(settings.OutputDir, "library"))
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWHEN\tEXIT\tURLS\tPAGES\tANSWER\tPROMPT")
		for _, run := range runs {
			answered := "no"
			if run.HasAnswer {
				answered = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
				run.ID,
				run.CreatedAt.Format("2006-01-02 15:04"),
				run.ExitCode,
				run.URLCount,
				run.PageCount,
				answered,
				run.Prompt,
			)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.Flags().String("output-dir", "", "directory holding the run library (overrides config)")

	rootCmd.AddCommand(runsCmd)
}
