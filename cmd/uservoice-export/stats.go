package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive and index statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, idx, err := openConfiguredArchive(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		defer idx.Close()

		dbCount, err := db.Count()
		if err != nil {
			return fmt.Errorf("count notes: %w", err)
		}
		indexCount, err := idx.Count()
		if err != nil {
			return fmt.Errorf("count index: %w", err)
		}
		last, err := db.LastCompleteRun()
		if err != nil {
			return fmt.Errorf("last run: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "=== Archive Statistics ===")
		fmt.Fprintf(out, "Notes in database: %d\n", dbCount)
		fmt.Fprintf(out, "Notes in index:    %d\n", indexCount)
		if last != nil {
			fmt.Fprintf(out, "Last complete run: %s (%s)\n", last.ID, last.StartedAt.Format(time.RFC3339))
		}
		return nil
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived export runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, idx, err := openConfiguredArchive(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		defer idx.Close()

		runs, err := db.ListRuns(runsLimit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs archived")
			return nil
		}

		for _, run := range runs {
			status := "complete"
			switch {
			case run.FinishedAt == nil:
				status = "unfinished"
			case run.Error != "":
				status = "failed"
			case !run.Complete:
				status = "incomplete"
			}
			fmt.Fprintf(out, "%s  %s  %-10s  %d notes  -> %s\n",
				run.ID, run.StartedAt.Format(time.RFC3339), status, run.Notes, run.OutputPath)
		}
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the search index from the archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, idx, err := openConfiguredArchive(cmd)
		if err != nil {
			return err
		}
		defer db.Close()
		defer idx.Close()

		startTime := time.Now()
		progressFn := func(current, total int) {
			percent := float64(current) / float64(total) * 100
			fmt.Printf("\rIndexing: %d/%d (%.1f%%)  ", current, total, percent)
		}
		if err := idx.Rebuild(db, progressFn); err != nil {
			return fmt.Errorf("rebuild index: %w", err)
		}

		indexCount, err := idx.Count()
		if err != nil {
			return fmt.Errorf("count index: %w", err)
		}

		fmt.Println()
		fmt.Println("=== Reindex Complete ===")
		fmt.Printf("Notes indexed: %d\n", indexCount)
		fmt.Printf("Duration:      %v\n", time.Since(startTime).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, runsCmd, reindexCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum runs to list (0 for all)")
}
