package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/renderinc/uservoice-export/internal/config"
	"github.com/renderinc/uservoice-export/internal/progress"
	"github.com/renderinc/uservoice-export/internal/search"
	"github.com/renderinc/uservoice-export/internal/storage"
	"github.com/renderinc/uservoice-export/internal/sync"
	"github.com/renderinc/uservoice-export/internal/uservoice"
)

var (
	exportOutput  string
	exportSince   string
	exportStrict  bool
	exportArchive bool
	exportQuiet   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Fetch UserVoice data and write the ProductBoard notes CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		cutoff, err := cfg.Cutoff()
		if err != nil {
			return err
		}

		var bars func(string) uservoice.Progress
		if !exportQuiet {
			bars = progress.Factory(os.Stderr)
		}

		client := uservoice.NewClient(cfg.APIBaseURL(), cfg.Token,
			uservoice.WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
			uservoice.WithLogger(logger.Named("uservoice")),
			uservoice.WithProgress(bars),
		)

		var db *storage.DB
		var idx *search.Index
		if exportArchive || cfg.ArchivePath != "" {
			db, idx, err = openArchive(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			defer idx.Close()
		}

		worker := sync.NewWorker(client, db, idx, logger, sync.Options{
			Output: cfg.Output,
			Cutoff: cutoff,
			Strict: cfg.Strict,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stats, err := worker.Run(ctx)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		printSummary(stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "CSV destination (default from config, else output.csv)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "Skip records created before this date (overrides last_import_date)")
	exportCmd.Flags().BoolVar(&exportStrict, "strict", false, "Fail instead of exporting when a collection is fetched incompletely")
	exportCmd.Flags().BoolVar(&exportArchive, "archive", false, "Record the run in the archive and index its notes")
	exportCmd.Flags().BoolVarP(&exportQuiet, "quiet", "q", false, "Disable progress bars")
}

// loadConfig reads the config file and applies the export flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile(cmd))
	if err != nil {
		return nil, err
	}

	if exportOutput != "" {
		cfg.Output = exportOutput
	}
	if exportSince != "" {
		cfg.LastImportDate = exportSince
	}
	if exportStrict {
		cfg.Strict = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printSummary(stats *sync.Stats) {
	fmt.Println()
	fmt.Println("=== Export Complete ===")
	fmt.Printf("Run:           %s\n", stats.RunID)
	if !stats.Cutoff.IsZero() {
		fmt.Printf("Cutoff:        %s\n", stats.Cutoff.Format("2006-01-02T15:04:05Z07:00"))
	}
	fmt.Printf("Suggestions:   %d kept of %d\n", stats.SuggestionsKept, stats.Suggestions)
	fmt.Printf("Supporters:    %d kept of %d\n", stats.SupportersKept, stats.Supporters)
	fmt.Printf("Users:         %d\n", stats.Users)
	fmt.Printf("Forums:        %d\n", stats.Forums)
	fmt.Printf("Notes:         %d (%d supporters skipped)\n", stats.Notes, stats.SkippedSupporters)
	if !stats.Complete() {
		fmt.Printf("Incomplete:    %v\n", stats.Truncated)
	}
	fmt.Printf("Duration:      %v\n", stats.Duration)
	fmt.Println()
	fmt.Printf("Output written to: %s\n", stats.Output)
}
