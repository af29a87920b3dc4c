package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	dataDir    string
	verbose    bool

	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "uservoice-export",
	Short: "Export UserVoice feedback as ProductBoard notes",
	Long: `uservoice-export fetches suggestions, supporters, users and forums from
the UserVoice admin API and writes them as a ProductBoard note import CSV.

Runs can optionally be archived to SQLite and indexed for search.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Config file (JSON, or YAML by extension)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Directory for the run archive and search index")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.DisableCaller = !verbose
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func dbPath() string {
	return filepath.Join(dataDir, "uservoice.db")
}

func indexPath() string {
	return filepath.Join(dataDir, "bleve")
}
