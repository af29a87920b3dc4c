package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/renderinc/uservoice-export/internal/config"
	"github.com/renderinc/uservoice-export/internal/search"
	"github.com/renderinc/uservoice-export/internal/storage"
)

// configFile returns the config file to read. The default file is optional;
// one named with --config must exist.
func configFile(cmd *cobra.Command) string {
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		logger.Debug("No config file, using environment", zap.String("path", configPath))
		return ""
	}
	return configPath
}

// archivePaths returns the archive database and index locations, from the
// config when set, else under --data-dir
func archivePaths(cfg *config.Config) (dbFile, indexDir string) {
	dbFile, indexDir = cfg.ArchivePath, cfg.IndexPath
	if dbFile == "" {
		dbFile = dbPath()
	}
	if indexDir == "" {
		indexDir = indexPath()
	}
	return dbFile, indexDir
}

func openArchive(cfg *config.Config) (*storage.DB, *search.Index, error) {
	dbFile, indexDir := archivePaths(cfg)
	for _, dir := range []string{filepath.Dir(dbFile), filepath.Dir(indexDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := storage.Open(dbFile)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	idx, err := search.Open(indexDir)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open search index: %w", err)
	}
	return db, idx, nil
}

// openConfiguredArchive opens the archive for the read-only commands, which
// need the archive settings but no UserVoice credentials
func openConfiguredArchive(cmd *cobra.Command) (*storage.DB, *search.Index, error) {
	cfg, err := config.Read(configFile(cmd))
	if err != nil {
		return nil, nil, err
	}
	return openArchive(cfg)
}
