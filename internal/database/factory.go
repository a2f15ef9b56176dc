package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gallery-go/internal/config"
)

// DatabaseFile is the SQLite file name inside the configured data_dir.
const DatabaseFile = "gallery.db"

// NewDatabaseFromConfig opens the database selected by the config type and
// brings its schema up to date.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return Open(filepath.Join(cfg.DataDir, DatabaseFile))
	case "memory":
		return Open(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
