package database

import (
	"os"
	"path/filepath"
	"testing"

	"gallery-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	t.Run("memory database", func(t *testing.T) {
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if err := got.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite database", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "db")
		got, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dataDir})
		if err != nil {
			t.Fatalf("NewDatabaseFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		wantPath := filepath.Join(dataDir, DatabaseFile)
		if got.Path() != wantPath {
			t.Errorf("Path() = %q, want %q", got.Path(), wantPath)
		}
		if _, err := os.Stat(wantPath); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	t.Run("reopening an initialized database succeeds", func(t *testing.T) {
		cfg := config.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()}

		first, err := NewDatabaseFromConfig(cfg)
		if err != nil {
			t.Fatalf("first NewDatabaseFromConfig() error = %v", err)
		}
		first.Close()

		second, err := NewDatabaseFromConfig(cfg)
		if err != nil {
			t.Fatalf("second NewDatabaseFromConfig() error = %v", err)
		}
		defer second.Close()

		if err := second.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})

	t.Run("sqlite database without data dir", func(t *testing.T) {
		_, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite"})
		if err == nil {
			t.Error("NewDatabaseFromConfig() expected error for missing data_dir")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "postgres"})
		if err == nil {
			t.Error("NewDatabaseFromConfig() expected error for unknown type")
		}
	})
}
