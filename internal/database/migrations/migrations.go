// Package migrations owns the gallery schema. The SQL files under files/ are
// embedded and applied with golang-migrate, which keeps one integer version
// in schema_migrations. Migrations only ever add to the schema.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

var (
	ErrNoVersion = errors.New("database has never been migrated")
	ErrDirty     = errors.New("database schema is dirty")
	ErrBehind    = errors.New("database schema is behind this binary")
	ErrAhead     = errors.New("database schema is newer than this binary")
)

// Status compares the schema version recorded in a database with the
// newest migration embedded in the binary. Version is 0 when unmigrated.
type Status struct {
	Version  uint
	Latest   uint
	Dirty    bool
	Migrated bool
}

// Err returns nil for a current schema, otherwise one of the sentinel errors
// wrapped with the versions involved.
func (s Status) Err() error {
	switch {
	case !s.Migrated:
		return ErrNoVersion
	case s.Dirty:
		return fmt.Errorf("%w: a migration to version %d did not finish", ErrDirty, s.Version)
	case s.Version < s.Latest:
		return fmt.Errorf("%w: at %d, %d pending up to %d", ErrBehind, s.Version, s.Latest-s.Version, s.Latest)
	case s.Version > s.Latest:
		return fmt.Errorf("%w: at %d, binary knows %d", ErrAhead, s.Version, s.Latest)
	}
	return nil
}

// ReadStatus reports where db stands relative to the embedded migrations.
func ReadStatus(db *sql.DB) (Status, error) {
	latest, err := LatestVersion()
	if err != nil {
		return Status{}, err
	}
	st := Status{Latest: latest}

	m, err := open(db)
	if err != nil {
		return Status{}, err
	}
	// m wraps db, which belongs to the caller; closing m would close it too.

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return st, nil
	case err != nil:
		return Status{}, fmt.Errorf("reading schema version: %w", err)
	}
	st.Version, st.Dirty, st.Migrated = version, dirty, true
	return st, nil
}

// Check returns nil when db is at the latest embedded version.
func Check(db *sql.DB) error {
	st, err := ReadStatus(db)
	if err != nil {
		return err
	}
	return st.Err()
}

// Up applies every pending migration. A current schema is left untouched.
func Up(db *sql.DB) error {
	m, err := open(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// LatestVersion returns the newest migration version in the binary.
func LatestVersion() (uint, error) {
	src, err := embedded()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("finding first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}

func embedded() (source.Driver, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("loading embedded migrations: %w", err)
	}
	return src, nil
}

func open(db *sql.DB) (*migrate.Migrate, error) {
	src, err := embedded()
	if err != nil {
		return nil, err
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("opening sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing migrations: %w", err)
	}
	return m, nil
}
