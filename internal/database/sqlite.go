package database

import (
	"database/sql"
	"errors"
	"fmt"

	"gallery-go/internal/database/migrations"
	"gallery-go/internal/gallery"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements gallery.Database using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens a SQLite database connection.
// path can be a file path or ":memory:" for an in-memory database.
// The schema is not touched; call Migrate to set it up.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// Open opens the database at path and brings its schema up to date.
func Open(path string) (*SQLiteDatabase, error) {
	s, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// OpenConnection opens and configures a SQLite connection.
// The pool is limited to a single connection: the store has exactly one
// client, and an in-memory database only exists on the connection that
// created it.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// SQLite leaves foreign keys off by default.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Event operations

const eventColumns = "id, name, event_date, description, cover_image, created_at, updated_at"

func (s *SQLiteDatabase) InsertEvent(event *gallery.Event) error {
	_, err := s.db.Exec(
		"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.ID, event.Name, event.Date,
		nullString(event.Description), nullString(event.CoverImage),
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindAllEvents() ([]*gallery.Event, error) {
	rows, err := s.db.Query("SELECT " + eventColumns + " FROM events")
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*gallery.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("listing events: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

func (s *SQLiteDatabase) FindEventByID(id string) (*gallery.Event, error) {
	row := s.db.QueryRow("SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding event by id: %w", err)
	}
	return event, nil
}

func (s *SQLiteDatabase) UpdateEvent(event *gallery.Event) error {
	_, err := s.db.Exec(
		`UPDATE events
		 SET name = ?, event_date = ?, description = ?, cover_image = ?, updated_at = ?
		 WHERE id = ?`,
		event.Name, event.Date,
		nullString(event.Description), nullString(event.CoverImage),
		event.UpdatedAt, event.ID,
	)
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) DeleteEventByID(id string) error {
	if _, err := s.db.Exec("DELETE FROM events WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	return nil
}

// Photo operations

const photoColumns = "id, event_id, filename, url, thumbnail, content_type, size, uploaded_at"

func (s *SQLiteDatabase) InsertPhoto(photo *gallery.Photo) error {
	_, err := s.db.Exec(
		"INSERT INTO photos ("+photoColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		photo.ID, photo.EventID, photo.Filename, photo.URL,
		nullString(photo.Thumbnail), photo.ContentType, photo.Size, photo.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting photo: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindPhotosByEventID(eventID string) ([]*gallery.Photo, error) {
	// Served by idx_photos_event_id.
	rows, err := s.db.Query("SELECT "+photoColumns+" FROM photos WHERE event_id = ?", eventID)
	if err != nil {
		return nil, fmt.Errorf("finding photos by event: %w", err)
	}
	defer rows.Close()

	var photos []*gallery.Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("finding photos by event: %w", err)
		}
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("finding photos by event: %w", err)
	}
	return photos, nil
}

func (s *SQLiteDatabase) FindPhotoByID(id string) (*gallery.Photo, error) {
	row := s.db.QueryRow("SELECT "+photoColumns+" FROM photos WHERE id = ?", id)
	photo, err := scanPhoto(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding photo by id: %w", err)
	}
	return photo, nil
}

func (s *SQLiteDatabase) DeletePhotoByID(id string) error {
	if _, err := s.db.Exec("DELETE FROM photos WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting photo: %w", err)
	}
	return nil
}

// Images returns an image store backed by this database's images table.
func (s *SQLiteDatabase) Images() *SQLiteImageStore {
	return &SQLiteImageStore{db: s.db}
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies pending schema migrations. Safe to call on a current schema.
func (s *SQLiteDatabase) Migrate() error {
	if err := migrations.Up(s.db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.Check(s.db)
}

// BackupTo writes a complete copy of the database to destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*gallery.Event, error) {
	var e gallery.Event
	var description, coverImage sql.NullString
	if err := row.Scan(&e.ID, &e.Name, &e.Date, &description, &coverImage, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Description = description.String
	e.CoverImage = coverImage.String
	return &e, nil
}

func scanPhoto(row scanner) (*gallery.Photo, error) {
	var p gallery.Photo
	var thumbnail sql.NullString
	if err := row.Scan(&p.ID, &p.EventID, &p.Filename, &p.URL, &thumbnail, &p.ContentType, &p.Size, &p.UploadedAt); err != nil {
		return nil, err
	}
	p.Thumbnail = thumbnail.String
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Compile-time check that SQLiteDatabase implements gallery.Database interface
var _ gallery.Database = (*SQLiteDatabase)(nil)
