package database

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"gallery-go/internal/gallery"
)

// SQLiteImageStore keeps image bytes in the images table, next to the
// metadata they belong to.
type SQLiteImageStore struct {
	db *sql.DB
}

// Put stores the image for photoID, replacing any existing bytes.
func (s *SQLiteImageStore) Put(photoID string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	_, err = s.db.Exec(
		"INSERT INTO images (photo_id, data) VALUES (?, ?) ON CONFLICT(photo_id) DO UPDATE SET data = excluded.data",
		photoID, data,
	)
	if err != nil {
		return fmt.Errorf("storing image: %w", err)
	}
	return nil
}

// Get writes the image for photoID to w.
func (s *SQLiteImageStore) Get(photoID string, w io.Writer) (bool, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM images WHERE photo_id = ?", photoID).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("loading image: %w", err)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return false, fmt.Errorf("failed to write image: %w", err)
	}
	return true, nil
}

// Delete removes the image for photoID.
func (s *SQLiteImageStore) Delete(photoID string) error {
	if _, err := s.db.Exec("DELETE FROM images WHERE photo_id = ?", photoID); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}
	return nil
}

// ValidateSetup checks that the images table is reachable.
func (s *SQLiteImageStore) ValidateSetup() error {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM images WHERE 0").Scan(&n); err != nil {
		return fmt.Errorf("images table not accessible: %w", err)
	}
	return nil
}

var _ gallery.ImageStore = (*SQLiteImageStore)(nil)
