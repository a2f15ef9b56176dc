package imagestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gallery-go/internal/gallery"
)

// FileSystemStore keeps one file per photo:
//
//	<root>/
//	  images/
//	    <photo id>
type FileSystemStore struct {
	root      string
	imagesDir string
}

// NewFileSystemStore creates a store rooted at root, creating the directory layout.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	imagesDir := filepath.Join(root, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	return &FileSystemStore{root: root, imagesDir: imagesDir}, nil
}

// Put writes the image for photoID atomically, replacing any existing file.
func (s *FileSystemStore) Put(photoID string, r io.Reader, size int64) error {
	destPath, err := s.pathFor(photoID)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(s.imagesDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Get writes the image for photoID to w. It reports false if there is none.
func (s *FileSystemStore) Get(photoID string, w io.Writer) (bool, error) {
	srcPath, err := s.pathFor(photoID)
	if err != nil {
		return false, err
	}

	f, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return false, fmt.Errorf("failed to read image: %w", err)
	}
	return true, nil
}

// Delete removes the image file for photoID. Missing files are ignored.
func (s *FileSystemStore) Delete(photoID string) error {
	p, err := s.pathFor(photoID)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the store directories are accessible.
func (s *FileSystemStore) ValidateSetup() error {
	for _, dir := range []string{s.root, s.imagesDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("image store directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("image store path is not a directory: %s", dir)
		}
	}
	return nil
}

// pathFor maps a photo id to its file, rejecting ids that would escape the images directory.
func (s *FileSystemStore) pathFor(photoID string) (string, error) {
	if photoID == "" || photoID != filepath.Base(photoID) || photoID == "." || photoID == ".." {
		return "", fmt.Errorf("invalid photo id: %q", photoID)
	}
	return filepath.Join(s.imagesDir, photoID), nil
}

var _ gallery.ImageStore = (*FileSystemStore)(nil)
