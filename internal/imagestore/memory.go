// Package imagestore holds the gallery.ImageStore backends other than the
// SQLite images table, plus the encryption decorator that can wrap any of them.
package imagestore

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"gallery-go/internal/gallery"
)

// MemoryStore keeps image bytes in a map. Useful for tests and throwaway servers.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	images map[string][]byte // photo id -> bytes
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory image store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{images: make(map[string][]byte)}
}

// Put stores the image for photoID, replacing any existing bytes.
func (m *MemoryStore) Put(photoID string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[photoID] = data
	return nil
}

// Get writes the image for photoID to w. It reports false if there is none.
func (m *MemoryStore) Get(photoID string, w io.Writer) (bool, error) {
	m.mu.RLock()
	data, ok := m.images[photoID]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return false, fmt.Errorf("failed to write image: %w", err)
	}
	return true, nil
}

// Delete removes the image for photoID. Missing ids are ignored.
func (m *MemoryStore) Delete(photoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, photoID)
	return nil
}

// Len returns the number of stored images.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}

// ValidateSetup always succeeds for the in-memory store.
func (m *MemoryStore) ValidateSetup() error {
	return nil
}

var _ gallery.ImageStore = (*MemoryStore)(nil)
