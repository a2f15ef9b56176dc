package testutil

import (
	"errors"
	"io"
	"sync"

	"gallery-go/internal/gallery"
	"gallery-go/internal/imagestore"
)

// ErrInjected is returned by FaultyImageStore for the operations set to fail.
var ErrInjected = errors.New("injected failure")

// NewTestImageStore creates a new in-memory image store for testing.
func NewTestImageStore() *imagestore.MemoryStore {
	return imagestore.NewMemoryStore()
}

// FaultyImageStore wraps a MemoryStore and fails selected operations.
type FaultyImageStore struct {
	*imagestore.MemoryStore

	mu         sync.Mutex
	failPut    bool
	failDelete bool
	failGet    map[string]bool // photo id -> fail
}

// NewFaultyImageStore creates a FaultyImageStore where nothing fails yet.
func NewFaultyImageStore() *FaultyImageStore {
	return &FaultyImageStore{
		MemoryStore: imagestore.NewMemoryStore(),
		failGet:     make(map[string]bool),
	}
}

// FailPut makes every Put fail until called again with false.
func (f *FaultyImageStore) FailPut(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut = fail
}

// FailDelete makes every Delete fail until called again with false.
func (f *FaultyImageStore) FailDelete(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDelete = fail
}

// FailGet makes Get fail for photoID.
func (f *FaultyImageStore) FailGet(photoID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet[photoID] = true
}

func (f *FaultyImageStore) Put(photoID string, r io.Reader, size int64) error {
	f.mu.Lock()
	fail := f.failPut
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.MemoryStore.Put(photoID, r, size)
}

func (f *FaultyImageStore) Get(photoID string, w io.Writer) (bool, error) {
	f.mu.Lock()
	fail := f.failGet[photoID]
	f.mu.Unlock()
	if fail {
		return false, ErrInjected
	}
	return f.MemoryStore.Get(photoID, w)
}

func (f *FaultyImageStore) Delete(photoID string) error {
	f.mu.Lock()
	fail := f.failDelete
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.MemoryStore.Delete(photoID)
}

var _ gallery.ImageStore = (*FaultyImageStore)(nil)
