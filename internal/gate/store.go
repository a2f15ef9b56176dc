package gate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// MemorySessionStore keeps values in a map. Safe for concurrent use.
type MemorySessionStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemorySessionStore creates an empty in-memory session.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{values: make(map[string]string)}
}

func (m *MemorySessionStore) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *MemorySessionStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySessionStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

var _ SessionStore = (*MemorySessionStore)(nil)

// FileSessionStore keeps values in a TOML file, so a CLI login survives
// between invocations. A missing file is an empty session.
type FileSessionStore struct {
	path string
	mu   sync.Mutex
}

// NewFileSessionStore creates a store backed by the file at path.
func NewFileSessionStore(path string) *FileSessionStore {
	return &FileSessionStore{path: path}
}

type sessionFile struct {
	Values map[string]string `toml:"values"`
}

func (f *FileSessionStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

func (f *FileSessionStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileSessionStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *FileSessionStore) load() (map[string]string, error) {
	var sf sessionFile
	if _, err := toml.DecodeFile(f.path, &sf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}
	if sf.Values == nil {
		sf.Values = make(map[string]string)
	}
	return sf.Values, nil
}

// save writes the session atomically (temp file + rename).
func (f *FileSessionStore) save(values map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("creating temp session file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := toml.NewEncoder(tmp).Encode(sessionFile{Values: values}); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp session file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("saving session file: %w", err)
	}
	return nil
}

var _ SessionStore = (*FileSessionStore)(nil)
