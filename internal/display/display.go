// Package display hands out transient references to image bytes for a
// rendering layer. A Ref is valid until it is released; the Registry keeps
// every live Ref so a long-running process can account for and drop them.
package display

import (
	"bytes"
	"io"
	"sync"

	"github.com/google/uuid"
)

// tokenPrefix mirrors the shape of object-URL handles.
const tokenPrefix = "blob:"

// Registry tracks live display references. Safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	refs map[string]*Ref
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{refs: make(map[string]*Ref)}
}

// Ref is a process-local handle onto one photo's bytes.
type Ref struct {
	registry *Registry
	token    string
	photoID  string
	data     []byte
}

// Acquire registers data under a fresh token and returns its Ref.
// The caller owns the Ref and must Release it.
func (r *Registry) Acquire(photoID string, data []byte) *Ref {
	ref := &Ref{
		registry: r,
		token:    tokenPrefix + uuid.NewString(),
		photoID:  photoID,
		data:     data,
	}

	r.mu.Lock()
	r.refs[ref.token] = ref
	r.mu.Unlock()

	return ref
}

// Open returns the bytes behind a live token.
func (r *Registry) Open(token string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ref, ok := r.refs[token]
	if !ok {
		return nil, false
	}
	return ref.data, true
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refs)
}

// ReleaseAll drops every live reference and returns how many were released.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.refs)
	for token, ref := range r.refs {
		ref.data = nil
		delete(r.refs, token)
	}
	return n
}

// Token returns the opaque handle string.
func (ref *Ref) Token() string { return ref.token }

// PhotoID returns the photo this reference points at.
func (ref *Ref) PhotoID() string { return ref.photoID }

// Size returns the byte length of the referenced data, or 0 once released.
func (ref *Ref) Size() int {
	ref.registry.mu.Lock()
	defer ref.registry.mu.Unlock()
	return len(ref.data)
}

// Reader returns a reader over the referenced bytes. It reads nothing once
// the reference has been released.
func (ref *Ref) Reader() io.Reader {
	ref.registry.mu.Lock()
	defer ref.registry.mu.Unlock()
	return bytes.NewReader(ref.data)
}

// Release drops the reference. Calling it more than once is safe.
func (ref *Ref) Release() {
	ref.registry.mu.Lock()
	defer ref.registry.mu.Unlock()

	delete(ref.registry.refs, ref.token)
	ref.data = nil
}

// With runs fn with ref and releases ref on every exit path, including a
// panic inside fn. A nil ref is passed through to fn unchanged.
func With(ref *Ref, fn func(*Ref) error) error {
	if ref != nil {
		defer ref.Release()
	}
	return fn(ref)
}
