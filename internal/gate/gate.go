// Package gate implements the shared-password admin check. The marker it
// persists only records that the password was typed once; it is not a
// security boundary.
package gate

import (
	"crypto/subtle"
	"fmt"
)

const (
	// MarkerKey is the session key holding the authenticated marker.
	MarkerKey = "auth"
	// MarkerValue is stored under MarkerKey after a successful login.
	MarkerValue = "admin"
)

// SessionStore persists string values between calls.
// Get returns "" for keys that were never set.
type SessionStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Gate checks a candidate password against one shared secret.
type Gate struct {
	store    SessionStore
	password string
}

// New creates a Gate over store that accepts password.
func New(store SessionStore, password string) *Gate {
	return &Gate{store: store, password: password}
}

// Login persists the marker if candidate matches the shared secret. A wrong
// candidate returns false and leaves the session untouched.
func (g *Gate) Login(candidate string) (bool, error) {
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(g.password)) != 1 {
		return false, nil
	}
	if err := g.store.Set(MarkerKey, MarkerValue); err != nil {
		return false, fmt.Errorf("saving session: %w", err)
	}
	return true, nil
}

// IsAuthenticated reports whether the marker is present.
func (g *Gate) IsAuthenticated() (bool, error) {
	v, err := g.store.Get(MarkerKey)
	if err != nil {
		return false, fmt.Errorf("reading session: %w", err)
	}
	return v == MarkerValue, nil
}

// Logout clears the marker.
func (g *Gate) Logout() error {
	if err := g.store.Delete(MarkerKey); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
