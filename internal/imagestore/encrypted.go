package imagestore

import (
	"bytes"
	"fmt"
	"io"

	"gallery-go/internal/gallery"
)

// EncryptedStore encrypts bytes on the way into another store and decrypts
// them on the way out. Sizes seen by the inner store are ciphertext sizes.
type EncryptedStore struct {
	inner     gallery.ImageStore
	encryptor gallery.Encryptor
}

// NewEncryptedStore wraps inner with enc.
func NewEncryptedStore(inner gallery.ImageStore, enc gallery.Encryptor) *EncryptedStore {
	return &EncryptedStore{inner: inner, encryptor: enc}
}

// Put encrypts r and stores the ciphertext under photoID.
func (s *EncryptedStore) Put(photoID string, r io.Reader, size int64) error {
	counted := &countingReader{r: r}

	var ciphertext bytes.Buffer
	if err := s.encryptor.Encrypt(counted, &ciphertext); err != nil {
		return fmt.Errorf("encrypting image: %w", err)
	}
	if counted.n != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, counted.n)
	}

	return s.inner.Put(photoID, &ciphertext, int64(ciphertext.Len()))
}

// Get fetches the ciphertext for photoID and writes the plaintext to w.
func (s *EncryptedStore) Get(photoID string, w io.Writer) (bool, error) {
	var ciphertext bytes.Buffer
	found, err := s.inner.Get(photoID, &ciphertext)
	if err != nil || !found {
		return found, err
	}

	if err := s.encryptor.Decrypt(&ciphertext, w); err != nil {
		return false, fmt.Errorf("decrypting image %s: %w", photoID, err)
	}
	return true, nil
}

// Delete removes the image from the inner store.
func (s *EncryptedStore) Delete(photoID string) error {
	return s.inner.Delete(photoID)
}

// ValidateSetup requires a configured encryptor and a valid inner store.
func (s *EncryptedStore) ValidateSetup() error {
	if !s.encryptor.IsConfigured() {
		return fmt.Errorf("encryption is enabled but not set up (run 'gallery config init --encrypt')")
	}
	return s.inner.ValidateSetup()
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ gallery.ImageStore = (*EncryptedStore)(nil)
