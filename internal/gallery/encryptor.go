package gallery

import "io"

// Encryptor encrypts image bytes at rest. Implementations hold their key
// material on local disk so both the CLI and the gallery server can decrypt
// without user interaction.
type Encryptor interface {
	// Setup performs one-time key generation. Called during `gallery config init`.
	Setup() error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Decrypt decrypts data read from r and writes plaintext to w.
	Decrypt(r io.Reader, w io.Writer) error

	// IsConfigured returns true if the key material exists.
	IsConfigured() bool
}
