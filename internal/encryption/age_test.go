package encryption

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gallery-go/internal/config"
)

func newTestAgeEncryptor(t *testing.T) *AgeEncryptor {
	t.Helper()
	cfg := config.EncryptionConfig{
		Type:         "age",
		IdentityPath: filepath.Join(t.TempDir(), "keys", "gallery.key"),
	}
	return NewAgeEncryptor(cfg)
}

func TestAgeEncryptor_IsConfigured_BeforeSetup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)
	if e.IsConfigured() {
		t.Error("IsConfigured() = true before Setup, want false")
	}
}

func TestAgeEncryptor_Setup(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	if err := e.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if !e.IsConfigured() {
		t.Error("IsConfigured() = false after Setup, want true")
	}

	info, err := os.Stat(e.identityPath)
	if err != nil {
		t.Fatalf("identity file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("identity mode = %o, want 600", perm)
	}

	data, _ := os.ReadFile(e.identityPath)
	if !strings.Contains(string(data), "AGE-SECRET-KEY-") {
		t.Error("identity file does not contain an age secret key")
	}
}

func TestAgeEncryptor_SetupRefusesOverwrite(t *testing.T) {
	t.Parallel()
	e := newTestAgeEncryptor(t)

	if err := e.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	before, _ := os.ReadFile(e.identityPath)

	if err := e.Setup(); err == nil {
		t.Error("second Setup() should return error")
	}

	after, _ := os.ReadFile(e.identityPath)
	if !bytes.Equal(before, after) {
		t.Error("second Setup() replaced the identity")
	}
}

func TestAgeEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input []byte
	}{
		{name: "simple text", input: []byte("hello world")},
		{name: "empty", input: []byte{}},
		{name: "jpeg header", input: []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}},
		{name: "large data", input: bytes.Repeat([]byte("abcdef"), 10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newTestAgeEncryptor(t)
			if err := e.Setup(); err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			var encrypted bytes.Buffer
			if err := e.Encrypt(bytes.NewReader(tt.input), &encrypted); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
			if len(tt.input) > 0 && bytes.Contains(encrypted.Bytes(), tt.input) {
				t.Error("encrypted output contains the plaintext")
			}

			var decrypted bytes.Buffer
			if err := e.Decrypt(bytes.NewReader(encrypted.Bytes()), &decrypted); err != nil {
				t.Fatalf("Decrypt() error = %v", err)
			}
			if !bytes.Equal(decrypted.Bytes(), tt.input) {
				t.Errorf("round-trip failed: got %d bytes, want %d bytes", decrypted.Len(), len(tt.input))
			}
		})
	}
}

func TestAgeEncryptor_DecryptWithFreshInstance(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	var encrypted bytes.Buffer
	if err := e.Encrypt(strings.NewReader("photo"), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	// A new process only has the identity file to go on.
	reopened := NewAgeEncryptor(config.EncryptionConfig{IdentityPath: e.identityPath})
	var decrypted bytes.Buffer
	if err := reopened.Decrypt(&encrypted, &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if decrypted.String() != "photo" {
		t.Errorf("Decrypt() = %q, want %q", decrypted.String(), "photo")
	}
}

func TestAgeEncryptor_DecryptWithOtherIdentity(t *testing.T) {
	t.Parallel()

	a := newTestAgeEncryptor(t)
	b := newTestAgeEncryptor(t)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := b.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	var encrypted bytes.Buffer
	a.Encrypt(strings.NewReader("photo"), &encrypted)

	if err := b.Decrypt(&encrypted, &bytes.Buffer{}); err == nil {
		t.Error("Decrypt() with a different identity should return error")
	}
}

func TestAgeEncryptor_BeforeSetup(t *testing.T) {
	t.Parallel()

	e := newTestAgeEncryptor(t)
	if err := e.Encrypt(strings.NewReader("data"), &bytes.Buffer{}); err == nil {
		t.Error("Encrypt() before Setup should return error")
	}
	if err := e.Decrypt(strings.NewReader("data"), &bytes.Buffer{}); err == nil {
		t.Error("Decrypt() before Setup should return error")
	}
}
