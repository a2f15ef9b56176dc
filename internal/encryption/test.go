package encryption

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"gallery-go/internal/gallery"
)

// markerHeader opens every blob written by TestEncryptor.
var markerHeader = []byte("GALENC1\n")

// maskByte is XORed over the payload so a masked JPEG no longer sniffs as one.
const maskByte = 0x5a

var errNotMasked = errors.New("missing test encryption marker")

// TestEncryptor is a deterministic, keyless stand-in for AgeEncryptor used
// by tests and the "test" encryption type. Output is markerHeader followed by
// the masked payload.
type TestEncryptor struct {
	setupCalls int
}

var _ gallery.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup() error {
	e.setupCalls++
	return nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(markerHeader); err != nil {
		return fmt.Errorf("writing marker: %w", err)
	}
	if err := mask(r, bw); err != nil {
		return fmt.Errorf("masking payload: %w", err)
	}
	return bw.Flush()
}

func (e *TestEncryptor) Decrypt(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	head := make([]byte, len(markerHeader))
	if _, err := io.ReadFull(br, head); err != nil {
		return fmt.Errorf("reading marker: %w", errNotMasked)
	}
	if !bytes.Equal(head, markerHeader) {
		return errNotMasked
	}

	bw := bufio.NewWriter(w)
	if err := mask(br, bw); err != nil {
		return fmt.Errorf("unmasking payload: %w", err)
	}
	return bw.Flush()
}

func mask(r io.Reader, w io.Writer) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		for i := range buf[:n] {
			buf[i] ^= maskByte
		}
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
