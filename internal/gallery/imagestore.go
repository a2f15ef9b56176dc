package gallery

import "io"

// ImageStore holds the raw image bytes, keyed by photo ID.
// Put uses an io.Reader so backends can stream large files.
type ImageStore interface {
	// Put stores the image for photoID, replacing any existing bytes.
	// size is the number of bytes that will be read from r.
	Put(photoID string, r io.Reader, size int64) error

	// Get writes the image for photoID to w.
	// Returns false, with nothing written, if no image is stored.
	Get(photoID string, w io.Writer) (bool, error)

	// Delete removes the image. Deleting a missing ID is a no-op.
	Delete(photoID string) error

	// ValidateSetup verifies that the store is accessible and properly configured.
	ValidateSetup() error
}
