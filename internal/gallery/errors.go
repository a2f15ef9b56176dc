package gallery

import (
	"errors"
	"fmt"
)

// ErrValidation marks caller-supplied input that the store refuses to persist.
var ErrValidation = errors.New("invalid input")

// ErrNothingToExport is returned by ExportEvent when the event has no photos.
// It signals an empty result, not a failure.
var ErrNothingToExport = errors.New("nothing to export")

// StorageError reports that the underlying storage engine rejected a read or write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
