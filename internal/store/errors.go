package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entry has no stored text.
var ErrNotFound = errors.New("entry not found")

// StorageError reports a fault in the storage layer: I/O, corruption,
// constraint violation or schema mismatch. It is never swallowed.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a storage fault for operation op.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageFault reports whether err is or wraps a StorageError.
func IsStorageFault(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
