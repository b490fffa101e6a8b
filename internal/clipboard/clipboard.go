// Package clipboard defines the read and write capabilities the daemon uses
// to talk to the OS clipboard. Backends live in subpackages.
package clipboard

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoText is returned by Read when the clipboard is empty, unavailable, or
// holds nothing that can be read as text. It is a normal outcome, not a fault.
var ErrNoText = errors.New("clipboard has no text")

// Reader reads the current clipboard text.
type Reader interface {
	// Read returns the raw clipboard bytes, or ErrNoText.
	Read(ctx context.Context) ([]byte, error)
}

// Writer places text on the clipboard.
type Writer interface {
	Write(ctx context.Context, text string) error
}

// Clipboard is a backend that can do both.
type Clipboard interface {
	Reader
	Writer
}

// CapabilityError is a clipboard failure other than "no text".
type CapabilityError struct {
	Op      string // "read" or "write"
	Backend string
	Err     error
}

// NewCapabilityError wraps err as a fault of backend during op.
func NewCapabilityError(op, backend string, err error) *CapabilityError {
	return &CapabilityError{Op: op, Backend: backend, Err: err}
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// IsCapabilityFault reports whether err is or wraps a CapabilityError.
func IsCapabilityFault(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}

// Backend names accepted by the clipboard config key.
const (
	BackendSystem = "system"
	BackendNative = "native"
)
