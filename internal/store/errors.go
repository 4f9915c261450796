package store

import (
	"errors"
	"fmt"
)

// ErrUnsupportedVersion is returned for snapshot documents written by a
// newer format than this build understands.
var ErrUnsupportedVersion = errors.New("unsupported snapshot format version")

// ErrCorruptSnapshot indicates stored snapshot data could not be decoded.
// Callers are expected to discard it and start fresh.
type ErrCorruptSnapshot struct {
	Source string
	Err    error
}

func (e *ErrCorruptSnapshot) Error() string {
	return fmt.Sprintf("corrupt snapshot %s: %v", e.Source, e.Err)
}

func (e *ErrCorruptSnapshot) Unwrap() error { return e.Err }

// IsCorrupt reports whether err is (or wraps) an *ErrCorruptSnapshot.
func IsCorrupt(err error) bool {
	var ce *ErrCorruptSnapshot
	return errors.As(err, &ce)
}
