package graphio

import (
	"errors"
	"fmt"
)

// ErrCorrupt is returned when the input is not a valid raw graph.
var ErrCorrupt = errors.New("graphio: corrupt input")

// LoadError describes where and why reading stopped.
type LoadError struct {
	// Offset is the byte offset at which the problem was detected.
	Offset int64
	Reason string
	// Err is the underlying IO error, if any.
	Err error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("graphio: %s at offset %d: %v", e.Reason, e.Offset, e.Err)
	}
	return fmt.Sprintf("graphio: %s at offset %d", e.Reason, e.Offset)
}

// Is reports ErrCorrupt for every LoadError.
func (e *LoadError) Is(target error) bool { return target == ErrCorrupt }

func (e *LoadError) Unwrap() error { return e.Err }
