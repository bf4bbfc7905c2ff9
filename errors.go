package celltrack

import (
	"errors"
	"fmt"

	"github.com/hupe1980/celltrack/blobstore"
	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/graphio"
	"github.com/hupe1980/celltrack/spatial"
)

var (
	// ErrStaleRef is returned when a Ref no longer resolves.
	ErrStaleRef = graph.ErrStaleRef
	// ErrDimensionMismatch is returned when a position has the wrong length.
	ErrDimensionMismatch = graph.ErrDimensionMismatch
	// ErrNegativeTimepoint is returned for timepoints below zero.
	ErrNegativeTimepoint = graph.ErrNegativeTimepoint
	// ErrCorrupt matches every error caused by malformed saved data.
	ErrCorrupt = graphio.ErrCorrupt
	// ErrNotFound is returned when a saved model does not exist.
	ErrNotFound = errors.New("celltrack: not found")
	// ErrClosed is returned after the model has been closed.
	ErrClosed = errors.New("celltrack: model closed")
)

// LoadError reports a saved model that cannot be loaded: a bad header, a
// truncated or corrupt body, or a checksum mismatch. It matches ErrCorrupt.
type LoadError struct {
	Name   string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("celltrack: load %q: %s: %v", e.Name, e.Reason, e.Err)
	}
	return fmt.Sprintf("celltrack: load %q: %s", e.Name, e.Reason)
}

// Is reports ErrCorrupt.
func (e *LoadError) Is(target error) bool { return target == ErrCorrupt }

func (e *LoadError) Unwrap() error { return e.Err }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Spatial dimension errors share the graph sentinel.
	if errors.Is(err, spatial.ErrDimensionMismatch) && !errors.Is(err, ErrDimensionMismatch) {
		return fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
	}
	if errors.Is(err, spatial.ErrNegativeTimepoint) && !errors.Is(err, ErrNegativeTimepoint) {
		return fmt.Errorf("%w: %w", ErrNegativeTimepoint, err)
	}

	return err
}
