package graph

import (
	"errors"
	"fmt"

	"github.com/hupe1980/celltrack/internal/arena"
)

var (
	// ErrStaleRef is returned when a handle or Ref points at a removed entity.
	ErrStaleRef = arena.ErrStaleRef
	// ErrClosed is returned after the graph has been closed.
	ErrClosed = arena.ErrClosed
	// ErrDimensionMismatch is returned when a position has the wrong length.
	ErrDimensionMismatch = errors.New("graph: dimension mismatch")
	// ErrNegativeTimepoint is returned when a vertex is added with t < 0.
	ErrNegativeTimepoint = errors.New("graph: negative timepoint")
	// ErrTxInProgress is returned by Begin while another transaction is open.
	ErrTxInProgress = errors.New("graph: transaction already in progress")
	// ErrTxDone is returned when committing a finished transaction.
	ErrTxDone = errors.New("graph: transaction already committed")
	// ErrUnboundHandle is returned when a handle was never bound to an entity.
	ErrUnboundHandle = errors.New("graph: unbound handle")
	// ErrForeignHandle is returned when a handle belongs to another graph.
	ErrForeignHandle = errors.New("graph: handle belongs to another graph")
)

// StaleRefError describes a Ref that no longer resolves.
type StaleRefError = arena.StaleRefError

// DimensionError reports a position whose length differs from the graph's
// dimensionality.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("graph: position has %d dimensions, want %d", e.Got, e.Want)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }
