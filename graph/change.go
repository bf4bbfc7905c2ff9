package graph

import (
	"iter"
	"slices"
)

// ChangeKind identifies a structural or positional graph change.
type ChangeKind uint8

const (
	VertexAdded ChangeKind = iota + 1
	VertexRemoved
	VertexMoved
	EdgeAdded
	EdgeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case VertexAdded:
		return "vertex-added"
	case VertexRemoved:
		return "vertex-removed"
	case VertexMoved:
		return "vertex-moved"
	case EdgeAdded:
		return "edge-added"
	case EdgeRemoved:
		return "edge-removed"
	default:
		return "unknown"
	}
}

// IsVertex reports whether the change concerns a vertex.
func (k ChangeKind) IsVertex() bool { return k >= VertexAdded && k <= VertexMoved }

// Change is a value snapshot of one mutation. Vertex changes carry the
// timepoint and position at the time of the change (for removals, the last
// position before removal). Edge changes carry their endpoints.
type Change struct {
	Kind      ChangeKind
	Ref       Ref
	Timepoint int
	Position  []float64
	Source    Ref
	Target    Ref
}

// ChangeSet is an ordered batch of changes.
type ChangeSet struct {
	changes []Change
}

// NewChangeSet returns a change set holding changes in order.
func NewChangeSet(changes ...Change) *ChangeSet {
	return &ChangeSet{changes: changes}
}

// Len returns the number of changes.
func (cs *ChangeSet) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.changes)
}

// At returns the i-th change.
func (cs *ChangeSet) At(i int) Change { return cs.changes[i] }

// All yields the changes in the order they happened.
func (cs *ChangeSet) All() iter.Seq[Change] {
	return func(yield func(Change) bool) {
		if cs == nil {
			return
		}
		for _, c := range cs.changes {
			if !yield(c) {
				return
			}
		}
	}
}

// Count returns the number of changes of the given kind.
func (cs *ChangeSet) Count(kind ChangeKind) int {
	n := 0
	for c := range cs.All() {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Changes returns a copy of the changes.
func (cs *ChangeSet) Changes() []Change {
	if cs == nil {
		return nil
	}
	return slices.Clone(cs.changes)
}

// Listener receives graph changes. GraphChanged runs synchronously on the
// mutating goroutine and must not mutate the graph.
type Listener interface {
	GraphChanged(cs *ChangeSet)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(cs *ChangeSet)

// GraphChanged calls f(cs).
func (f ListenerFunc) GraphChanged(cs *ChangeSet) { f(cs) }

// Tx batches the changes of several mutations into one ChangeSet delivered
// on Commit. Mutations are applied immediately; only notification is
// deferred. There is no rollback.
type Tx struct {
	g    *Graph
	cs   ChangeSet
	done bool
}

// Len returns the number of changes buffered so far.
func (tx *Tx) Len() int { return len(tx.cs.changes) }

// Commit ends the transaction, delivers the buffered changes to all
// listeners as one ChangeSet and returns it.
func (tx *Tx) Commit() (*ChangeSet, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	tx.done = true
	tx.g.tx = nil

	cs := &ChangeSet{changes: tx.cs.changes}
	tx.cs.changes = nil
	if cs.Len() > 0 {
		tx.g.dispatch(cs)
	}
	return cs, nil
}
