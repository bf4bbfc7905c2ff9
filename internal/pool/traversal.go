// Package pool provides reusable scratch state for graph traversals.
// Uses sync.Pool for memory reuse and bitsets for visited tracking.
package pool

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

const (
	// DefaultMaxVertices is the initial capacity of the visited bitsets.
	DefaultMaxVertices = 1 << 16

	// DefaultQueueCapacity is the initial capacity of the work queue.
	DefaultQueueCapacity = 256
)

// Traversal holds the buffers of one graph traversal. All fields are reused
// across traversals.
type Traversal struct {
	// Visited marks slot indices that have been reached.
	Visited *bitset.BitSet
	// Finished marks slot indices whose descendants are complete.
	Finished *bitset.BitSet
	// Queue is a FIFO or LIFO work list, at the caller's choice.
	Queue []int32
	// Counts holds per-vertex counters such as remaining in-degrees.
	Counts []int32

	maxVertices uint
}

var traversalPool = sync.Pool{
	New: func() any {
		return &Traversal{
			Visited:     bitset.New(DefaultMaxVertices),
			Finished:    bitset.New(DefaultMaxVertices),
			Queue:       make([]int32, 0, DefaultQueueCapacity),
			maxVertices: DefaultMaxVertices,
		}
	},
}

// Get retrieves a cleared Traversal sized for slot indices below n.
func Get(n int) *Traversal {
	t := traversalPool.Get().(*Traversal)
	t.Reset()
	t.EnsureCapacity(n)
	return t
}

// Put returns t to the pool. Oversized buffers are dropped.
func Put(t *Traversal) {
	if t.maxVertices > DefaultMaxVertices*64 {
		t.Visited = bitset.New(DefaultMaxVertices)
		t.Finished = bitset.New(DefaultMaxVertices)
		t.Counts = nil
		t.maxVertices = DefaultMaxVertices
	}
	traversalPool.Put(t)
}

// Reset clears t for reuse.
func (t *Traversal) Reset() {
	t.Visited.ClearAll()
	t.Finished.ClearAll()
	t.Queue = t.Queue[:0]
	t.Counts = t.Counts[:0]
}

// EnsureCapacity grows the buffers to track slot indices below n.
func (t *Traversal) EnsureCapacity(n int) {
	if n <= 0 {
		return
	}
	if un := uint(n); un > t.maxVertices {
		t.maxVertices = max(un, t.maxVertices*2)
	}
	old := len(t.Counts)
	switch {
	case old >= n:
	case cap(t.Counts) >= n:
		t.Counts = t.Counts[:n]
		clear(t.Counts[old:])
	default:
		counts := make([]int32, n)
		copy(counts, t.Counts)
		t.Counts = counts
	}
}

// MarkVisited marks idx as visited. It returns true if idx was already
// visited.
func (t *Traversal) MarkVisited(idx int32) bool {
	i := uint(idx)
	if t.Visited.Test(i) {
		return true
	}
	t.Visited.Set(i)
	return false
}

// IsVisited reports whether idx has been visited.
func (t *Traversal) IsVisited(idx int32) bool { return t.Visited.Test(uint(idx)) }

// MarkFinished marks idx as finished.
func (t *Traversal) MarkFinished(idx int32) { t.Finished.Set(uint(idx)) }

// IsFinished reports whether idx has been finished.
func (t *Traversal) IsFinished(idx int32) bool { return t.Finished.Test(uint(idx)) }

// Push appends idx to the queue.
func (t *Traversal) Push(idx int32) { t.Queue = append(t.Queue, idx) }

// TraversalStats describes a Traversal's buffers.
type TraversalStats struct {
	Capacity      uint
	VisitedCount  uint
	FinishedCount uint
	QueueLen      int
}

// Stats returns statistics about t.
func (t *Traversal) Stats() TraversalStats {
	return TraversalStats{
		Capacity:      t.maxVertices,
		VisitedCount:  t.Visited.Count(),
		FinishedCount: t.Finished.Count(),
		QueueLen:      len(t.Queue),
	}
}
