package spatial

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/celltrack/graph"
)

var (
	// ErrDimensionMismatch is returned when a position or plane normal has
	// the wrong number of coordinates.
	ErrDimensionMismatch = errors.New("spatial: dimension mismatch")
	// ErrNegativeTimepoint is returned for timepoints below zero.
	ErrNegativeTimepoint = errors.New("spatial: negative timepoint")
)

// Observer is notified after each rebuild.
type Observer interface {
	OnRebuild(timepoint, size int, took time.Duration)
}

// Index is the spatial index of one timepoint.
//
// Add and Remove take the write lock and publish a new IndexData. Rebuild
// takes the read lock while it builds a new KD-tree from the current
// contents, then publishes it by pointer swap. Queries take no lock at all:
// they run against the IndexData current when they start, which never
// changes underneath them.
type Index struct {
	timepoint int
	mu        sync.RWMutex
	data      atomic.Pointer[IndexData]
	rebuilds  singleflight.Group
	logger    *slog.Logger
	observer  Observer
}

// NewIndex creates an empty index for timepoint t.
func NewIndex(t, dims int, opts ...Option) *Index {
	o := applyOptions(opts)
	x := &Index{
		timepoint: t,
		logger:    o.logger.With(slog.Int("timepoint", t)),
		observer:  o.observer,
	}
	x.data.Store(emptyIndexData(dims))
	return x
}

// Timepoint returns the timepoint this index covers.
func (x *Index) Timepoint() int { return x.timepoint }

// Snapshot returns the current immutable state.
func (x *Index) Snapshot() *IndexData { return x.data.Load() }

// Size returns the number of indexed vertices.
func (x *Index) Size() int { return x.Snapshot().Size() }

// ModCount returns the number of pending modifications since the last
// rebuild. Moving a vertex that is a valid tree node counts twice.
func (x *Index) ModCount() int { return x.Snapshot().ModCount() }

// Contains reports whether ref is indexed.
func (x *Index) Contains(ref graph.Ref) bool { return x.Snapshot().Contains(ref) }

// All yields the indexed vertices and positions of the current snapshot.
func (x *Index) All() iter.Seq2[graph.Ref, []float64] { return x.Snapshot().All() }

// Add indexes ref at pos, replacing any previous entry for the same vertex.
func (x *Index) Add(ref graph.Ref, pos []float64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	cur := x.data.Load()
	if len(pos) != cur.dims {
		return fmt.Errorf("%w: got %d coordinates, want %d", ErrDimensionMismatch, len(pos), cur.dims)
	}
	x.data.Store(cur.withAdd(ref, pos))
	return nil
}

// Remove drops ref from the index. It reports whether ref was indexed;
// removing an absent vertex is a no-op.
func (x *Index) Remove(ref graph.Ref) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	next, ok := x.data.Load().withRemove(ref)
	if ok {
		x.data.Store(next)
	}
	return ok
}

// Rebuild builds a new KD-tree from the current contents and publishes it.
// Concurrent calls share one build.
func (x *Index) Rebuild() error {
	_, err, _ := x.rebuilds.Do(strconv.Itoa(x.timepoint), func() (any, error) {
		return nil, x.rebuild()
	})
	return err
}

func (x *Index) rebuild() error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	start := time.Now()
	cur := x.data.Load()
	next, err := buildIndexData(cur)
	if err != nil {
		return err
	}
	// Writers are excluded by the read lock, so cur is still current.
	x.data.Store(next)

	took := time.Since(start)
	x.logger.Debug("spatial index rebuilt",
		slog.Int("size", next.Size()),
		slog.Int("mod_count", cur.ModCount()),
		slog.Duration("took", took),
	)
	if x.observer != nil {
		x.observer.OnRebuild(x.timepoint, next.Size(), took)
	}
	return nil
}

// NearestNeighbor returns the indexed vertex closest to pos.
func (x *Index) NearestNeighbor(pos []float64) Result {
	return x.NearestNeighborSearch().Search(pos)
}

// NearestNeighborSearch returns a search helper bound to the current
// snapshot.
func (x *Index) NearestNeighborSearch() *NearestNeighborSearch {
	return &NearestNeighborSearch{data: x.Snapshot()}
}

// ClipConvexPolytope returns a clip helper bound to the current snapshot.
func (x *Index) ClipConvexPolytope() *ClipConvexPolytope {
	return &ClipConvexPolytope{data: x.Snapshot()}
}

// Clip partitions the indexed vertices by polytope.
func (x *Index) Clip(polytope ConvexPolytope) (*ClipConvexPolytope, error) {
	c := x.ClipConvexPolytope()
	if err := c.Clip(polytope); err != nil {
		return nil, err
	}
	return c, nil
}
