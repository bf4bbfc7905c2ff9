package spatial

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidwall/btree"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/celltrack/graph"
)

// SpatioTemporalIndex keeps one Index per timepoint, created on first use.
// Registered as a graph listener it follows vertex additions, moves and
// removals.
type SpatioTemporalIndex struct {
	dims int
	opts []Option
	o    options

	mu      sync.RWMutex
	indices btree.Map[int, *Index]
}

// NewSpatioTemporalIndex creates an empty index for positions with dims
// coordinates.
func NewSpatioTemporalIndex(dims int, opts ...Option) *SpatioTemporalIndex {
	return &SpatioTemporalIndex{
		dims: dims,
		opts: opts,
		o:    applyOptions(opts),
	}
}

// Dimensions returns the number of coordinates per position.
func (s *SpatioTemporalIndex) Dimensions() int { return s.dims }

// Index returns the index of timepoint t, creating it if needed.
func (s *SpatioTemporalIndex) Index(t int) (*Index, error) {
	if t < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeTimepoint, t)
	}
	if x, ok := s.Lookup(t); ok {
		return x, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if x, ok := s.indices.Get(t); ok {
		return x, nil
	}
	x := NewIndex(t, s.dims, s.opts...)
	s.indices.Set(t, x)
	return x, nil
}

// Lookup returns the index of timepoint t without creating it.
func (s *SpatioTemporalIndex) Lookup(t int) (*Index, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indices.Get(t)
}

// Timepoints returns the timepoints that have an index, ascending.
func (s *SpatioTemporalIndex) Timepoints() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indices.Keys()
}

func (s *SpatioTemporalIndex) snapshot() []*Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indices.Values()
}

// Add indexes ref at timepoint t.
func (s *SpatioTemporalIndex) Add(ref graph.Ref, t int, pos []float64) error {
	x, err := s.Index(t)
	if err != nil {
		return err
	}
	return x.Add(ref, pos)
}

// Remove drops ref from timepoint t.
func (s *SpatioTemporalIndex) Remove(ref graph.Ref, t int) bool {
	x, ok := s.Lookup(t)
	return ok && x.Remove(ref)
}

// Size returns the number of indexed vertices across all timepoints.
func (s *SpatioTemporalIndex) Size() int {
	n := 0
	for _, x := range s.snapshot() {
		n += x.Size()
	}
	return n
}

// ModCount returns the pending modifications across all timepoints.
func (s *SpatioTemporalIndex) ModCount() int {
	n := 0
	for _, x := range s.snapshot() {
		n += x.ModCount()
	}
	return n
}

// Contains reports whether ref is indexed at timepoint t.
func (s *SpatioTemporalIndex) Contains(ref graph.Ref, t int) bool {
	x, ok := s.Lookup(t)
	return ok && x.Contains(ref)
}

// NearestNeighbor searches timepoint t. A timepoint without an index yields
// a result with Found == false.
func (s *SpatioTemporalIndex) NearestNeighbor(t int, pos []float64) Result {
	x, ok := s.Lookup(t)
	if !ok {
		return notFound()
	}
	return x.NearestNeighbor(pos)
}

// Clip partitions timepoint t by polytope. A timepoint without an index
// is not created; it yields an empty result.
func (s *SpatioTemporalIndex) Clip(t int, polytope ConvexPolytope) (*ClipConvexPolytope, error) {
	c := &ClipConvexPolytope{data: emptyIndexData(s.dims)}
	if x, ok := s.Lookup(t); ok {
		c = x.ClipConvexPolytope()
	}
	if err := c.Clip(polytope); err != nil {
		return nil, err
	}
	return c, nil
}

// GraphChanged applies vertex changes to the per-timepoint indices. Edge
// changes are ignored.
func (s *SpatioTemporalIndex) GraphChanged(cs *graph.ChangeSet) {
	for c := range cs.All() {
		switch c.Kind {
		case graph.VertexAdded, graph.VertexMoved:
			if err := s.Add(c.Ref, c.Timepoint, c.Position); err != nil {
				s.o.logger.Warn("spatial index update failed",
					slog.String("change", c.Kind.String()),
					slog.String("ref", c.Ref.String()),
					slog.Any("error", err),
				)
			}
		case graph.VertexRemoved:
			s.Remove(c.Ref, c.Timepoint)
		}
	}
}

// Attach indexes the live vertices of g and subscribes to its changes.
// The returned function unsubscribes.
func (s *SpatioTemporalIndex) Attach(g *graph.Graph) (detach func(), err error) {
	if g.Dimensions() != s.dims {
		return nil, fmt.Errorf("%w: graph has %d dimensions, index %d", ErrDimensionMismatch, g.Dimensions(), s.dims)
	}
	pos := make([]float64, 0, s.dims)
	for v := range g.Vertices().All() {
		pos = v.Position(pos[:0])
		if err := s.Add(v.Ref(), v.Timepoint(), pos); err != nil {
			return nil, err
		}
	}
	return g.AddListener(s), nil
}

// RebuildIfNeeded rebuilds every index whose ModCount exceeds threshold and
// returns how many were rebuilt.
func (s *SpatioTemporalIndex) RebuildIfNeeded(ctx context.Context, threshold int) (int, error) {
	var stale []*Index
	for _, x := range s.snapshot() {
		if x.ModCount() > threshold {
			stale = append(stale, x)
		}
	}
	return len(stale), s.rebuild(ctx, stale)
}

// RebuildAll rebuilds every index with pending modifications.
func (s *SpatioTemporalIndex) RebuildAll(ctx context.Context) error {
	_, err := s.RebuildIfNeeded(ctx, 0)
	return err
}

func (s *SpatioTemporalIndex) rebuild(ctx context.Context, indices []*Index) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, x := range indices {
		if err := s.acquire(ctx); err != nil {
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		g.Go(func() error {
			defer s.o.rc.ReleaseBackground()
			return x.Rebuild()
		})
	}
	return g.Wait()
}

func (s *SpatioTemporalIndex) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.o.rc.AcquireBackground(ctx)
}
