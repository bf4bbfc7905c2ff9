package spatial

import (
	"fmt"
	"iter"
	"slices"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/internal/kdtree"
)

// NearestNeighborSearch answers nearest-neighbor queries against one
// immutable snapshot. It stays consistent however the index changes after
// it was created.
type NearestNeighborSearch struct {
	data *IndexData
}

// Search returns the indexed vertex closest to pos. A position of the wrong
// dimensionality, like an empty index, yields a result with Found == false.
func (s *NearestNeighborSearch) Search(pos []float64) Result {
	if len(pos) != s.data.dims {
		return notFound()
	}
	return s.data.nearest(pos)
}

// HyperPlane is the half-space {x : dot(Normal, x) >= Distance}.
type HyperPlane = kdtree.HyperPlane

// ConvexPolytope is the intersection of a set of half-spaces.
type ConvexPolytope struct {
	Planes []HyperPlane
}

// NewConvexPolytope returns the polytope bounded by planes.
func NewConvexPolytope(planes ...HyperPlane) ConvexPolytope {
	return ConvexPolytope{Planes: planes}
}

// Contains reports whether pos lies inside every half-space.
func (p ConvexPolytope) Contains(pos []float64) bool {
	for _, pl := range p.Planes {
		if !pl.Inside(pos) {
			return false
		}
	}
	return true
}

// ClipConvexPolytope partitions the vertices of one snapshot into those
// inside and outside a convex polytope.
type ClipConvexPolytope struct {
	data     *IndexData
	res      *kdtree.ClipResult
	addedIn  []graph.Ref
	addedOut []graph.Ref
	clipped  bool
}

// Clip classifies the snapshot against polytope. Tree nodes are clipped by
// subtree bounding boxes; members of the overflow set are tested plane by
// plane. A previous result is discarded.
func (c *ClipConvexPolytope) Clip(polytope ConvexPolytope) error {
	for _, pl := range polytope.Planes {
		if len(pl.Normal) != c.data.dims {
			return fmt.Errorf("%w: plane normal has %d coordinates, want %d", ErrDimensionMismatch, len(pl.Normal), c.data.dims)
		}
	}

	c.res = c.data.tree.Clip(polytope.Planes)
	c.addedIn, c.addedOut = c.addedIn[:0], c.addedOut[:0]
	c.data.added.Scan(func(_ int32, e entry) bool {
		if polytope.Contains(e.pos) {
			c.addedIn = append(c.addedIn, e.ref)
		} else {
			c.addedOut = append(c.addedOut, e.ref)
		}
		return true
	})
	c.clipped = true
	return nil
}

// Inside yields the vertices inside the polytope.
func (c *ClipConvexPolytope) Inside() iter.Seq[graph.Ref] {
	if !c.clipped {
		return func(func(graph.Ref) bool) {}
	}
	return c.values(c.res.Inside(), c.addedIn)
}

// Outside yields the vertices outside the polytope.
func (c *ClipConvexPolytope) Outside() iter.Seq[graph.Ref] {
	if !c.clipped {
		return func(func(graph.Ref) bool) {}
	}
	return c.values(c.res.Outside(), c.addedOut)
}

// InsideRefs collects Inside into a slice.
func (c *ClipConvexPolytope) InsideRefs() []graph.Ref { return slices.Collect(c.Inside()) }

// OutsideRefs collects Outside into a slice.
func (c *ClipConvexPolytope) OutsideRefs() []graph.Ref { return slices.Collect(c.Outside()) }

func (c *ClipConvexPolytope) values(nodes iter.Seq[int], added []graph.Ref) iter.Seq[graph.Ref] {
	return func(yield func(graph.Ref) bool) {
		for n := range nodes {
			if c.data.validNode(n) && !yield(c.data.tree.Value(n)) {
				return
			}
		}
		for _, ref := range added {
			if !yield(ref) {
				return
			}
		}
	}
}
