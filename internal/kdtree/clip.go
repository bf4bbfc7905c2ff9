package kdtree

import "iter"

// HyperPlane is the half-space {x : dot(Normal, x) >= Distance}.
type HyperPlane struct {
	Normal   []float64
	Distance float64
}

// Inside reports whether pos lies in the half-space.
func (p HyperPlane) Inside(pos []float64) bool {
	var dot float64
	for d, x := range pos {
		dot += p.Normal[d] * x
	}
	return dot >= p.Distance
}

// Range is a half-open range of node indices forming one subtree.
type Range struct {
	Lo, Hi int
}

// ClipResult partitions the nodes of a tree into those inside and outside a
// convex polytope, as individual nodes and as whole subtrees.
type ClipResult struct {
	InNodes     []int
	InSubtrees  []Range
	OutNodes    []int
	OutSubtrees []Range
}

// Inside yields every node index inside the polytope.
func (r *ClipResult) Inside() iter.Seq[int] { return nodes(r.InNodes, r.InSubtrees) }

// Outside yields every node index outside the polytope.
func (r *ClipResult) Outside() iter.Seq[int] { return nodes(r.OutNodes, r.OutSubtrees) }

func nodes(single []int, subtrees []Range) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, i := range single {
			if !yield(i) {
				return
			}
		}
		for _, rg := range subtrees {
			for i := rg.Lo; i < rg.Hi; i++ {
				if !yield(i) {
					return
				}
			}
		}
	}
}

// Clip partitions the tree by the intersection of planes. A node is inside
// when it lies in every half-space. Subtrees whose bounding box is entirely
// on one side are reported without visiting their nodes. Clip returns nil
// if a plane normal does not match the tree dimensionality.
func (t *Tree[T]) Clip(planes []HyperPlane) *ClipResult {
	r := &ClipResult{}
	if t.Len() == 0 {
		return r
	}
	for _, p := range planes {
		if len(p.Normal) != t.n {
			return nil
		}
	}

	c := clipper[T]{
		t:      t,
		planes: planes,
		r:      r,
		min:    append([]float64(nil), t.min...),
		max:    append([]float64(nil), t.max...),
	}
	active := c.activeAt(0)
	for i := range active {
		active[i] = true
	}
	c.clip(0, t.Len(), 0)
	return r
}

type clipper[T any] struct {
	t      *Tree[T]
	planes []HyperPlane
	r      *ClipResult
	// bounding box of the subtree being visited
	min, max []float64
	// active[depth][i] is false once plane i is satisfied by the whole subtree
	active [][]bool
}

func (c *clipper[T]) activeAt(depth int) []bool {
	for len(c.active) <= depth {
		c.active = append(c.active, make([]bool, len(c.planes)))
	}
	return c.active[depth]
}

// boxAbove reports whether the whole bounding box satisfies plane p.
func (c *clipper[T]) boxAbove(p HyperPlane) bool {
	var dot float64
	for d, nd := range p.Normal {
		if nd >= 0 {
			dot += nd * c.min[d]
		} else {
			dot += nd * c.max[d]
		}
	}
	return dot >= p.Distance
}

// boxBelow reports whether no point of the bounding box satisfies plane p.
func (c *clipper[T]) boxBelow(p HyperPlane) bool {
	var dot float64
	for d, nd := range p.Normal {
		if nd >= 0 {
			dot += nd * c.max[d]
		} else {
			dot += nd * c.min[d]
		}
	}
	return dot < p.Distance
}

func (c *clipper[T]) clip(lo, hi, depth int) {
	active := c.activeAt(depth)
	still := c.activeAt(depth + 1)
	anyActive := false
	for i, p := range c.planes {
		still[i] = false
		if !active[i] || c.boxAbove(p) {
			continue
		}
		if c.boxBelow(p) {
			c.r.OutSubtrees = append(c.r.OutSubtrees, Range{Lo: lo, Hi: hi})
			return
		}
		still[i] = true
		anyActive = true
	}
	if !anyActive {
		c.r.InSubtrees = append(c.r.InSubtrees, Range{Lo: lo, Hi: hi})
		return
	}

	mid := (lo + hi) / 2
	pos := c.t.Coords(mid)
	inside := true
	for i, p := range c.planes {
		if still[i] && !p.Inside(pos) {
			inside = false
			break
		}
	}
	if inside {
		c.r.InNodes = append(c.r.InNodes, mid)
	} else {
		c.r.OutNodes = append(c.r.OutNodes, mid)
	}

	d := depth % c.t.n
	split := pos[d]
	if lo < mid {
		saved := c.max[d]
		c.max[d] = split
		c.clip(lo, mid, depth+1)
		c.max[d] = saved
	}
	if mid+1 < hi {
		saved := c.min[d]
		c.min[d] = split
		c.clip(mid+1, hi, depth+1)
		c.min[d] = saved
	}
}
