package spatial

import (
	"iter"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/tidwall/btree"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/internal/kdtree"
	"github.com/hupe1980/celltrack/metric"
)

type entry struct {
	ref graph.Ref
	pos []float64
}

// IndexData is one immutable state of a per-timepoint index: a KD-tree
// snapshot, the tree nodes invalidated since it was built, and the "added"
// overflow set of vertices inserted after it was built.
//
//	Size     = valid tree nodes + |added|
//	ModCount = invalid tree nodes + |added|
//
// Every mutation produces a new IndexData; existing values are never
// modified, so any number of goroutines may query one concurrently.
type IndexData struct {
	dims    int
	tree    *kdtree.Tree[graph.Ref]
	nodeOf  map[int32]int // slot index -> tree node, shared between versions
	invalid *roaring.Bitmap
	added   *btree.Map[int32, entry]
}

func emptyIndexData(dims int) *IndexData {
	tree, _ := kdtree.Build[graph.Ref](dims, nil)
	return &IndexData{
		dims:    dims,
		tree:    tree,
		nodeOf:  map[int32]int{},
		invalid: roaring.New(),
		added:   &btree.Map[int32, entry]{},
	}
}

// buildIndexData builds a fresh snapshot from the current contents of d.
func buildIndexData(d *IndexData) (*IndexData, error) {
	points := make([]kdtree.Point[graph.Ref], 0, d.Size())
	for ref, pos := range d.All() {
		points = append(points, kdtree.Point[graph.Ref]{Pos: pos, Value: ref})
	}
	tree, err := kdtree.Build(d.dims, points)
	if err != nil {
		return nil, err
	}
	nodeOf := make(map[int32]int, tree.Len())
	for i := range tree.Len() {
		nodeOf[tree.Value(i).Index] = i
	}
	return &IndexData{
		dims:    d.dims,
		tree:    tree,
		nodeOf:  nodeOf,
		invalid: roaring.New(),
		added:   &btree.Map[int32, entry]{},
	}, nil
}

// Dimensions returns the number of coordinates per position.
func (d *IndexData) Dimensions() int { return d.dims }

// Size returns the number of indexed vertices.
func (d *IndexData) Size() int {
	return d.tree.Len() - int(d.invalid.GetCardinality()) + d.added.Len()
}

// ModCount returns the number of pending invalidations and additions since
// the snapshot was built.
func (d *IndexData) ModCount() int {
	return int(d.invalid.GetCardinality()) + d.added.Len()
}

// TreeSize returns the number of nodes in the KD-tree, valid or not.
func (d *IndexData) TreeSize() int { return d.tree.Len() }

// AddedSize returns the size of the overflow set.
func (d *IndexData) AddedSize() int { return d.added.Len() }

func (d *IndexData) validNode(node int) bool {
	return !d.invalid.Contains(uint32(node))
}

// Contains reports whether ref is indexed.
func (d *IndexData) Contains(ref graph.Ref) bool {
	if e, ok := d.added.Get(ref.Index); ok {
		return e.ref == ref
	}
	node, ok := d.nodeOf[ref.Index]
	return ok && d.tree.Value(node) == ref && d.validNode(node)
}

// Position returns the indexed position of ref.
func (d *IndexData) Position(ref graph.Ref) ([]float64, bool) {
	if e, ok := d.added.Get(ref.Index); ok && e.ref == ref {
		return e.pos, true
	}
	if node, ok := d.nodeOf[ref.Index]; ok && d.tree.Value(node) == ref && d.validNode(node) {
		return d.tree.Coords(node), true
	}
	return nil, false
}

// All yields every indexed vertex with its position: valid tree nodes in
// tree order, then the overflow set in slot order. Positions must not be
// modified.
func (d *IndexData) All() iter.Seq2[graph.Ref, []float64] {
	return func(yield func(graph.Ref, []float64) bool) {
		for i := range d.tree.Len() {
			if d.validNode(i) && !yield(d.tree.Value(i), d.tree.Coords(i)) {
				return
			}
		}
		d.added.Scan(func(_ int32, e entry) bool {
			return yield(e.ref, e.pos)
		})
	}
}

// withAdd returns a copy of d in which ref is indexed at pos. An existing
// tree node for the same slot is invalidated.
func (d *IndexData) withAdd(ref graph.Ref, pos []float64) *IndexData {
	next := *d
	if node, ok := d.nodeOf[ref.Index]; ok && d.validNode(node) {
		next.invalid = d.invalid.Clone()
		next.invalid.Add(uint32(node))
	}
	next.added = d.added.Copy()
	next.added.Set(ref.Index, entry{ref: ref, pos: append([]float64(nil), pos...)})
	return &next
}

// withRemove returns a copy of d without ref, or d itself and false if ref
// is not indexed.
func (d *IndexData) withRemove(ref graph.Ref) (*IndexData, bool) {
	if node, ok := d.nodeOf[ref.Index]; ok && d.tree.Value(node) == ref && d.validNode(node) {
		next := *d
		next.invalid = d.invalid.Clone()
		next.invalid.Add(uint32(node))
		return &next, true
	}
	if e, ok := d.added.Get(ref.Index); ok && e.ref == ref {
		next := *d
		next.added = d.added.Copy()
		next.added.Delete(ref.Index)
		return &next, true
	}
	return d, false
}

// Result is the outcome of a nearest-neighbor search. An empty index yields
// Found == false, a nil Ref and a NaN distance.
type Result struct {
	Ref            graph.Ref
	Position       []float64
	SquareDistance float64
	Found          bool
}

// Distance returns the euclidean distance, NaN when nothing was found.
func (r Result) Distance() float64 { return math.Sqrt(r.SquareDistance) }

func notFound() Result {
	return Result{Ref: graph.NilRef, SquareDistance: math.NaN()}
}

// nearest searches the frozen tree, then scans the overflow set linearly
// and keeps whichever candidate is closer.
func (d *IndexData) nearest(q []float64) Result {
	res := notFound()
	node, dist := d.tree.Nearest(q, func(n int) bool { return !d.validNode(n) })
	if node >= 0 {
		res = Result{Ref: d.tree.Value(node), Position: d.tree.Coords(node), SquareDistance: dist, Found: true}
	}
	d.added.Scan(func(_ int32, e entry) bool {
		if dist := metric.SquaredL2(e.pos, q); !res.Found || dist < res.SquareDistance {
			res = Result{Ref: e.ref, Position: e.pos, SquareDistance: dist, Found: true}
		}
		return true
	})
	return res
}
