package algorithm

import (
	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/internal/pool"
)

// TopologicalOrder is the outcome of TopologicalSort.
type TopologicalOrder struct {
	order  []graph.Ref
	failed bool
}

// Failed reports whether the graph contains a cycle. The order of a failed
// sort is still complete but violates at least one edge.
func (o *TopologicalOrder) Failed() bool { return o.failed }

// Order returns the sorted vertices. For every edge source→target, target
// precedes source unless the sort failed.
func (o *TopologicalOrder) Order() []graph.Ref { return o.order }

// Len returns the number of sorted vertices.
func (o *TopologicalOrder) Len() int { return len(o.order) }

// TopologicalSort orders the vertices of g by depth-first search along
// outgoing edges, emitting each vertex after all of its successors. A cycle
// does not stop the sort; it sets Failed.
func TopologicalSort(g *graph.Graph) *TopologicalOrder {
	ids := g.IDBimap()
	tr := pool.Get(ids.VertexIDBound())
	defer pool.Put(tr)

	res := &TopologicalOrder{order: make([]graph.Ref, 0, g.Vertices().Len())}

	v := g.VertexRef()
	defer g.ReleaseVertexRef(v)

	for root := range g.Vertices().Refs() {
		if tr.IsVisited(root.Index) {
			continue
		}
		tr.Push(root.Index)
		for len(tr.Queue) > 0 {
			x := tr.Queue[len(tr.Queue)-1]
			tr.Queue = tr.Queue[:len(tr.Queue)-1]

			// Negative entries mark the exit of a vertex.
			if x < 0 {
				idx := ^x
				tr.MarkFinished(idx)
				ref, _ := ids.VertexRef(int(idx))
				res.order = append(res.order, ref)
				continue
			}
			if tr.MarkVisited(x) {
				continue
			}
			tr.Push(^x)

			if _, err := g.Vertices().ByIndex(x, v); err != nil {
				continue
			}
			for e := range v.OutgoingEdges().All() {
				t := e.TargetIndex()
				switch {
				case !tr.IsVisited(t):
					tr.Push(t)
				case !tr.IsFinished(t):
					res.failed = true
				}
			}
		}
	}
	return res
}
