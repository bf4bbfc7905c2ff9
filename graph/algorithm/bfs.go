package algorithm

import (
	"iter"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/internal/pool"
)

// Direction selects which edges a traversal follows.
type Direction uint8

const (
	// Directed follows outgoing edges, from parent to child.
	Directed Direction = iota
	// Reversed follows incoming edges, from child to parent.
	Reversed
	// Undirected follows both.
	Undirected
)

func (d Direction) String() string {
	switch d {
	case Directed:
		return "directed"
	case Reversed:
		return "reversed"
	case Undirected:
		return "undirected"
	default:
		return "unknown"
	}
}

// BreadthFirst yields the vertices reachable from start in breadth-first
// order, each with its distance in edges from start. Neighbors are visited
// in adjacency order. A stale start yields nothing.
func BreadthFirst(g *graph.Graph, start graph.Ref, dir Direction) iter.Seq2[graph.Ref, int] {
	return func(yield func(graph.Ref, int) bool) {
		ids := g.IDBimap()
		v, err := g.Vertices().Resolve(start, nil)
		if err != nil {
			return
		}
		defer g.ReleaseVertexRef(v)

		tr := pool.Get(ids.VertexIDBound())
		defer pool.Put(tr)

		tr.MarkVisited(start.Index)
		tr.Push(start.Index)
		for head := 0; head < len(tr.Queue); head++ {
			idx := tr.Queue[head]
			depth := int(tr.Counts[idx])
			ref, _ := ids.VertexRef(int(idx))
			if !yield(ref, depth) {
				return
			}
			if _, err := g.Vertices().ByIndex(idx, v); err != nil {
				return
			}
			visit := func(n int32) {
				if !tr.MarkVisited(n) {
					tr.Counts[n] = int32(depth + 1)
					tr.Push(n)
				}
			}
			if dir != Reversed {
				for e := range v.OutgoingEdges().All() {
					visit(e.TargetIndex())
				}
			}
			if dir != Directed {
				for e := range v.IncomingEdges().All() {
					visit(e.SourceIndex())
				}
			}
		}
	}
}

// Descendants returns the vertices reachable from start along outgoing
// edges, excluding start itself.
func Descendants(g *graph.Graph, start graph.Ref) []graph.Ref {
	var out []graph.Ref
	for ref, depth := range BreadthFirst(g, start, Directed) {
		if depth > 0 {
			out = append(out, ref)
		}
	}
	return out
}

// Track returns the vertices connected to start by edges in either
// direction, start included.
func Track(g *graph.Graph, start graph.Ref) []graph.Ref {
	var out []graph.Ref
	for ref := range BreadthFirst(g, start, Undirected) {
		out = append(out, ref)
	}
	return out
}
