// Package graph implements a directed graph whose vertices and edges are
// stored in generational slot arenas and accessed through flyweight handles.
//
// # Handles
//
// A *Vertex or *Edge is a repositionable cursor, not an owner. Handles come
// from a pool's handle free-list (CreateRef) and go back with ReleaseRef.
// Any number of handles may alias one entity. Each handle carries the
// generation of the slot it was bound to, so once the entity is removed
// every operation through the handle fails with ErrStaleRef, even after the
// slot has been reused.
//
//	g, _ := graph.New(graph.WithDimensions(3))
//	a, _ := g.AddVertex(0, []float64{0, 0, 0})
//	b, _ := g.AddVertex(1, []float64{1, 0, 0})
//	e, _ := g.AddEdge(a, b)
//	defer g.ReleaseEdgeRef(e)
//
// # Changes
//
// Every mutation produces Change values delivered to registered listeners.
// Outside a transaction each mutation is delivered at once (Remove delivers
// its cascade as one set). Inside Begin/Commit the changes accumulate and
// are delivered together on Commit.
//
// # Concurrency
//
// A Graph has one writer. Handles are not safe for concurrent use.
package graph
