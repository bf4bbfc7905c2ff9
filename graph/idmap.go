package graph

// IDBimap maps entities to dense integer ids and back, independently for
// vertices and edges.
//
// An id is the entity's slot index: O(1) both ways, dense over
// [0, HighWater) minus free slots, stable for the entity's lifetime and
// reused after removal. Ids are not stable across sessions; persistence
// re-establishes file-local ids (see package graphio).
type IDBimap struct {
	g *Graph
}

// VertexID returns the id of v.
func (m *IDBimap) VertexID(v *Vertex) int { return int(v.ref.Index) }

// EdgeID returns the id of e.
func (m *IDBimap) EdgeID(e *Edge) int { return int(e.ref.Index) }

// VertexRef returns the current Ref of the vertex with the given id.
func (m *IDBimap) VertexRef(id int) (Ref, bool) {
	if id < 0 || id > int(^uint32(0)>>1) {
		return NilRef, false
	}
	return m.g.vertices.arena.RefAt(int32(id))
}

// EdgeRef returns the current Ref of the edge with the given id.
func (m *IDBimap) EdgeRef(id int) (Ref, bool) {
	if id < 0 || id > int(^uint32(0)>>1) {
		return NilRef, false
	}
	return m.g.edges.arena.RefAt(int32(id))
}

// Vertex binds v (or a new handle when v is nil) to the vertex with the given id.
func (m *IDBimap) Vertex(id int, v *Vertex) (*Vertex, error) {
	ref, ok := m.VertexRef(id)
	if !ok {
		return v, &StaleRefError{Ref: Ref{Index: int32(id)}}
	}
	return m.g.vertices.Resolve(ref, v)
}

// Edge binds e (or a new handle when e is nil) to the edge with the given id.
func (m *IDBimap) Edge(id int, e *Edge) (*Edge, error) {
	ref, ok := m.EdgeRef(id)
	if !ok {
		return e, &StaleRefError{Ref: Ref{Index: int32(id)}}
	}
	return m.g.edges.Resolve(ref, e)
}

// VertexIDBound returns one past the largest vertex id ever assigned.
func (m *IDBimap) VertexIDBound() int { return int(m.g.vertices.arena.HighWater()) }

// EdgeIDBound returns one past the largest edge id ever assigned.
func (m *IDBimap) EdgeIDBound() int { return int(m.g.edges.arena.HighWater()) }
