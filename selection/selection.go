// Package selection tracks which vertices and edges of a graph are
// selected. Selections are roaring bitmaps keyed by graph ids and follow
// the graph: removing an entity deselects it.
package selection

import (
	"errors"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/graph/algorithm"
)

// ErrStaleRef is returned when selecting an entity that no longer exists.
var ErrStaleRef = graph.ErrStaleRef

// Listener is notified after the selection changed.
type Listener interface {
	SelectionChanged()
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func()

// SelectionChanged calls f.
func (f ListenerFunc) SelectionChanged() { f() }

type listenerEntry struct {
	id int
	l  Listener
}

// Model is the selection of one graph. It is safe for concurrent use, but
// the graph itself follows the single-writer rule.
type Model struct {
	g      *graph.Graph
	detach func()

	mu       sync.RWMutex
	vertices *roaring.Bitmap
	edges    *roaring.Bitmap

	lmu       sync.Mutex
	listeners []listenerEntry
	nextID    int
}

// New creates an empty selection following g. Close detaches it.
func New(g *graph.Graph) *Model {
	m := &Model{
		g:        g,
		vertices: roaring.New(),
		edges:    roaring.New(),
	}
	m.detach = g.AddListener(graph.ListenerFunc(m.graphChanged))
	return m
}

// Close stops following the graph.
func (m *Model) Close() {
	if m.detach != nil {
		m.detach()
		m.detach = nil
	}
}

// AddListener registers l and returns a function that removes it.
func (m *Model) AddListener(l Listener) (remove func()) {
	m.lmu.Lock()
	defer m.lmu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listenerEntry{id: id, l: l})
	return func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()
		for i, e := range m.listeners {
			if e.id == id {
				m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

func (m *Model) notify(changed bool) {
	if !changed {
		return
	}
	m.lmu.Lock()
	ls := make([]Listener, len(m.listeners))
	for i, e := range m.listeners {
		ls[i] = e.l
	}
	m.lmu.Unlock()
	for _, l := range ls {
		l.SelectionChanged()
	}
}

func (m *Model) vertexLive(ref graph.Ref) bool {
	cur, ok := m.g.IDBimap().VertexRef(int(ref.Index))
	return ok && cur == ref
}

func (m *Model) edgeLive(ref graph.Ref) bool {
	cur, ok := m.g.IDBimap().EdgeRef(int(ref.Index))
	return ok && cur == ref
}

func set(b *roaring.Bitmap, idx int32, selected bool) bool {
	if selected {
		return b.CheckedAdd(uint32(idx))
	}
	return b.CheckedRemove(uint32(idx))
}

// SetVertexSelected selects or deselects a vertex.
func (m *Model) SetVertexSelected(ref graph.Ref, selected bool) error {
	if !m.vertexLive(ref) {
		return &graph.StaleRefError{Ref: ref}
	}
	m.mu.Lock()
	changed := set(m.vertices, ref.Index, selected)
	m.mu.Unlock()
	m.notify(changed)
	return nil
}

// SetEdgeSelected selects or deselects an edge.
func (m *Model) SetEdgeSelected(ref graph.Ref, selected bool) error {
	if !m.edgeLive(ref) {
		return &graph.StaleRefError{Ref: ref}
	}
	m.mu.Lock()
	changed := set(m.edges, ref.Index, selected)
	m.mu.Unlock()
	m.notify(changed)
	return nil
}

// ToggleVertex flips the selection state of a vertex.
func (m *Model) ToggleVertex(ref graph.Ref) error {
	return m.SetVertexSelected(ref, !m.IsVertexSelected(ref))
}

// ToggleEdge flips the selection state of an edge.
func (m *Model) ToggleEdge(ref graph.Ref) error {
	return m.SetEdgeSelected(ref, !m.IsEdgeSelected(ref))
}

// SelectVertices selects all refs with a single notification. Stale refs
// are skipped and reported together.
func (m *Model) SelectVertices(refs ...graph.Ref) error {
	var errs []error
	changed := false
	m.mu.Lock()
	for _, ref := range refs {
		if !m.vertexLive(ref) {
			errs = append(errs, &graph.StaleRefError{Ref: ref})
			continue
		}
		changed = set(m.vertices, ref.Index, true) || changed
	}
	m.mu.Unlock()
	m.notify(changed)
	return errors.Join(errs...)
}

// SelectTrack selects every vertex and edge connected to start.
func (m *Model) SelectTrack(start graph.Ref) error {
	if !m.vertexLive(start) {
		return &graph.StaleRefError{Ref: start}
	}
	v := m.g.VertexRef()
	defer m.g.ReleaseVertexRef(v)

	changed := false
	m.mu.Lock()
	for ref := range algorithm.BreadthFirst(m.g, start, algorithm.Undirected) {
		changed = set(m.vertices, ref.Index, true) || changed
		if _, err := m.g.Vertices().Resolve(ref, v); err != nil {
			continue
		}
		for e := range v.OutgoingEdges().All() {
			changed = set(m.edges, e.Index(), true) || changed
		}
	}
	m.mu.Unlock()
	m.notify(changed)
	return nil
}

// Clear deselects everything.
func (m *Model) Clear() {
	m.mu.Lock()
	changed := !m.vertices.IsEmpty() || !m.edges.IsEmpty()
	m.vertices.Clear()
	m.edges.Clear()
	m.mu.Unlock()
	m.notify(changed)
}

// IsVertexSelected reports whether ref is selected.
func (m *Model) IsVertexSelected(ref graph.Ref) bool {
	if !m.vertexLive(ref) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vertices.Contains(uint32(ref.Index))
}

// IsEdgeSelected reports whether ref is selected.
func (m *Model) IsEdgeSelected(ref graph.Ref) bool {
	if !m.edgeLive(ref) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.edges.Contains(uint32(ref.Index))
}

// IsEmpty reports whether nothing is selected.
func (m *Model) IsEmpty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vertices.IsEmpty() && m.edges.IsEmpty()
}

// NumVertices returns the number of selected vertices.
func (m *Model) NumVertices() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int(m.vertices.GetCardinality())
}

// NumEdges returns the number of selected edges.
func (m *Model) NumEdges() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int(m.edges.GetCardinality())
}

// Vertices returns the selected vertices in id order.
func (m *Model) Vertices() []graph.Ref {
	return m.refs(m.vertices, m.g.IDBimap().VertexRef)
}

// Edges returns the selected edges in id order.
func (m *Model) Edges() []graph.Ref {
	return m.refs(m.edges, m.g.IDBimap().EdgeRef)
}

func (m *Model) refs(b *roaring.Bitmap, lookup func(int) (graph.Ref, bool)) []graph.Ref {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]graph.Ref, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		if ref, ok := lookup(int(it.Next())); ok {
			out = append(out, ref)
		}
	}
	return out
}

// VertexBitmap returns a copy of the selected vertex ids.
func (m *Model) VertexBitmap() *roaring.Bitmap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vertices.Clone()
}

func (m *Model) graphChanged(cs *graph.ChangeSet) {
	changed := false
	m.mu.Lock()
	for c := range cs.All() {
		switch c.Kind {
		case graph.VertexRemoved:
			changed = m.vertices.CheckedRemove(uint32(c.Ref.Index)) || changed
		case graph.EdgeRemoved:
			changed = m.edges.CheckedRemove(uint32(c.Ref.Index)) || changed
		}
	}
	m.mu.Unlock()
	m.notify(changed)
}
