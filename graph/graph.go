package graph

import (
	"errors"
	"log/slog"
	"math"

	"github.com/hupe1980/celltrack/internal/arena"
)

// Ref is a generation-tagged reference to a vertex or edge slot.
type Ref = arena.Ref

// NilRef refers to no entity.
var NilRef = arena.NilRef

type listenerEntry struct {
	id uint64
	l  Listener
}

// Graph is a directed graph whose vertices and edges live in slot arenas.
//
// A Graph has a single writer. Mutations, handle binding and iteration must
// not run concurrently with a mutation; callers that share a graph across
// goroutines guard it with their own lock.
type Graph struct {
	vertices *VertexPool
	edges    *EdgePool
	idmap    *IDBimap
	logger   *slog.Logger

	listeners []listenerEntry
	nextID    uint64

	tx       *Tx
	batch    []Change
	batching bool
}

// New creates an empty graph.
func New(optFns ...Option) (*Graph, error) {
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if o.dimensions <= 0 {
		return nil, &DimensionError{Want: 1, Got: o.dimensions}
	}
	if o.vertexAttrBytes < 0 || o.edgeAttrBytes < 0 {
		return nil, errors.New("graph: negative attribute size")
	}

	g := &Graph{logger: o.logger}
	var err error
	if g.vertices, err = newVertexPool(g, o); err != nil {
		return nil, err
	}
	if g.edges, err = newEdgePool(g, o); err != nil {
		g.vertices.arena.Close()
		return nil, err
	}
	g.idmap = &IDBimap{g: g}
	return g, nil
}

// Dimensions returns the number of position coordinates per vertex.
func (g *Graph) Dimensions() int { return g.vertices.dims }

// Vertices returns the vertex pool, which doubles as the vertex collection.
func (g *Graph) Vertices() *VertexPool { return g.vertices }

// Edges returns the edge pool, which doubles as the edge collection.
func (g *Graph) Edges() *EdgePool { return g.edges }

// IDBimap returns the id mapping of the graph.
func (g *Graph) IDBimap() *IDBimap { return g.idmap }

// VertexRef returns an unbound vertex handle. Release it with ReleaseVertexRef.
func (g *Graph) VertexRef() *Vertex { return g.vertices.CreateRef() }

// EdgeRef returns an unbound edge handle. Release it with ReleaseEdgeRef.
func (g *Graph) EdgeRef() *Edge { return g.edges.CreateRef() }

// ReleaseVertexRef returns a vertex handle to the handle free-list.
func (g *Graph) ReleaseVertexRef(v *Vertex) { g.vertices.ReleaseRef(v) }

// ReleaseEdgeRef returns an edge handle to the handle free-list.
func (g *Graph) ReleaseEdgeRef(e *Edge) { g.edges.ReleaseRef(e) }

// AddListener registers l and returns a function that unregisters it.
func (g *Graph) AddListener(l Listener) (remove func()) {
	g.nextID++
	id := g.nextID
	g.listeners = append(g.listeners, listenerEntry{id: id, l: l})
	return func() {
		for i, e := range g.listeners {
			if e.id == id {
				g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

// Begin starts a transaction. Until Commit, change notifications are
// buffered instead of delivered.
func (g *Graph) Begin() (*Tx, error) {
	if g.tx != nil {
		return nil, ErrTxInProgress
	}
	g.tx = &Tx{g: g}
	return g.tx, nil
}

func (g *Graph) emit(c Change) {
	switch {
	case g.tx != nil:
		g.tx.cs.changes = append(g.tx.cs.changes, c)
	case g.batching:
		g.batch = append(g.batch, c)
	default:
		g.dispatch(&ChangeSet{changes: []Change{c}})
	}
}

func (g *Graph) dispatch(cs *ChangeSet) {
	for _, e := range g.listeners {
		e.l.GraphChanged(cs)
	}
}

// group delivers the changes emitted by fn as a single ChangeSet unless a
// transaction is already collecting them.
func (g *Graph) group(fn func() error) error {
	if g.tx != nil || g.batching {
		return fn()
	}
	g.batching = true
	err := fn()
	changes := g.batch
	g.batch, g.batching = nil, false
	if len(changes) > 0 {
		g.dispatch(&ChangeSet{changes: changes})
	}
	return err
}

func (g *Graph) checkVertex(v *Vertex) error {
	if v == nil {
		return ErrUnboundHandle
	}
	if v.pool != g.vertices {
		return ErrForeignHandle
	}
	return v.Validate()
}

func (g *Graph) checkEdge(e *Edge) error {
	if e == nil {
		return ErrUnboundHandle
	}
	if e.pool != g.edges {
		return ErrForeignHandle
	}
	return e.Validate()
}

// AddVertex adds a vertex at timepoint t and position pos and returns a new
// handle to it.
func (g *Graph) AddVertex(t int, pos []float64) (*Vertex, error) {
	return g.AddVertexRef(nil, t, pos)
}

// AddVertexRef is AddVertex binding the result to v instead of a new handle.
func (g *Graph) AddVertexRef(v *Vertex, t int, pos []float64) (*Vertex, error) {
	if t < 0 || t > math.MaxInt32 {
		return v, ErrNegativeTimepoint
	}
	if len(pos) != g.vertices.dims {
		return v, &DimensionError{Want: g.vertices.dims, Got: len(pos)}
	}
	if v != nil && v.pool != g.vertices {
		return v, ErrForeignHandle
	}

	ref, err := g.vertices.arena.Create()
	if err != nil {
		return v, err
	}
	b := g.vertices.arena.Slot(ref.Index)
	putInt32(b, vFirstIn, none)
	putInt32(b, vFirstOut, none)
	putInt32(b, vTimepoint, int32(t))
	g.vertices.writePosition(ref.Index, pos)

	if v == nil {
		v = g.vertices.CreateRef()
	}
	v.ref = ref
	g.emit(g.vertices.vertexChange(VertexAdded, ref))
	return v, nil
}

// AddEdge appends an edge from source to target to both adjacency lists.
func (g *Graph) AddEdge(source, target *Vertex) (*Edge, error) {
	return g.InsertEdgeRef(source, math.MaxInt, target, math.MaxInt, nil)
}

// AddEdgeRef is AddEdge binding the result to e instead of a new handle.
func (g *Graph) AddEdgeRef(source, target *Vertex, e *Edge) (*Edge, error) {
	return g.InsertEdgeRef(source, math.MaxInt, target, math.MaxInt, e)
}

// InsertEdge adds an edge at position sourceOutIndex of the source's
// outgoing list and targetInIndex of the target's incoming list. Positions
// past the end of a list append. Used to restore a removed edge exactly.
func (g *Graph) InsertEdge(source *Vertex, sourceOutIndex int, target *Vertex, targetInIndex int) (*Edge, error) {
	return g.InsertEdgeRef(source, sourceOutIndex, target, targetInIndex, nil)
}

// InsertEdgeRef is InsertEdge binding the result to e instead of a new handle.
func (g *Graph) InsertEdgeRef(source *Vertex, sourceOutIndex int, target *Vertex, targetInIndex int, e *Edge) (*Edge, error) {
	if err := g.checkVertex(source); err != nil {
		return e, err
	}
	if err := g.checkVertex(target); err != nil {
		return e, err
	}
	if e != nil && e.pool != g.edges {
		return e, ErrForeignHandle
	}

	ref, err := g.edges.arena.Create()
	if err != nil {
		return e, err
	}
	b := g.edges.arena.Slot(ref.Index)
	putInt32(b, eSource, source.ref.Index)
	putInt32(b, eTarget, target.ref.Index)
	g.link(source.ref.Index, ref.Index, viewOut, sourceOutIndex)
	g.link(target.ref.Index, ref.Index, viewIn, targetInIndex)

	if e == nil {
		e = g.edges.CreateRef()
	}
	e.ref = ref
	g.emit(Change{Kind: EdgeAdded, Ref: ref, Timepoint: -1, Source: source.ref, Target: target.ref})
	return e, nil
}

// GetEdge returns a new handle to the first edge from source to target.
func (g *Graph) GetEdge(source, target *Vertex) (*Edge, bool) {
	return g.GetEdgeRef(source, target, nil)
}

// GetEdgeRef is GetEdge binding the result to e. When no edge exists, e is
// returned unchanged with false.
func (g *Graph) GetEdgeRef(source, target *Vertex, e *Edge) (*Edge, bool) {
	if g.checkVertex(source) != nil || g.checkVertex(target) != nil {
		return e, false
	}
	tidx := target.ref.Index
	ea := g.edges.arena
	for cur := getInt32(g.vertices.arena.Slot(source.ref.Index), vFirstOut); cur != none; {
		b := ea.Slot(cur)
		if getInt32(b, eTarget) == tidx {
			if e == nil {
				e = g.edges.CreateRef()
			}
			e.ref, _ = ea.RefAt(cur)
			return e, true
		}
		cur = getInt32(b, eNextOut)
	}
	return e, false
}

// RemoveEdge removes e from both adjacency lists and frees its slot.
func (g *Graph) RemoveEdge(e *Edge) error {
	if err := g.checkEdge(e); err != nil {
		return err
	}
	return g.removeEdge(e.ref)
}

// Remove removes v together with all incident edges. Listeners observe one
// EdgeRemoved change per incident edge, outgoing first, followed by a single
// VertexRemoved change.
func (g *Graph) Remove(v *Vertex) error {
	if err := g.checkVertex(v); err != nil {
		return err
	}
	return g.group(func() error {
		va := g.vertices.arena
		b := va.Slot(v.ref.Index)
		for _, head := range [...]int{vFirstOut, vFirstIn} {
			for cur := getInt32(b, head); cur != none; cur = getInt32(b, head) {
				ref, ok := g.edges.arena.RefAt(cur)
				if !ok {
					ref = Ref{Index: cur}
				}
				if err := g.removeEdge(ref); err != nil {
					return err
				}
			}
		}
		g.emit(g.vertices.vertexChange(VertexRemoved, v.ref))
		return va.Free(v.ref)
	})
}

// removeEdge unlinks and frees ref. A ref that no longer resolves is
// reported before either adjacency list is touched.
func (g *Graph) removeEdge(ref Ref) error {
	if err := g.edges.arena.Validate(ref); err != nil {
		return err
	}
	va := g.vertices.arena
	b := g.edges.arena.Slot(ref.Index)
	src, tgt := getInt32(b, eSource), getInt32(b, eTarget)
	srcRef, _ := va.RefAt(src)
	tgtRef, _ := va.RefAt(tgt)

	g.unlink(src, ref.Index, viewOut)
	g.unlink(tgt, ref.Index, viewIn)
	if err := g.edges.arena.Free(ref); err != nil {
		return err
	}
	g.emit(Change{Kind: EdgeRemoved, Ref: ref, Timepoint: -1, Source: srcRef, Target: tgtRef})
	return nil
}

func listOffsets(kind viewKind) (head, count, next int) {
	if kind == viewIn {
		return vFirstIn, vNumIn, eNextIn
	}
	return vFirstOut, vNumOut, eNextOut
}

// link inserts edge eidx at position pos of vertex vidx's list.
func (g *Graph) link(vidx, eidx int32, kind viewKind, pos int) {
	head, count, next := listOffsets(kind)
	vb := g.vertices.arena.Slot(vidx)
	eb := g.edges.arena.Slot(eidx)
	ea := g.edges.arena

	first := getInt32(vb, head)
	if pos <= 0 || first == none {
		putInt32(eb, next, first)
		putInt32(vb, head, eidx)
	} else {
		prev := first
		for i := 1; i < pos; i++ {
			n := getInt32(ea.Slot(prev), next)
			if n == none {
				break
			}
			prev = n
		}
		pb := ea.Slot(prev)
		putInt32(eb, next, getInt32(pb, next))
		putInt32(pb, next, eidx)
	}
	putInt32(vb, count, getInt32(vb, count)+1)
}

// unlink removes edge eidx from vertex vidx's list.
func (g *Graph) unlink(vidx, eidx int32, kind viewKind) {
	head, count, next := listOffsets(kind)
	vb := g.vertices.arena.Slot(vidx)
	ea := g.edges.arena
	after := getInt32(ea.Slot(eidx), next)

	if getInt32(vb, head) == eidx {
		putInt32(vb, head, after)
	} else {
		for cur := getInt32(vb, head); cur != none; {
			cb := ea.Slot(cur)
			n := getInt32(cb, next)
			if n == eidx {
				putInt32(cb, next, after)
				break
			}
			cur = n
		}
	}
	putInt32(vb, count, getInt32(vb, count)-1)
}

// Close releases the slot memory. Handles must not be used afterwards.
func (g *Graph) Close() error {
	return errors.Join(g.vertices.arena.Close(), g.edges.arena.Close())
}
