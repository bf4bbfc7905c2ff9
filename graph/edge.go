package graph

import (
	"iter"
	"strings"
	"sync"

	"github.com/hupe1980/celltrack/internal/arena"
)

// Edge is a flyweight handle to an edge slot. Like Vertex, it is a mutable
// cursor and not safe for concurrent use.
type Edge struct {
	pool *EdgePool
	ref  Ref
}

// Ref returns the generation-tagged reference the handle is bound to.
func (e *Edge) Ref() Ref { return e.ref }

// Index returns the slot index, which is also the edge id.
func (e *Edge) Index() int32 { return e.ref.Index }

// Validate returns nil if the handle refers to a live edge.
func (e *Edge) Validate() error {
	if e.ref.IsNil() {
		return ErrUnboundHandle
	}
	return e.pool.arena.Validate(e.ref)
}

func (e *Edge) slot() []byte {
	if e.ref.IsNil() {
		return nil
	}
	b, err := e.pool.arena.Bytes(e.ref)
	if err != nil {
		return nil
	}
	return b
}

// SourceIndex returns the slot index of the source vertex, -1 if stale.
func (e *Edge) SourceIndex() int32 {
	b := e.slot()
	if b == nil {
		return none
	}
	return getInt32(b, eSource)
}

// TargetIndex returns the slot index of the target vertex, -1 if stale.
func (e *Edge) TargetIndex() int32 {
	b := e.slot()
	if b == nil {
		return none
	}
	return getInt32(b, eTarget)
}

// Source binds v (or a new handle when v is nil) to the source vertex.
func (e *Edge) Source(v *Vertex) (*Vertex, error) {
	if err := e.Validate(); err != nil {
		return v, err
	}
	return e.pool.g.vertices.ByIndex(e.SourceIndex(), v)
}

// Target binds v (or a new handle when v is nil) to the target vertex.
func (e *Edge) Target(v *Vertex) (*Vertex, error) {
	if err := e.Validate(); err != nil {
		return v, err
	}
	return e.pool.g.vertices.ByIndex(e.TargetIndex(), v)
}

// SourceOutIndex returns the position of the edge in its source's outgoing
// list, or -1 for a stale handle.
func (e *Edge) SourceOutIndex() int {
	b := e.slot()
	if b == nil {
		return -1
	}
	return e.pool.listPosition(getInt32(b, eSource), e.ref.Index, viewOut)
}

// TargetInIndex returns the position of the edge in its target's incoming
// list, or -1 for a stale handle.
func (e *Edge) TargetInIndex() int {
	b := e.slot()
	if b == nil {
		return -1
	}
	return e.pool.listPosition(getInt32(b, eTarget), e.ref.Index, viewIn)
}

// Attributes returns the caller-defined attribute bytes of the slot.
func (e *Edge) Attributes() []byte {
	b := e.slot()
	if b == nil {
		return nil
	}
	return b[eAttrs:]
}

func (e *Edge) String() string {
	return "Edge" + strings.TrimPrefix(e.ref.String(), "Ref")
}

// EdgePool owns edge slots and recycles edge handles.
type EdgePool struct {
	g       *Graph
	arena   *arena.Arena
	handles sync.Pool
}

var _ RefPool[*Edge] = (*EdgePool)(nil)

func newEdgePool(g *Graph, o options) (*EdgePool, error) {
	a, err := arena.New(eAttrs+o.edgeAttrBytes, o.arenaOptions()...)
	if err != nil {
		return nil, err
	}
	p := &EdgePool{g: g, arena: a}
	p.handles.New = func() any {
		return &Edge{pool: p, ref: arena.NilRef}
	}
	return p, nil
}

// CreateRef returns an unbound handle from the handle free-list.
func (p *EdgePool) CreateRef() *Edge {
	e := p.handles.Get().(*Edge)
	e.ref = arena.NilRef
	return e
}

// ReleaseRef returns a handle to the free-list.
func (p *EdgePool) ReleaseRef(e *Edge) {
	if e == nil || e.pool != p {
		return
	}
	e.ref = arena.NilRef
	p.handles.Put(e)
}

// Resolve binds e (or a new handle when e is nil) to ref.
func (p *EdgePool) Resolve(ref Ref, e *Edge) (*Edge, error) {
	if err := p.arena.Validate(ref); err != nil {
		return e, err
	}
	if e == nil {
		e = p.CreateRef()
	}
	e.ref = ref
	return e, nil
}

// ByIndex binds e (or a new handle when e is nil) to the live edge in slot idx.
func (p *EdgePool) ByIndex(idx int32, e *Edge) (*Edge, error) {
	ref, ok := p.arena.RefAt(idx)
	if !ok {
		return e, &StaleRefError{Ref: Ref{Index: idx}}
	}
	if e == nil {
		e = p.CreateRef()
	}
	e.ref = ref
	return e, nil
}

// Index returns the slot index of e.
func (p *EdgePool) Index(e *Edge) int32 { return e.ref.Index }

// Len returns the number of live edges.
func (p *EdgePool) Len() int { return p.arena.Len() }

// AttributeBytes returns the number of caller-defined bytes per edge.
func (p *EdgePool) AttributeBytes() int { return p.arena.SlotSize() - eAttrs }

// All yields every live edge in slot order through a single reused handle.
func (p *EdgePool) All() iter.Seq[*Edge] {
	return func(yield func(*Edge) bool) {
		e := p.CreateRef()
		defer p.ReleaseRef(e)
		for ref := range p.arena.All() {
			e.ref = ref
			if !yield(e) {
				return
			}
		}
	}
}

// Stats returns slot usage statistics.
func (p *EdgePool) Stats() arena.Stats { return p.arena.Stats() }

// listPosition walks the adjacency list of vertex vidx and returns the
// position of edge eidx in it.
func (p *EdgePool) listPosition(vidx, eidx int32, kind viewKind) int {
	head, next := vFirstOut, eNextOut
	if kind == viewIn {
		head, next = vFirstIn, eNextIn
	}
	pos := 0
	for cur := getInt32(p.g.vertices.arena.Slot(vidx), head); cur != none; cur = getInt32(p.arena.Slot(cur), next) {
		if cur == eidx {
			return pos
		}
		pos++
	}
	return -1
}

type viewKind uint8

const (
	viewIn viewKind = iota
	viewOut
	viewAll
)

// EdgeView is a lazy, reusable view over one vertex's adjacency list. It
// reads the graph on every iteration, so it reflects later mutations.
type EdgeView struct {
	v    *Vertex
	kind viewKind
}

// Len returns the number of edges in the view.
func (ev *EdgeView) Len() int {
	switch ev.kind {
	case viewIn:
		return ev.v.InDegree()
	case viewOut:
		return ev.v.OutDegree()
	default:
		return ev.v.InDegree() + ev.v.OutDegree()
	}
}

// All yields the edges through a single reused handle. The yielded edge may
// be removed during iteration; any other structural change to the list
// ends in undefined order.
func (ev *EdgeView) All() iter.Seq[*Edge] {
	return func(yield func(*Edge) bool) {
		b := ev.v.slot()
		if b == nil {
			return
		}
		ep := ev.v.pool.g.edges
		e := ep.CreateRef()
		defer ep.ReleaseRef(e)

		walk := func(head, next int) bool {
			for cur := getInt32(b, head); cur != none; {
				nxt := getInt32(ep.arena.Slot(cur), next)
				e.ref, _ = ep.arena.RefAt(cur)
				if !yield(e) {
					return false
				}
				cur = nxt
			}
			return true
		}

		switch ev.kind {
		case viewIn:
			walk(vFirstIn, eNextIn)
		case viewOut:
			walk(vFirstOut, eNextOut)
		default:
			if walk(vFirstIn, eNextIn) {
				walk(vFirstOut, eNextOut)
			}
		}
	}
}
