package graph

import (
	"iter"
	"strings"
	"sync"

	"github.com/hupe1980/celltrack/internal/arena"
)

// Positioned is implemented by entities with an n-dimensional position.
type Positioned interface {
	Dimensions() int
	Coord(d int) float64
	Position(dst []float64) []float64
}

// Timed is implemented by entities bound to a timepoint.
type Timed interface {
	Timepoint() int
}

// Vertex is a flyweight handle to a vertex slot. A handle is a mutable
// cursor: rebinding it (through a pool or a graph operation) makes it refer
// to another vertex. Handles are not safe for concurrent use.
//
// Getters on a handle whose vertex has been removed return zero values;
// use Validate to tell the difference.
type Vertex struct {
	pool *VertexPool
	ref  Ref

	in, out, all EdgeView
}

var (
	_ Positioned = (*Vertex)(nil)
	_ Timed      = (*Vertex)(nil)
)

// Ref returns the generation-tagged reference the handle is bound to.
func (v *Vertex) Ref() Ref { return v.ref }

// Index returns the slot index, which is also the vertex id.
func (v *Vertex) Index() int32 { return v.ref.Index }

// Validate returns nil if the handle refers to a live vertex.
func (v *Vertex) Validate() error {
	if v.ref.IsNil() {
		return ErrUnboundHandle
	}
	return v.pool.arena.Validate(v.ref)
}

func (v *Vertex) slot() []byte {
	if v.ref.IsNil() {
		return nil
	}
	b, err := v.pool.arena.Bytes(v.ref)
	if err != nil {
		return nil
	}
	return b
}

// Dimensions returns the number of position coordinates.
func (v *Vertex) Dimensions() int { return v.pool.dims }

// Timepoint returns the vertex timepoint, or -1 for a stale handle.
func (v *Vertex) Timepoint() int {
	b := v.slot()
	if b == nil {
		return -1
	}
	return int(getInt32(b, vTimepoint))
}

// Coord returns coordinate d of the position.
func (v *Vertex) Coord(d int) float64 {
	b := v.slot()
	if b == nil || d < 0 || d >= v.pool.dims {
		return 0
	}
	return getFloat64(b, vPosition+8*d)
}

// Position appends the position to dst and returns the extended slice.
func (v *Vertex) Position(dst []float64) []float64 {
	b := v.slot()
	if b == nil {
		return dst
	}
	for d := range v.pool.dims {
		dst = append(dst, getFloat64(b, vPosition+8*d))
	}
	return dst
}

// SetPosition moves the vertex and emits a VertexMoved change.
func (v *Vertex) SetPosition(pos []float64) error {
	if len(pos) != v.pool.dims {
		return &DimensionError{Want: v.pool.dims, Got: len(pos)}
	}
	if err := v.Validate(); err != nil {
		return err
	}
	v.pool.writePosition(v.ref.Index, pos)
	v.pool.g.emit(v.pool.vertexChange(VertexMoved, v.ref))
	return nil
}

// Attributes returns the caller-defined attribute bytes of the slot. The
// slice aliases pool memory and is valid while the vertex is live.
func (v *Vertex) Attributes() []byte {
	b := v.slot()
	if b == nil {
		return nil
	}
	return b[v.pool.attrOffset:]
}

// InDegree returns the number of incoming edges.
func (v *Vertex) InDegree() int {
	b := v.slot()
	if b == nil {
		return 0
	}
	return int(getInt32(b, vNumIn))
}

// OutDegree returns the number of outgoing edges.
func (v *Vertex) OutDegree() int {
	b := v.slot()
	if b == nil {
		return 0
	}
	return int(getInt32(b, vNumOut))
}

// IncomingEdges returns a reusable view over the incoming edges.
func (v *Vertex) IncomingEdges() *EdgeView {
	v.in = EdgeView{v: v, kind: viewIn}
	return &v.in
}

// OutgoingEdges returns a reusable view over the outgoing edges.
func (v *Vertex) OutgoingEdges() *EdgeView {
	v.out = EdgeView{v: v, kind: viewOut}
	return &v.out
}

// Edges returns a view over incoming then outgoing edges. A self loop
// appears twice.
func (v *Vertex) Edges() *EdgeView {
	v.all = EdgeView{v: v, kind: viewAll}
	return &v.all
}

func (v *Vertex) String() string {
	return "Vertex" + strings.TrimPrefix(v.ref.String(), "Ref")
}

// VertexPool owns vertex slots and recycles vertex handles.
type VertexPool struct {
	g          *Graph
	arena      *arena.Arena
	dims       int
	attrOffset int
	handles    sync.Pool
}

var _ RefPool[*Vertex] = (*VertexPool)(nil)

func newVertexPool(g *Graph, o options) (*VertexPool, error) {
	attrOffset := vPosition + 8*o.dimensions
	a, err := arena.New(attrOffset+o.vertexAttrBytes, o.arenaOptions()...)
	if err != nil {
		return nil, err
	}
	p := &VertexPool{
		g:          g,
		arena:      a,
		dims:       o.dimensions,
		attrOffset: attrOffset,
	}
	p.handles.New = func() any {
		return &Vertex{pool: p, ref: arena.NilRef}
	}
	return p, nil
}

// CreateRef returns an unbound handle from the handle free-list.
func (p *VertexPool) CreateRef() *Vertex {
	v := p.handles.Get().(*Vertex)
	v.ref = arena.NilRef
	return v
}

// ReleaseRef returns a handle to the free-list. The handle must not be used
// afterwards.
func (p *VertexPool) ReleaseRef(v *Vertex) {
	if v == nil || v.pool != p {
		return
	}
	v.ref = arena.NilRef
	p.handles.Put(v)
}

// Resolve binds v (or a new handle when v is nil) to ref.
func (p *VertexPool) Resolve(ref Ref, v *Vertex) (*Vertex, error) {
	if err := p.arena.Validate(ref); err != nil {
		return v, err
	}
	if v == nil {
		v = p.CreateRef()
	}
	v.ref = ref
	return v, nil
}

// ByIndex binds v (or a new handle when v is nil) to the live vertex in slot idx.
func (p *VertexPool) ByIndex(idx int32, v *Vertex) (*Vertex, error) {
	ref, ok := p.arena.RefAt(idx)
	if !ok {
		return v, &StaleRefError{Ref: Ref{Index: idx}}
	}
	if v == nil {
		v = p.CreateRef()
	}
	v.ref = ref
	return v, nil
}

// Index returns the slot index of v.
func (p *VertexPool) Index(v *Vertex) int32 { return v.ref.Index }

// Len returns the number of live vertices.
func (p *VertexPool) Len() int { return p.arena.Len() }

// Dimensions returns the number of position coordinates.
func (p *VertexPool) Dimensions() int { return p.dims }

// AttributeBytes returns the number of caller-defined bytes per vertex.
func (p *VertexPool) AttributeBytes() int { return p.arena.SlotSize() - p.attrOffset }

// All yields every live vertex in slot order through a single reused handle.
// The handle must not be retained past the iteration step.
func (p *VertexPool) All() iter.Seq[*Vertex] {
	return func(yield func(*Vertex) bool) {
		v := p.CreateRef()
		defer p.ReleaseRef(v)
		for ref := range p.arena.All() {
			v.ref = ref
			if !yield(v) {
				return
			}
		}
	}
}

// Refs yields the Ref of every live vertex in slot order.
func (p *VertexPool) Refs() iter.Seq[Ref] {
	return p.arena.All()
}

// Stats returns slot usage statistics.
func (p *VertexPool) Stats() arena.Stats { return p.arena.Stats() }

func (p *VertexPool) writePosition(idx int32, pos []float64) {
	b := p.arena.Slot(idx)
	for d, x := range pos {
		putFloat64(b, vPosition+8*d, x)
	}
}

func (p *VertexPool) vertexChange(kind ChangeKind, ref Ref) Change {
	b := p.arena.Slot(ref.Index)
	pos := make([]float64, p.dims)
	for d := range pos {
		pos[d] = getFloat64(b, vPosition+8*d)
	}
	return Change{
		Kind:      kind,
		Ref:       ref,
		Timepoint: int(getInt32(b, vTimepoint)),
		Position:  pos,
		Source:    arena.NilRef,
		Target:    arena.NilRef,
	}
}
