package graphio

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/celltrack/graph"
)

// Serializer encodes the fixed-size per-entity records of the raw format.
// Decoders create the vertex themselves, since timepoint and position are
// needed at creation.
type Serializer interface {
	VertexNumBytes() int
	EncodeVertex(v *graph.Vertex, dst []byte)
	// DecodeVertex adds the vertex described by src to g, binding v (or a
	// new handle when v is nil).
	DecodeVertex(src []byte, g *graph.Graph, v *graph.Vertex) (*graph.Vertex, error)

	EdgeNumBytes() int
	EncodeEdge(e *graph.Edge, dst []byte)
	// DecodeEdge fills the attributes of the freshly inserted edge e.
	DecodeEdge(src []byte, e *graph.Edge)
}

// DefaultSerializer stores timepoint, position and attribute bytes for
// vertices and attribute bytes for edges.
type DefaultSerializer struct {
	dims      int
	vertAttrs int
	edgeAttrs int
}

var _ Serializer = (*DefaultSerializer)(nil)

// NewDefaultSerializer returns a serializer matching the layout of g.
func NewDefaultSerializer(g *graph.Graph) *DefaultSerializer {
	return &DefaultSerializer{
		dims:      g.Dimensions(),
		vertAttrs: g.Vertices().AttributeBytes(),
		edgeAttrs: g.Edges().AttributeBytes(),
	}
}

// VertexNumBytes returns 4 + 8·dims + vertex attribute bytes.
func (s *DefaultSerializer) VertexNumBytes() int { return 4 + 8*s.dims + s.vertAttrs }

// EncodeVertex writes the timepoint, the position and the attributes.
func (s *DefaultSerializer) EncodeVertex(v *graph.Vertex, dst []byte) {
	binary.BigEndian.PutUint32(dst, uint32(int32(v.Timepoint())))
	for d := range s.dims {
		binary.BigEndian.PutUint64(dst[4+8*d:], math.Float64bits(v.Coord(d)))
	}
	copy(dst[4+8*s.dims:], v.Attributes())
}

// DecodeVertex adds a vertex with the recorded timepoint, position and
// attributes.
func (s *DefaultSerializer) DecodeVertex(src []byte, g *graph.Graph, v *graph.Vertex) (*graph.Vertex, error) {
	t := int(int32(binary.BigEndian.Uint32(src)))
	pos := make([]float64, s.dims)
	for d := range pos {
		pos[d] = math.Float64frombits(binary.BigEndian.Uint64(src[4+8*d:]))
	}
	v, err := g.AddVertexRef(v, t, pos)
	if err != nil {
		return v, err
	}
	copy(v.Attributes(), src[4+8*s.dims:])
	return v, nil
}

// EdgeNumBytes returns the edge attribute bytes.
func (s *DefaultSerializer) EdgeNumBytes() int { return s.edgeAttrs }

// EncodeEdge writes the attributes.
func (s *DefaultSerializer) EncodeEdge(e *graph.Edge, dst []byte) { copy(dst, e.Attributes()) }

// DecodeEdge restores the attributes.
func (s *DefaultSerializer) DecodeEdge(src []byte, e *graph.Edge) { copy(e.Attributes(), src) }
