package graphio

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/internal/conv"
)

const bufferSize = 256 * 1024

type writer struct {
	w   *bufio.Writer
	buf [4]byte
}

func (w *writer) int32(x int32) error {
	binary.BigEndian.PutUint32(w.buf[:], uint32(x))
	_, err := w.w.Write(w.buf[:])
	return err
}

func (w *writer) int(x int) error {
	v, err := conv.Int32(x)
	if err != nil {
		return err
	}
	return w.int32(v)
}

// Write writes g to w in the raw format. Vertices get file indices in slot
// order.
func Write(w io.Writer, g *graph.Graph, s Serializer) (*FileIDs, error) {
	bw := &writer{w: bufio.NewWriterSize(w, bufferSize)}
	ids := newFileIDs(g.Vertices().Len(), g.Edges().Len())

	if err := bw.int(g.Vertices().Len()); err != nil {
		return nil, err
	}
	rec := make([]byte, s.VertexNumBytes())
	for v := range g.Vertices().All() {
		clear(rec)
		s.EncodeVertex(v, rec)
		if _, err := bw.w.Write(rec); err != nil {
			return nil, err
		}
		ids.addVertex(v.Ref())
	}

	if err := bw.int(g.Edges().Len()); err != nil {
		return nil, err
	}
	rec = make([]byte, s.EdgeNumBytes())
	v := g.VertexRef()
	defer g.ReleaseVertexRef(v)
	for i, ref := range ids.vertices {
		if _, err := g.Vertices().Resolve(ref, v); err != nil {
			return nil, err
		}
		out := 0
		for e := range v.OutgoingEdges().All() {
			target, _ := ids.VertexFileIndex(mustRef(g, e.TargetIndex()))
			for _, x := range []int{i, target, out, e.TargetInIndex()} {
				if err := bw.int(x); err != nil {
					return nil, err
				}
			}
			clear(rec)
			s.EncodeEdge(e, rec)
			if _, err := bw.w.Write(rec); err != nil {
				return nil, err
			}
			ids.addEdge(e.Ref())
			out++
		}
	}
	return ids, bw.w.Flush()
}

func mustRef(g *graph.Graph, idx int32) graph.Ref {
	ref, _ := g.IDBimap().VertexRef(int(idx))
	return ref
}
