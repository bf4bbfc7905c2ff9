package graphio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"slices"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/internal/conv"
)

type reader struct {
	r   *bufio.Reader
	off int64
	buf [4]byte
}

func (r *reader) full(p []byte, what string) error {
	n, err := io.ReadFull(r.r, p)
	r.off += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return &LoadError{Offset: r.off, Reason: "reading " + what, Err: err}
	}
	return nil
}

func (r *reader) int32(what string) (int32, error) {
	if err := r.full(r.buf[:], what); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(r.buf[:])), nil
}

func (r *reader) count(what string) (int, error) {
	n, err := r.int32(what)
	if err != nil {
		return 0, err
	}
	c, err := conv.Count(n)
	if err != nil {
		return 0, &LoadError{Offset: r.off - 4, Reason: "negative " + what}
	}
	return c, nil
}

// Read adds the raw graph in r to g. The additions are grouped into one
// transaction, so listeners receive a single ChangeSet, unless the caller
// already holds a transaction. Entities added before an error stay in g.
func Read(r io.Reader, g *graph.Graph, s Serializer) (*FileIDs, error) {
	tx, err := g.Begin()
	if err != nil && !errors.Is(err, graph.ErrTxInProgress) {
		return nil, err
	}
	ids, err := read(&reader{r: bufio.NewReaderSize(r, bufferSize)}, g, s)
	if tx != nil {
		if _, cerr := tx.Commit(); err == nil {
			err = cerr
		}
	}
	return ids, err
}

func read(r *reader, g *graph.Graph, s Serializer) (*FileIDs, error) {
	numVertices, err := r.count("vertex count")
	if err != nil {
		return nil, err
	}
	ids := newFileIDs(min(numVertices, 1<<20), 0)

	v := g.VertexRef()
	defer g.ReleaseVertexRef(v)
	rec := make([]byte, s.VertexNumBytes())
	for range numVertices {
		if err := r.full(rec, "vertex record"); err != nil {
			return ids, err
		}
		if _, err := s.DecodeVertex(rec, g, v); err != nil {
			return ids, &LoadError{Offset: r.off, Reason: "decoding vertex", Err: err}
		}
		ids.addVertex(v.Ref())
	}

	numEdges, err := r.count("edge count")
	if err != nil {
		return ids, err
	}

	source, target := g.VertexRef(), g.VertexRef()
	defer g.ReleaseVertexRef(source)
	defer g.ReleaseVertexRef(target)
	e := g.EdgeRef()
	defer g.ReleaseEdgeRef(e)

	// Edges arrive grouped by source, so a target's incoming list fills in
	// file order rather than by targetInIndex. Each edge is inserted at its
	// rank among the already placed edges of the same list, which rebuilds
	// both lists in recorded order regardless of arrival order.
	outPlaced := make([][]int32, numVertices)
	inPlaced := make([][]int32, numVertices)

	rec = make([]byte, s.EdgeNumBytes())
	var hdr [4]int32
	for range numEdges {
		for i := range hdr {
			if hdr[i], err = r.int32("edge header"); err != nil {
				return ids, err
			}
		}
		if err := r.full(rec, "edge record"); err != nil {
			return ids, err
		}
		if err := bindFileVertex(g, ids, int(hdr[0]), source); err != nil {
			return ids, &LoadError{Offset: r.off, Reason: "edge source", Err: err}
		}
		if err := bindFileVertex(g, ids, int(hdr[1]), target); err != nil {
			return ids, &LoadError{Offset: r.off, Reason: "edge target", Err: err}
		}
		if hdr[2] < 0 || hdr[3] < 0 {
			return ids, &LoadError{Offset: r.off, Reason: "negative adjacency index"}
		}
		outPos, _ := slices.BinarySearch(outPlaced[hdr[0]], hdr[2])
		inPos, _ := slices.BinarySearch(inPlaced[hdr[1]], hdr[3])
		if _, err := g.InsertEdgeRef(source, outPos, target, inPos, e); err != nil {
			return ids, &LoadError{Offset: r.off, Reason: "inserting edge", Err: err}
		}
		outPlaced[hdr[0]] = slices.Insert(outPlaced[hdr[0]], outPos, hdr[2])
		inPlaced[hdr[1]] = slices.Insert(inPlaced[hdr[1]], inPos, hdr[3])
		s.DecodeEdge(rec, e)
		ids.addEdge(e.Ref())
	}
	return ids, nil
}

var errFileIndex = errors.New("file index out of range")

func bindFileVertex(g *graph.Graph, ids *FileIDs, i int, v *graph.Vertex) error {
	ref, ok := ids.VertexRef(i)
	if !ok {
		return errFileIndex
	}
	_, err := g.Vertices().Resolve(ref, v)
	return err
}
