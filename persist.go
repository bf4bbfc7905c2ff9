package celltrack

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/celltrack/blobstore"
	"github.com/hupe1980/celltrack/graphio"
	"github.com/hupe1980/celltrack/resource"
)

// Saved model layout, big endian:
//
//	magic "CTRK"
//	int32 dimensions
//	int32 vertex attribute bytes
//	int32 edge attribute bytes
//	raw graph (see package graphio)
//	uint32 CRC32 (IEEE) of everything above
const (
	magic      = "CTRK"
	headerSize = 16
	trailerLen = 4
)

// Save writes the model to store under name. The blob is published
// atomically on success and discarded on failure.
func (m *Model) Save(ctx context.Context, store blobstore.BlobStore, name string) (err error) {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids *graphio.FileIDs
	defer func() {
		nv, ne := 0, 0
		if ids != nil {
			nv, ne = ids.NumVertices(), ids.NumEdges()
		}
		m.logger.LogSave(ctx, name, nv, ne, err)
	}()

	w, err := store.Create(ctx, name)
	if err != nil {
		return translateError(err)
	}

	rw := resource.NewRateLimitedWriter(ctx, w, m.opts.rc)
	cw := graphio.NewChecksumWriter(rw)

	var hdr [headerSize]byte
	copy(hdr[:4], magic)
	binary.BigEndian.PutUint32(hdr[4:], uint32(m.g.Dimensions()))
	binary.BigEndian.PutUint32(hdr[8:], uint32(m.g.Vertices().AttributeBytes()))
	binary.BigEndian.PutUint32(hdr[12:], uint32(m.g.Edges().AttributeBytes()))
	if _, err = cw.Write(hdr[:]); err != nil {
		_ = blobstore.Abort(w)
		return err
	}
	if ids, err = graphio.Write(cw, m.g, graphio.NewDefaultSerializer(m.g)); err != nil {
		_ = blobstore.Abort(w)
		return err
	}

	var trailer [trailerLen]byte
	binary.BigEndian.PutUint32(trailer[:], cw.Sum())
	if _, err = rw.Write(trailer[:]); err != nil {
		_ = blobstore.Abort(w)
		return err
	}
	return w.Close()
}

// Load reads a model saved with Save. Dimensions and attribute sizes come
// from the saved header; a conflicting WithDimensions option is an error.
// Indices are rebuilt before Load returns.
func Load(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (m *Model, err error) {
	o := applyOptions(optFns)
	var nv, ne int
	defer func() { o.logger.LogLoad(ctx, name, nv, ne, err) }()

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, translateError(err)
	}
	defer blob.Close()

	data, err := io.ReadAll(resource.NewRateLimitedReader(ctx, blobstore.NewReader(ctx, blob), o.rc))
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize+trailerLen {
		return nil, &LoadError{Name: name, Reason: "truncated header", Err: io.ErrUnexpectedEOF}
	}
	body, trailer := data[:len(data)-trailerLen], data[len(data)-trailerLen:]

	cr := graphio.NewChecksumReader(bytes.NewReader(body))
	var hdr [headerSize]byte
	if _, err := io.ReadFull(cr, hdr[:]); err != nil {
		return nil, &LoadError{Name: name, Reason: "reading header", Err: err}
	}
	if string(hdr[:4]) != magic {
		return nil, &LoadError{Name: name, Reason: fmt.Sprintf("bad magic %q", hdr[:4])}
	}
	dims := int(int32(binary.BigEndian.Uint32(hdr[4:])))
	vattrs := int(int32(binary.BigEndian.Uint32(hdr[8:])))
	eattrs := int(int32(binary.BigEndian.Uint32(hdr[12:])))
	if dims <= 0 || vattrs < 0 || eattrs < 0 {
		return nil, &LoadError{Name: name, Reason: "bad header"}
	}
	if o.dimensionsSet && o.dimensions != dims {
		return nil, &LoadError{
			Name:   name,
			Reason: fmt.Sprintf("saved model has %d dimensions, want %d", dims, o.dimensions),
			Err:    ErrDimensionMismatch,
		}
	}
	o.dimensions, o.vertexAttrBytes, o.edgeAttrBytes = dims, vattrs, eattrs

	m, err = newModel(o)
	if err != nil {
		return nil, err
	}

	ids, rerr := graphio.Read(cr, m.g, graphio.NewDefaultSerializer(m.g))
	// The checksum covers the whole body, including bytes the parser never
	// consumed.
	_, _ = io.Copy(io.Discard, cr)
	if verr := cr.Verify(binary.BigEndian.Uint32(trailer)); verr != nil {
		_ = m.Close()
		return nil, &LoadError{Name: name, Reason: "verifying checksum", Err: verr}
	}
	if rerr != nil {
		_ = m.Close()
		return nil, &LoadError{Name: name, Reason: "reading graph", Err: rerr}
	}
	nv, ne = ids.NumVertices(), ids.NumEdges()

	if err := m.index.RebuildAll(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	m.start()
	return m, nil
}
