package graph

import (
	"encoding/binary"
	"math"
)

// Vertex slot layout. Position starts at vPosition and holds one float64
// per dimension, followed by the caller's attribute bytes.
const (
	vFirstIn   = 0
	vFirstOut  = 4
	vNumIn     = 8
	vNumOut    = 12
	vTimepoint = 16
	vPosition  = 20
)

// Edge slot layout, followed by the caller's attribute bytes.
const (
	eSource  = 0
	eTarget  = 4
	eNextOut = 8
	eNextIn  = 12
	eAttrs   = 16
)

// none marks an empty adjacency link.
const none int32 = -1

var le = binary.LittleEndian

func getInt32(b []byte, off int) int32 {
	return int32(le.Uint32(b[off:]))
}

func putInt32(b []byte, off int, v int32) {
	le.PutUint32(b[off:], uint32(v))
}

func getFloat64(b []byte, off int) float64 {
	return math.Float64frombits(le.Uint64(b[off:]))
}

func putFloat64(b []byte, off int, v float64) {
	le.PutUint64(b[off:], math.Float64bits(v))
}
