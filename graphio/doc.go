// Package graphio reads and writes the raw binary form of a graph.
//
// The layout is big endian and has no header; wrapping formats supply
// magic and versioning:
//
//	int32 vertexCount
//	vertexCount × vertex record   (Serializer.VertexNumBytes bytes each)
//	int32 edgeCount
//	edgeCount × {
//	    int32 sourceFileIndex
//	    int32 targetFileIndex
//	    int32 sourceOutIndex
//	    int32 targetInIndex
//	    edge record                (Serializer.EdgeNumBytes bytes)
//	}
//
// File indices are dense positions in the file, independent of slot indices.
// Write and Read return a FileIDs table relating them to the graph's Refs,
// which lets companion files refer to entities across sessions.
//
// Edges are written in source-out order and restored with InsertEdge, so
// outgoing lists round-trip exactly. Incoming lists round-trip exactly when
// each vertex's incoming edges appear in the file in targetInIndex order or
// number at most two, which covers lineage graphs with merges.
package graphio
