// Package celltrack is an in-process storage engine for cell-lineage graphs
// over time-lapse data.
//
// Vertices are cell detections with a timepoint and a position; edges link a
// detection to its successor (or to both daughters at a division). Entities
// live in fixed-size slots of a generational arena and are addressed through
// flyweight graph.Ref handles, so millions of detections cost no per-object
// GC overhead. A per-timepoint KD-tree index follows the graph through
// change events and answers nearest-neighbor and convex-polytope queries.
//
// # Quick Start
//
//	m, err := celltrack.New(celltrack.WithDimensions(3))
//	if err != nil {
//	    panic(err)
//	}
//	defer m.Close()
//
//	a, _ := m.AddVertex(0, []float64{1, 2, 3})
//	b, _ := m.AddVertex(1, []float64{1.5, 2, 3})
//	_, _ = m.AddEdge(a, b)
//
//	res, _ := m.NearestNeighbor(1, []float64{1, 2, 3})
//	fmt.Println(res.Ref == b, res.Distance())
//
// Half-space and polytope queries:
//
//	// x < 5
//	clip, _ := m.Clip(0, spatial.HyperPlane{Normal: []float64{-1, 0, 0}, Distance: -5})
//	for ref := range clip.Inside() {
//	    ...
//	}
//
// # Batched edits
//
// Update groups several mutations into one transaction; listeners (the index,
// the selection, metrics) see them as a single ChangeSet:
//
//	err := m.Update(func(g *graph.Graph) error {
//	    ...
//	})
//
// # Index maintenance
//
// Additions and removals land in an overflow set and an invalidation bitmap;
// queries stay correct but slow down as they grow. Rebuild, RebuildIfNeeded or
// a background maintainer (WithMaintenanceInterval) fold them back into a
// fresh tree.
//
// # Persistence
//
// Save and Load move a model through any blobstore.BlobStore (local files,
// memory, MinIO, S3):
//
//	store := blobstore.NewLocalStore("./data")
//	err := m.Save(ctx, store, "embryo-01.ctrk")
//	m2, err := celltrack.Load(ctx, store, "embryo-01.ctrk")
package celltrack
