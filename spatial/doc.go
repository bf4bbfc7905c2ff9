// Package spatial indexes vertex positions per timepoint.
//
// Each timepoint owns an Index: a KD-tree built over a snapshot of its
// vertices, plus two sets describing the drift since that snapshot. Removed
// or moved vertices invalidate their tree node; added or moved vertices go
// to an overflow set that queries scan linearly. Rebuild folds both back
// into a fresh tree:
//
//	size     = valid tree nodes + overflow
//	modCount = invalid tree nodes + overflow
//
// Every state is an immutable IndexData published by pointer swap, so
// queries never block and always see one consistent state. Writers are
// serialized by a lock; rebuilds run under its read side.
//
// A SpatioTemporalIndex maps timepoints to indices and follows a graph as
// a listener:
//
//	sti := spatial.NewSpatioTemporalIndex(3)
//	detach, err := sti.Attach(g)
//	...
//	res := sti.NearestNeighbor(t, []float64{1, 2, 3})
package spatial
