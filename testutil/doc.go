// Package testutil provides testing utilities for celltrack.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Positions
//
//	rng := testutil.NewRNG(seed)
//	pts := rng.Positions(1000, 3, 100) // coordinates in [0, 100)
//	next := rng.Jitter(pts[0], 0.5)
//
// # Exact Oracles
//
//	idx, sqd := testutil.ExactNearest(pts, query, nil)
//	in, out := testutil.ExactClip(pts, testutil.Box(lo, hi))
package testutil
