// Package resource governs shared limits of a model.
//
//   - Memory: slot chunk reservations, non-blocking and fail-fast
//   - Background: concurrent index rebuilds
//   - IO: model save and load throughput (token bucket)
//
// The controller plugs into the slot arenas as their memory acquirer:
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 30})
//	g, err := graph.New(graph.WithMemoryAcquirer(rc))
//
// All methods are safe for concurrent use, and a nil *Controller turns
// every method into a no-op.
package resource
