package celltrack

import (
	"sync/atomic"
	"time"
)

// QueryKind names a spatial query for metrics.
type QueryKind string

const (
	QueryNearest QueryKind = "nearest"
	QueryClip    QueryKind = "clip"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems;
// PrometheusCollector is a ready-made one.
//
// Graph counters are fed from change sets, so they also count the edges
// removed by a vertex removal cascade.
type MetricsCollector interface {
	OnVertexAdded()
	OnVertexRemoved()
	OnVertexMoved()
	OnEdgeAdded()
	OnEdgeRemoved()

	// OnRebuild is called after a per-timepoint spatial index rebuild.
	OnRebuild(timepoint, size int, took time.Duration)

	// OnQuery is called after each spatial query issued through the Model.
	OnQuery(kind QueryKind, took time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) OnVertexAdded()                    {}
func (NoopMetricsCollector) OnVertexRemoved()                  {}
func (NoopMetricsCollector) OnVertexMoved()                    {}
func (NoopMetricsCollector) OnEdgeAdded()                      {}
func (NoopMetricsCollector) OnEdgeRemoved()                    {}
func (NoopMetricsCollector) OnRebuild(int, int, time.Duration) {}
func (NoopMetricsCollector) OnQuery(QueryKind, time.Duration)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	VerticesAdded     atomic.Int64
	VerticesRemoved   atomic.Int64
	VerticesMoved     atomic.Int64
	EdgesAdded        atomic.Int64
	EdgesRemoved      atomic.Int64
	Rebuilds          atomic.Int64
	RebuildTotalNanos atomic.Int64
	NearestCount      atomic.Int64
	NearestTotalNanos atomic.Int64
	ClipCount         atomic.Int64
	ClipTotalNanos    atomic.Int64
}

// OnVertexAdded implements MetricsCollector.
func (b *BasicMetricsCollector) OnVertexAdded() { b.VerticesAdded.Add(1) }

// OnVertexRemoved implements MetricsCollector.
func (b *BasicMetricsCollector) OnVertexRemoved() { b.VerticesRemoved.Add(1) }

// OnVertexMoved implements MetricsCollector.
func (b *BasicMetricsCollector) OnVertexMoved() { b.VerticesMoved.Add(1) }

// OnEdgeAdded implements MetricsCollector.
func (b *BasicMetricsCollector) OnEdgeAdded() { b.EdgesAdded.Add(1) }

// OnEdgeRemoved implements MetricsCollector.
func (b *BasicMetricsCollector) OnEdgeRemoved() { b.EdgesRemoved.Add(1) }

// OnRebuild implements MetricsCollector.
func (b *BasicMetricsCollector) OnRebuild(_, _ int, took time.Duration) {
	b.Rebuilds.Add(1)
	b.RebuildTotalNanos.Add(took.Nanoseconds())
}

// OnQuery implements MetricsCollector.
func (b *BasicMetricsCollector) OnQuery(kind QueryKind, took time.Duration) {
	switch kind {
	case QueryNearest:
		b.NearestCount.Add(1)
		b.NearestTotalNanos.Add(took.Nanoseconds())
	case QueryClip:
		b.ClipCount.Add(1)
		b.ClipTotalNanos.Add(took.Nanoseconds())
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		VerticesAdded:   b.VerticesAdded.Load(),
		VerticesRemoved: b.VerticesRemoved.Load(),
		VerticesMoved:   b.VerticesMoved.Load(),
		EdgesAdded:      b.EdgesAdded.Load(),
		EdgesRemoved:    b.EdgesRemoved.Load(),
		Rebuilds:        b.Rebuilds.Load(),
		RebuildAvgNanos: avg(b.RebuildTotalNanos.Load(), b.Rebuilds.Load()),
		NearestCount:    b.NearestCount.Load(),
		NearestAvgNanos: avg(b.NearestTotalNanos.Load(), b.NearestCount.Load()),
		ClipCount:       b.ClipCount.Load(),
		ClipAvgNanos:    avg(b.ClipTotalNanos.Load(), b.ClipCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	VerticesAdded   int64
	VerticesRemoved int64
	VerticesMoved   int64
	EdgesAdded      int64
	EdgesRemoved    int64
	Rebuilds        int64
	RebuildAvgNanos int64
	NearestCount    int64
	NearestAvgNanos int64
	ClipCount       int64
	ClipAvgNanos    int64
}
