package celltrack

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/graph/algorithm"
	"github.com/hupe1980/celltrack/selection"
	"github.com/hupe1980/celltrack/spatial"
)

// Model bundles a lineage graph with its spatio-temporal index and a
// selection, guarded by one reader/writer lock.
//
// The Model methods lock internally. Code that works on Graph(), Index() or
// Selection() directly holds Lock or RLock for the duration.
type Model struct {
	mu         sync.RWMutex
	g          *graph.Graph
	index      *spatial.SpatioTemporalIndex
	selection  *selection.Model
	maintainer *spatial.Maintainer
	detach     []func()

	opts    options
	logger  *Logger
	metrics MetricsCollector
	closed  atomic.Bool
}

// VertexInfo is a value snapshot of a vertex.
type VertexInfo struct {
	Ref       graph.Ref
	Timepoint int
	Position  []float64
	InDegree  int
	OutDegree int
}

// New creates an empty model.
func New(optFns ...Option) (*Model, error) {
	m, err := newModel(applyOptions(optFns))
	if err != nil {
		return nil, err
	}
	m.start()
	return m, nil
}

func newModel(o options) (*Model, error) {
	g, err := graph.New(o.graphOptions()...)
	if err != nil {
		return nil, translateError(err)
	}

	m := &Model{
		g:       g,
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
	m.index = spatial.NewSpatioTemporalIndex(g.Dimensions(), o.spatialOptions()...)
	detachIndex, err := m.index.Attach(g)
	if err != nil {
		_ = g.Close()
		return nil, translateError(err)
	}
	m.detach = append(m.detach, detachIndex, g.AddListener(graph.ListenerFunc(m.recordChanges)))
	m.selection = selection.New(g)
	return m, nil
}

func (m *Model) start() {
	if m.opts.maintenanceInterval <= 0 {
		return
	}
	m.maintainer = spatial.NewMaintainer(m.index, m.opts.maintenanceInterval, m.opts.rebuildThreshold)
	m.maintainer.Start(context.Background())
}

func (m *Model) recordChanges(cs *graph.ChangeSet) {
	for c := range cs.All() {
		switch c.Kind {
		case graph.VertexAdded:
			m.metrics.OnVertexAdded()
		case graph.VertexRemoved:
			m.metrics.OnVertexRemoved()
		case graph.VertexMoved:
			m.metrics.OnVertexMoved()
		case graph.EdgeAdded:
			m.metrics.OnEdgeAdded()
		case graph.EdgeRemoved:
			m.metrics.OnEdgeRemoved()
		}
	}
}

func (m *Model) checkOpen() error {
	if m.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Lock acquires the model's write lock.
func (m *Model) Lock() { m.mu.Lock() }

// Unlock releases the write lock.
func (m *Model) Unlock() { m.mu.Unlock() }

// RLock acquires the model's read lock.
func (m *Model) RLock() { m.mu.RLock() }

// RUnlock releases the read lock.
func (m *Model) RUnlock() { m.mu.RUnlock() }

// Graph returns the underlying graph.
func (m *Model) Graph() *graph.Graph { return m.g }

// Index returns the spatio-temporal index that follows the graph.
func (m *Model) Index() *spatial.SpatioTemporalIndex { return m.index }

// Selection returns the selection that follows the graph.
func (m *Model) Selection() *selection.Model { return m.selection }

// Dimensions returns the number of position coordinates per vertex.
func (m *Model) Dimensions() int { return m.g.Dimensions() }

// NumVertices returns the number of live vertices.
func (m *Model) NumVertices() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g.Vertices().Len()
}

// NumEdges returns the number of live edges.
func (m *Model) NumEdges() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.g.Edges().Len()
}

// Update runs fn under the write lock inside a graph transaction, so
// listeners receive all of fn's changes as one ChangeSet. Changes made
// before fn fails are kept.
func (m *Model) Update(fn func(g *graph.Graph) error) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx, err := m.g.Begin()
	if err != nil {
		return err
	}
	ferr := fn(m.g)
	if _, err := tx.Commit(); ferr == nil {
		ferr = err
	}
	return translateError(ferr)
}

// View runs fn under the read lock. fn must not mutate the graph.
func (m *Model) View(fn func(g *graph.Graph) error) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return translateError(fn(m.g))
}

// AddVertex adds a vertex at timepoint t.
func (m *Model) AddVertex(t int, pos []float64) (graph.Ref, error) {
	if err := m.checkOpen(); err != nil {
		return graph.NilRef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.g.VertexRef()
	defer m.g.ReleaseVertexRef(v)
	if _, err := m.g.AddVertexRef(v, t, pos); err != nil {
		return graph.NilRef, translateError(err)
	}
	return v.Ref(), nil
}

// AddEdge links source to target.
func (m *Model) AddEdge(source, target graph.Ref) (graph.Ref, error) {
	if err := m.checkOpen(); err != nil {
		return graph.NilRef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	src, tgt, e := m.g.VertexRef(), m.g.VertexRef(), m.g.EdgeRef()
	defer func() {
		m.g.ReleaseVertexRef(src)
		m.g.ReleaseVertexRef(tgt)
		m.g.ReleaseEdgeRef(e)
	}()
	if _, err := m.g.Vertices().Resolve(source, src); err != nil {
		return graph.NilRef, err
	}
	if _, err := m.g.Vertices().Resolve(target, tgt); err != nil {
		return graph.NilRef, err
	}
	if _, err := m.g.AddEdgeRef(src, tgt, e); err != nil {
		return graph.NilRef, translateError(err)
	}
	return e.Ref(), nil
}

// RemoveVertex removes a vertex and its incident edges.
func (m *Model) RemoveVertex(ref graph.Ref) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.g.VertexRef()
	defer m.g.ReleaseVertexRef(v)
	if _, err := m.g.Vertices().Resolve(ref, v); err != nil {
		return err
	}
	return m.g.Remove(v)
}

// RemoveEdge removes an edge.
func (m *Model) RemoveEdge(ref graph.Ref) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.g.EdgeRef()
	defer m.g.ReleaseEdgeRef(e)
	if _, err := m.g.Edges().Resolve(ref, e); err != nil {
		return err
	}
	return m.g.RemoveEdge(e)
}

// SetPosition moves a vertex within its timepoint.
func (m *Model) SetPosition(ref graph.Ref, pos []float64) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.g.VertexRef()
	defer m.g.ReleaseVertexRef(v)
	if _, err := m.g.Vertices().Resolve(ref, v); err != nil {
		return err
	}
	return translateError(v.SetPosition(pos))
}

// Vertex returns a snapshot of the vertex behind ref.
func (m *Model) Vertex(ref graph.Ref) (VertexInfo, error) {
	if err := m.checkOpen(); err != nil {
		return VertexInfo{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := m.g.VertexRef()
	defer m.g.ReleaseVertexRef(v)
	if _, err := m.g.Vertices().Resolve(ref, v); err != nil {
		return VertexInfo{}, err
	}
	return VertexInfo{
		Ref:       ref,
		Timepoint: v.Timepoint(),
		Position:  v.Position(nil),
		InDegree:  v.InDegree(),
		OutDegree: v.OutDegree(),
	}, nil
}

// NearestNeighbor returns the vertex at timepoint t closest to pos. The
// search runs against the index snapshot current at the call and takes no
// model lock.
func (m *Model) NearestNeighbor(t int, pos []float64) (spatial.Result, error) {
	if err := m.checkOpen(); err != nil {
		return spatial.Result{}, err
	}
	if len(pos) != m.Dimensions() {
		return spatial.Result{}, &graph.DimensionError{Want: m.Dimensions(), Got: len(pos)}
	}
	start := time.Now()
	res := m.index.NearestNeighbor(t, pos)
	m.metrics.OnQuery(QueryNearest, time.Since(start))
	return res, nil
}

// Clip partitions the vertices at timepoint t by the convex polytope
// bounded by planes. Querying a timepoint without vertices leaves the index
// untouched.
func (m *Model) Clip(t int, planes ...spatial.HyperPlane) (*spatial.ClipConvexPolytope, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	start := time.Now()
	c, err := m.index.Clip(t, spatial.NewConvexPolytope(planes...))
	if err != nil {
		return nil, translateError(err)
	}
	m.metrics.OnQuery(QueryClip, time.Since(start))
	return c, nil
}

// Rebuild rebuilds every per-timepoint index with pending modifications.
func (m *Model) Rebuild(ctx context.Context) error {
	if err := m.checkOpen(); err != nil {
		return err
	}
	start := time.Now()
	n, err := m.index.RebuildIfNeeded(ctx, 0)
	m.logger.LogRebuild(ctx, n, time.Since(start), err)
	return err
}

// RebuildIfNeeded rebuilds the indices whose ModCount exceeds the
// configured threshold and returns how many were rebuilt.
func (m *Model) RebuildIfNeeded(ctx context.Context) (int, error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}
	start := time.Now()
	n, err := m.index.RebuildIfNeeded(ctx, m.opts.rebuildThreshold)
	m.logger.LogRebuild(ctx, n, time.Since(start), err)
	return n, err
}

// Track returns the vertices connected to ref by lineage edges in either
// direction, ref included.
func (m *Model) Track(ref graph.Ref) ([]graph.Ref, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v := m.g.VertexRef()
	defer m.g.ReleaseVertexRef(v)
	if _, err := m.g.Vertices().Resolve(ref, v); err != nil {
		return nil, err
	}
	return algorithm.Track(m.g, ref), nil
}

// TopologicalSort orders the vertices so that edge targets precede their
// sources. The result reports Failed if the graph has a cycle.
func (m *Model) TopologicalSort() (*algorithm.TopologicalOrder, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return algorithm.TopologicalSort(m.g), nil
}

// Close stops background maintenance and releases slot memory. It is
// idempotent.
func (m *Model) Close() error {
	if m == nil || m.closed.Swap(true) {
		return nil
	}
	if m.maintainer != nil {
		m.maintainer.Stop()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.selection.Close()
	for _, fn := range m.detach {
		fn()
	}
	m.detach = nil
	return m.g.Close()
}
