package celltrack

import (
	"context"
	"testing"
	"time"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, opts ...Option) *Model {
	t.Helper()
	m, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestModel(t *testing.T) {
	t.Run("RemoveVertexScenario", func(t *testing.T) {
		m := newTestModel(t)

		a, err := m.AddVertex(0, []float64{0, 0, 0})
		require.NoError(t, err)
		b, err := m.AddVertex(0, []float64{1, 0, 0})
		require.NoError(t, err)
		_, err = m.AddEdge(a, b)
		require.NoError(t, err)

		require.NoError(t, m.RemoveVertex(a))

		assert.Equal(t, 0, m.NumEdges())
		assert.Equal(t, 1, m.NumVertices())

		idx, ok := m.Index().Lookup(0)
		require.True(t, ok)
		assert.Equal(t, 1, idx.Size())
		assert.True(t, idx.Contains(b))
		assert.False(t, idx.Contains(a))
	})

	t.Run("NearestRoundTrip", func(t *testing.T) {
		m := newTestModel(t)
		p := []float64{3, 4, 5}
		ref, err := m.AddVertex(2, p)
		require.NoError(t, err)
		_, err = m.AddVertex(2, []float64{10, 10, 10})
		require.NoError(t, err)

		res, err := m.NearestNeighbor(2, p)
		require.NoError(t, err)
		require.True(t, res.Found)
		assert.Equal(t, ref, res.Ref)
		assert.Zero(t, res.SquareDistance)

		res, err = m.NearestNeighbor(7, p)
		require.NoError(t, err)
		assert.False(t, res.Found)

		_, err = m.NearestNeighbor(2, []float64{1})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("ClipScenario", func(t *testing.T) {
		m := newTestModel(t)
		in, err := m.AddVertex(0, []float64{0, 0, 0})
		require.NoError(t, err)
		out, err := m.AddVertex(0, []float64{10, 0, 0})
		require.NoError(t, err)

		// x < 5
		c, err := m.Clip(0, spatial.HyperPlane{Normal: []float64{-1, 0, 0}, Distance: -5})
		require.NoError(t, err)
		assert.Equal(t, []graph.Ref{in}, c.InsideRefs())
		assert.Equal(t, []graph.Ref{out}, c.OutsideRefs())

		_, err = m.Clip(0, spatial.HyperPlane{Normal: []float64{1}, Distance: 0})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		_, err = m.Clip(-1)
		assert.ErrorIs(t, err, ErrNegativeTimepoint)
	})

	t.Run("SetPosition", func(t *testing.T) {
		m := newTestModel(t)
		ref, err := m.AddVertex(0, []float64{0, 0, 0})
		require.NoError(t, err)
		require.NoError(t, m.SetPosition(ref, []float64{9, 9, 9}))

		info, err := m.Vertex(ref)
		require.NoError(t, err)
		assert.Equal(t, []float64{9, 9, 9}, info.Position)
		assert.Equal(t, 0, info.Timepoint)

		res, err := m.NearestNeighbor(0, []float64{9, 9, 9})
		require.NoError(t, err)
		assert.Equal(t, ref, res.Ref)
		assert.Zero(t, res.SquareDistance)

		assert.ErrorIs(t, m.SetPosition(ref, []float64{1}), ErrDimensionMismatch)
	})

	t.Run("StaleRefs", func(t *testing.T) {
		m := newTestModel(t)
		a, err := m.AddVertex(0, []float64{0, 0, 0})
		require.NoError(t, err)
		b, err := m.AddVertex(0, []float64{1, 0, 0})
		require.NoError(t, err)
		e, err := m.AddEdge(a, b)
		require.NoError(t, err)

		require.NoError(t, m.RemoveEdge(e))
		assert.ErrorIs(t, m.RemoveEdge(e), ErrStaleRef)

		require.NoError(t, m.RemoveVertex(a))
		_, err = m.Vertex(a)
		assert.ErrorIs(t, err, ErrStaleRef)
		_, err = m.AddEdge(a, b)
		assert.ErrorIs(t, err, ErrStaleRef)
		assert.ErrorIs(t, m.SetPosition(a, []float64{0, 0, 0}), ErrStaleRef)

		// The freed slot is reused, the old ref stays stale.
		c, err := m.AddVertex(0, []float64{2, 0, 0})
		require.NoError(t, err)
		assert.Equal(t, a.Index, c.Index)
		_, err = m.Vertex(a)
		assert.ErrorIs(t, err, ErrStaleRef)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		m := newTestModel(t)
		_, err := m.AddVertex(-1, []float64{0, 0, 0})
		assert.ErrorIs(t, err, ErrNegativeTimepoint)
		_, err = m.AddVertex(0, []float64{0, 0})
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		_, err = New(WithDimensions(0))
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestModel_UpdateDeliversOneChangeSet(t *testing.T) {
	m := newTestModel(t)

	var sets []*graph.ChangeSet
	m.Lock()
	remove := m.Graph().AddListener(graph.ListenerFunc(func(cs *graph.ChangeSet) {
		sets = append(sets, cs)
	}))
	m.Unlock()
	defer remove()

	err := m.Update(func(g *graph.Graph) error {
		a, err := g.AddVertex(0, []float64{0, 0, 0})
		if err != nil {
			return err
		}
		b, err := g.AddVertex(1, []float64{0, 0, 1})
		if err != nil {
			return err
		}
		_, err = g.AddEdge(a, b)
		return err
	})
	require.NoError(t, err)

	require.Len(t, sets, 1)
	assert.Equal(t, 3, sets[0].Len())
	assert.Equal(t, 2, m.Index().Size())

	err = m.View(func(g *graph.Graph) error {
		assert.Equal(t, 2, g.Vertices().Len())
		return nil
	})
	require.NoError(t, err)
}

func TestModel_UpdateKeepsChangesOnError(t *testing.T) {
	m := newTestModel(t)

	err := m.Update(func(g *graph.Graph) error {
		if _, err := g.AddVertex(0, []float64{0, 0, 0}); err != nil {
			return err
		}
		_, err := g.AddVertex(-1, []float64{0, 0, 0})
		return err
	})
	require.ErrorIs(t, err, ErrNegativeTimepoint)
	assert.Equal(t, 1, m.NumVertices())
	assert.Equal(t, 1, m.Index().Size())
}

func TestModel_TrackAndTopologicalSort(t *testing.T) {
	m := newTestModel(t)

	// root -> a, root -> b (division), a -> a2; c unrelated
	root, _ := m.AddVertex(0, []float64{0, 0, 0})
	a, _ := m.AddVertex(1, []float64{-1, 0, 0})
	b, _ := m.AddVertex(1, []float64{1, 0, 0})
	a2, _ := m.AddVertex(2, []float64{-2, 0, 0})
	c, _ := m.AddVertex(0, []float64{50, 0, 0})
	for _, e := range [][2]graph.Ref{{root, a}, {root, b}, {a, a2}} {
		_, err := m.AddEdge(e[0], e[1])
		require.NoError(t, err)
	}

	track, err := m.Track(a2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []graph.Ref{root, a, b, a2}, track)
	assert.NotContains(t, track, c)

	order, err := m.TopologicalSort()
	require.NoError(t, err)
	require.False(t, order.Failed())
	assert.Equal(t, 5, order.Len())
	pos := func(r graph.Ref) int {
		for i, x := range order.Order() {
			if x == r {
				return i
			}
		}
		return -1
	}
	assert.Less(t, pos(a2), pos(a))
	assert.Less(t, pos(a), pos(root))
	assert.Less(t, pos(b), pos(root))

	_, err = m.AddEdge(a2, root)
	require.NoError(t, err)
	order, err = m.TopologicalSort()
	require.NoError(t, err)
	assert.True(t, order.Failed())
}

func TestModel_SelectionFollowsGraph(t *testing.T) {
	m := newTestModel(t)
	a, _ := m.AddVertex(0, []float64{0, 0, 0})
	b, _ := m.AddVertex(1, []float64{0, 0, 0})
	_, err := m.AddEdge(a, b)
	require.NoError(t, err)

	m.RLock()
	require.NoError(t, m.Selection().SelectTrack(a))
	m.RUnlock()
	assert.Equal(t, 2, m.Selection().NumVertices())
	assert.Equal(t, 1, m.Selection().NumEdges())

	require.NoError(t, m.RemoveVertex(a))
	assert.Equal(t, 1, m.Selection().NumVertices())
	assert.Equal(t, 0, m.Selection().NumEdges())
	assert.True(t, m.Selection().IsVertexSelected(b))
}

func TestModel_ClipLeavesIndexUntouched(t *testing.T) {
	m := newTestModel(t)
	_, err := m.AddVertex(0, []float64{1, 1, 1})
	require.NoError(t, err)

	c, err := m.Clip(42, spatial.HyperPlane{Normal: []float64{1, 0, 0}, Distance: 0})
	require.NoError(t, err)
	assert.Empty(t, c.InsideRefs())
	assert.Empty(t, c.OutsideRefs())
	assert.Equal(t, []int{0}, m.Index().Timepoints())
}

func TestModel_Rebuild(t *testing.T) {
	m := newTestModel(t, WithRebuildThreshold(2))
	for i := range 3 {
		_, err := m.AddVertex(0, []float64{float64(i), 0, 0})
		require.NoError(t, err)
	}
	_, err := m.AddVertex(1, []float64{0, 0, 0})
	require.NoError(t, err)

	n, err := m.RebuildIfNeeded(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	idx0, _ := m.Index().Lookup(0)
	idx1, _ := m.Index().Lookup(1)
	assert.Equal(t, 0, idx0.ModCount())
	assert.Equal(t, 1, idx1.ModCount())

	require.NoError(t, m.Rebuild(context.Background()))
	assert.Equal(t, 0, m.Index().ModCount())
	assert.Equal(t, 4, m.Index().Size())
}

func TestModel_BackgroundMaintenance(t *testing.T) {
	m := newTestModel(t, WithRebuildThreshold(0), WithMaintenanceInterval(5*time.Millisecond))

	_, err := m.AddVertex(0, []float64{1, 2, 3})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return m.Index().ModCount() == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, m.Index().Size())
}

func TestModel_Close(t *testing.T) {
	m, err := New(WithMaintenanceInterval(time.Millisecond))
	require.NoError(t, err)
	ref, err := m.AddVertex(0, []float64{0, 0, 0})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = m.AddVertex(0, []float64{0, 0, 0})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.Vertex(ref)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.NearestNeighbor(0, []float64{0, 0, 0})
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.Update(func(*graph.Graph) error { return nil }), ErrClosed)
}

func TestModel_ConcurrentQueries(t *testing.T) {
	m := newTestModel(t)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 500 {
			_, _ = m.AddVertex(i%4, []float64{float64(i), 0, 0})
			if i%50 == 0 {
				_ = m.Rebuild(context.Background())
			}
		}
	}()
	for range 500 {
		_, err := m.NearestNeighbor(1, []float64{3, 0, 0})
		require.NoError(t, err)
		_ = m.NumVertices()
	}
	<-done
	assert.Equal(t, 500, m.NumVertices())
	assert.Equal(t, 500, m.Index().Size())
}
