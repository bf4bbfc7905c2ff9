package graph

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T, opts ...Option) *Graph {
	t.Helper()
	g, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func outTargets(t *testing.T, v *Vertex) []int32 {
	t.Helper()
	var got []int32
	for e := range v.OutgoingEdges().All() {
		got = append(got, e.TargetIndex())
	}
	return got
}

func inSources(t *testing.T, v *Vertex) []int32 {
	t.Helper()
	var got []int32
	for e := range v.IncomingEdges().All() {
		got = append(got, e.SourceIndex())
	}
	return got
}

func TestAddVertex(t *testing.T) {
	g := newTestGraph(t, WithVertexAttributeBytes(4))

	v, err := g.AddVertex(3, []float64{1, 2, 3})
	require.NoError(t, err)
	defer g.ReleaseVertexRef(v)

	assert.Equal(t, 3, v.Timepoint())
	assert.Equal(t, []float64{1, 2, 3}, v.Position(nil))
	assert.Equal(t, 2.0, v.Coord(1))
	assert.Equal(t, 0, v.InDegree())
	assert.Equal(t, 0, v.OutDegree())
	assert.Len(t, v.Attributes(), 4)
	assert.Equal(t, 1, g.Vertices().Len())

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := g.AddVertex(0, []float64{1, 2})
		var dimErr *DimensionError
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 3, dimErr.Want)
		assert.Equal(t, 2, dimErr.Got)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("negative timepoint", func(t *testing.T) {
		_, err := g.AddVertex(-1, []float64{0, 0, 0})
		assert.ErrorIs(t, err, ErrNegativeTimepoint)
	})

	t.Run("set position", func(t *testing.T) {
		require.NoError(t, v.SetPosition([]float64{4, 5, 6}))
		assert.Equal(t, []float64{4, 5, 6}, v.Position(nil))
		assert.ErrorIs(t, v.SetPosition([]float64{1}), ErrDimensionMismatch)
	})
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(WithDimensions(0))
	require.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = New(WithEdgeAttributeBytes(-1))
	require.Error(t, err)
}

func TestAddEdge_Adjacency(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.AddVertex(0, []float64{0, 0, 0})
	b, _ := g.AddVertex(1, []float64{1, 0, 0})
	c, _ := g.AddVertex(1, []float64{2, 0, 0})

	ab, err := g.AddEdge(a, b)
	require.NoError(t, err)
	ac, err := g.AddEdge(a, c)
	require.NoError(t, err)

	assert.Equal(t, []int32{b.Index(), c.Index()}, outTargets(t, a))
	assert.Equal(t, []int32{a.Index()}, inSources(t, b))
	assert.Equal(t, 2, a.OutgoingEdges().Len())
	assert.Equal(t, 2, a.Edges().Len())
	assert.Equal(t, 0, ab.SourceOutIndex())
	assert.Equal(t, 1, ac.SourceOutIndex())
	assert.Equal(t, 0, ac.TargetInIndex())

	src, err := ac.Source(nil)
	require.NoError(t, err)
	assert.Equal(t, a.Ref(), src.Ref())
	tgt, err := ac.Target(src)
	require.NoError(t, err)
	assert.Same(t, src, tgt)
	assert.Equal(t, c.Ref(), tgt.Ref())

	t.Run("get edge", func(t *testing.T) {
		e, ok := g.GetEdge(a, c)
		require.True(t, ok)
		assert.Equal(t, ac.Ref(), e.Ref())

		h := g.EdgeRef()
		defer g.ReleaseEdgeRef(h)
		got, ok := g.GetEdgeRef(c, a, h)
		assert.False(t, ok)
		assert.Same(t, h, got)
	})

	t.Run("edges view is incoming then outgoing", func(t *testing.T) {
		bc, err := g.AddEdge(b, c)
		require.NoError(t, err)
		var got []Ref
		for e := range b.Edges().All() {
			got = append(got, e.Ref())
		}
		assert.Equal(t, []Ref{ab.Ref(), bc.Ref()}, got)
	})
}

func TestInsertEdge_ExactPositions(t *testing.T) {
	g := newTestGraph(t)
	src, _ := g.AddVertex(0, []float64{0, 0, 0})
	targets := make([]*Vertex, 4)
	for i := range targets {
		targets[i], _ = g.AddVertex(1, []float64{float64(i), 0, 0})
		_, err := g.AddEdge(src, targets[i])
		require.NoError(t, err)
	}

	// Remove the edge at position 2 and restore it where it was.
	e, ok := g.GetEdge(src, targets[2])
	require.True(t, ok)
	pos := e.SourceOutIndex()
	inPos := e.TargetInIndex()
	require.Equal(t, 2, pos)
	require.NoError(t, g.RemoveEdge(e))
	assert.ErrorIs(t, e.Validate(), ErrStaleRef)

	restored, err := g.InsertEdgeRef(src, pos, targets[2], inPos, e)
	require.NoError(t, err)
	assert.Same(t, e, restored)
	assert.Equal(t, 2, restored.SourceOutIndex())
	want := []int32{targets[0].Index(), targets[1].Index(), targets[2].Index(), targets[3].Index()}
	assert.Equal(t, want, outTargets(t, src))

	t.Run("head and past end", func(t *testing.T) {
		extra, _ := g.AddVertex(1, []float64{9, 9, 9})
		first, err := g.InsertEdge(src, 0, extra, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, first.SourceOutIndex())

		last, err := g.InsertEdge(src, 100, extra, 100)
		require.NoError(t, err)
		assert.Equal(t, 5, last.SourceOutIndex())
		assert.Equal(t, 1, last.TargetInIndex())
		assert.Equal(t, 6, src.OutDegree())
	})
}

func TestRemoveVertex_Scenario(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.AddVertex(0, []float64{0, 0, 0})
	b, _ := g.AddVertex(0, []float64{1, 0, 0})
	_, err := g.AddEdge(a, b)
	require.NoError(t, err)

	require.NoError(t, g.Remove(a))
	assert.Equal(t, 0, g.Edges().Len())
	assert.Equal(t, 1, g.Vertices().Len())
	assert.Equal(t, 0, b.InDegree())
	assert.Empty(t, inSources(t, b))
	assert.ErrorIs(t, a.Validate(), ErrStaleRef)
	assert.ErrorIs(t, g.Remove(a), ErrStaleRef)
}

func TestRemoveVertex_CascadeOrder(t *testing.T) {
	g := newTestGraph(t)
	hub, _ := g.AddVertex(1, []float64{0, 0, 0})
	for i := range 3 {
		other, _ := g.AddVertex(i, []float64{float64(i), 1, 0})
		if i%2 == 0 {
			_, _ = g.AddEdge(hub, other)
		} else {
			_, _ = g.AddEdge(other, hub)
		}
	}
	_, err := g.AddEdge(hub, hub)
	require.NoError(t, err)

	var sets []*ChangeSet
	g.AddListener(ListenerFunc(func(cs *ChangeSet) { sets = append(sets, cs) }))

	hubRef := hub.Ref()
	require.NoError(t, g.Remove(hub))
	require.Len(t, sets, 1, "cascade is delivered as one change set")

	cs := sets[0]
	require.Equal(t, 5, cs.Len())
	for i := range 4 {
		assert.Equal(t, EdgeRemoved, cs.At(i).Kind)
	}
	last := cs.At(4)
	assert.Equal(t, VertexRemoved, last.Kind)
	assert.Equal(t, hubRef, last.Ref)
	assert.Equal(t, 1, last.Timepoint)
	assert.Equal(t, []float64{0, 0, 0}, last.Position)
	assert.Equal(t, 0, g.Edges().Len())
}

func TestRemoveVertex_FreedEdgeSlot(t *testing.T) {
	g := newTestGraph(t)
	a, _ := g.AddVertex(0, []float64{0, 0, 0})
	b, _ := g.AddVertex(1, []float64{1, 0, 0})
	e, err := g.AddEdge(a, b)
	require.NoError(t, err)

	// Free the slot behind the graph's back so the adjacency lists still
	// point at it.
	require.NoError(t, g.edges.arena.Free(e.Ref()))

	var sets []*ChangeSet
	g.AddListener(ListenerFunc(func(cs *ChangeSet) { sets = append(sets, cs) }))

	err = g.Remove(a)
	require.ErrorIs(t, err, ErrStaleRef)
	var stale *StaleRefError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, e.Ref().Index, stale.Ref.Index)

	assert.NoError(t, a.Validate(), "vertex survives a failed cascade")
	assert.Equal(t, 1, a.OutDegree())
	assert.Empty(t, sets)

	assert.ErrorIs(t, g.RemoveEdge(e), ErrStaleRef)
}

func TestStaleRefAfterReuse(t *testing.T) {
	g := newTestGraph(t)
	v, _ := g.AddVertex(0, []float64{1, 1, 1})
	alias, err := g.Vertices().Resolve(v.Ref(), nil)
	require.NoError(t, err)

	require.NoError(t, g.Remove(v))
	w, err := g.AddVertex(5, []float64{2, 2, 2})
	require.NoError(t, err)
	require.Equal(t, v.Index(), w.Index(), "slot index is recycled")

	assert.ErrorIs(t, alias.Validate(), ErrStaleRef)
	assert.Equal(t, -1, alias.Timepoint())
	assert.Nil(t, alias.Position(nil))
	assert.ErrorIs(t, alias.SetPosition([]float64{0, 0, 0}), ErrStaleRef)
	_, err = g.AddEdge(alias, w)
	assert.ErrorIs(t, err, ErrStaleRef)

	var stale *StaleRefError
	_, err = g.Vertices().Resolve(alias.Ref(), nil)
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, w.Ref().Gen, stale.Current)
}

func TestForeignAndUnboundHandles(t *testing.T) {
	g1 := newTestGraph(t)
	g2 := newTestGraph(t)
	v1, _ := g1.AddVertex(0, []float64{0, 0, 0})
	v2, _ := g2.AddVertex(0, []float64{0, 0, 0})

	_, err := g1.AddEdge(v1, v2)
	assert.ErrorIs(t, err, ErrForeignHandle)

	h := g1.VertexRef()
	defer g1.ReleaseVertexRef(h)
	assert.ErrorIs(t, g1.Remove(h), ErrUnboundHandle)
}

func TestNetAddsProperty(t *testing.T) {
	g := newTestGraph(t)
	rng := rand.New(rand.NewPCG(1, 2))

	type edgeKey struct{ src, tgt Ref }
	live := map[Ref]bool{}
	liveEdges := map[Ref]edgeKey{}
	var order []Ref

	for step := 0; step < 2000; step++ {
		switch op := rng.IntN(10); {
		case op < 5 || len(order) < 2:
			v, err := g.AddVertex(rng.IntN(5), []float64{rng.Float64(), rng.Float64(), rng.Float64()})
			require.NoError(t, err)
			live[v.Ref()] = true
			order = append(order, v.Ref())
			g.ReleaseVertexRef(v)
		case op < 8:
			s, _ := g.Vertices().Resolve(order[rng.IntN(len(order))], nil)
			d, _ := g.Vertices().Resolve(order[rng.IntN(len(order))], nil)
			e, err := g.AddEdge(s, d)
			require.NoError(t, err)
			liveEdges[e.Ref()] = edgeKey{s.Ref(), d.Ref()}
			g.ReleaseEdgeRef(e)
			g.ReleaseVertexRef(s)
			g.ReleaseVertexRef(d)
		default:
			i := rng.IntN(len(order))
			ref := order[i]
			order = append(order[:i], order[i+1:]...)
			v, err := g.Vertices().Resolve(ref, nil)
			require.NoError(t, err)
			require.NoError(t, g.Remove(v))
			g.ReleaseVertexRef(v)
			delete(live, ref)
			for er, k := range liveEdges {
				if k.src == ref || k.tgt == ref {
					delete(liveEdges, er)
				}
			}
		}
	}

	require.Equal(t, len(live), g.Vertices().Len())
	require.Equal(t, len(liveEdges), g.Edges().Len())

	for v := range g.Vertices().All() {
		want := map[Ref]bool{}
		for er, k := range liveEdges {
			if k.src == v.Ref() || k.tgt == v.Ref() {
				want[er] = true
			}
		}
		got := map[Ref]bool{}
		for e := range v.Edges().All() {
			got[e.Ref()] = true
		}
		assert.Equal(t, want, got)
	}
}
