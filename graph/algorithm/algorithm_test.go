package algorithm

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/celltrack/graph"
)

// lineage builds a division tree:
//
//	0 → 1 → 2
//	        ↘ 3 → 4
//	0 → 5
func lineage(t *testing.T) (*graph.Graph, []graph.Ref) {
	t.Helper()
	g, err := graph.New(graph.WithDimensions(2))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	tps := []int{0, 1, 2, 2, 3, 1}
	refs := make([]graph.Ref, len(tps))
	vs := make([]*graph.Vertex, len(tps))
	for i, tp := range tps {
		v, err := g.AddVertex(tp, []float64{float64(i), 0})
		require.NoError(t, err)
		vs[i], refs[i] = v, v.Ref()
	}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {1, 3}, {3, 4}, {0, 5}} {
		_, err := g.AddEdge(vs[e[0]], vs[e[1]])
		require.NoError(t, err)
	}
	return g, refs
}

func position(order []graph.Ref, r graph.Ref) int { return slices.Index(order, r) }

func TestTopologicalSort(t *testing.T) {
	g, refs := lineage(t)

	res := TopologicalSort(g)
	require.False(t, res.Failed())
	require.Equal(t, 6, res.Len())

	order := res.Order()
	for e := range g.Edges().All() {
		src, _ := g.IDBimap().VertexRef(int(e.SourceIndex()))
		dst, _ := g.IDBimap().VertexRef(int(e.TargetIndex()))
		assert.Less(t, position(order, dst), position(order, src))
	}
	assert.ElementsMatch(t, refs, order)
}

func TestTopologicalSort_Cycle(t *testing.T) {
	g, refs := lineage(t)

	v4, err := g.Vertices().Resolve(refs[4], nil)
	require.NoError(t, err)
	v1, err := g.Vertices().Resolve(refs[1], nil)
	require.NoError(t, err)
	_, err = g.AddEdge(v4, v1)
	require.NoError(t, err)

	res := TopologicalSort(g)
	assert.True(t, res.Failed())
	assert.Equal(t, 6, res.Len())
}

func TestTopologicalSort_SelfLoop(t *testing.T) {
	g, err := graph.New()
	require.NoError(t, err)
	defer g.Close()

	v, err := g.AddVertex(0, []float64{0, 0, 0})
	require.NoError(t, err)
	_, err = g.AddEdge(v, v)
	require.NoError(t, err)

	assert.True(t, TopologicalSort(g).Failed())
}

func TestTopologicalSort_Empty(t *testing.T) {
	g, err := graph.New()
	require.NoError(t, err)
	defer g.Close()

	res := TopologicalSort(g)
	assert.False(t, res.Failed())
	assert.Zero(t, res.Len())
}

func TestBreadthFirst_Directed(t *testing.T) {
	g, refs := lineage(t)

	var got []graph.Ref
	var depths []int
	for ref, d := range BreadthFirst(g, refs[0], Directed) {
		got = append(got, ref)
		depths = append(depths, d)
	}
	assert.Equal(t, []graph.Ref{refs[0], refs[1], refs[5], refs[2], refs[3], refs[4]}, got)
	assert.Equal(t, []int{0, 1, 1, 2, 2, 3}, depths)
}

func TestBreadthFirst_Reversed(t *testing.T) {
	g, refs := lineage(t)

	var got []graph.Ref
	for ref := range BreadthFirst(g, refs[4], Reversed) {
		got = append(got, ref)
	}
	assert.Equal(t, []graph.Ref{refs[4], refs[3], refs[1], refs[0]}, got)
}

func TestBreadthFirst_Undirected(t *testing.T) {
	g, refs := lineage(t)

	assert.ElementsMatch(t, refs, Track(g, refs[4]))
	assert.ElementsMatch(t, []graph.Ref{refs[2], refs[3], refs[4]}, Descendants(g, refs[1]))
	assert.Empty(t, Descendants(g, refs[5]))
}

func TestBreadthFirst_EarlyStopAndStale(t *testing.T) {
	g, refs := lineage(t)

	n := 0
	for range BreadthFirst(g, refs[0], Undirected) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	v, err := g.Vertices().Resolve(refs[5], nil)
	require.NoError(t, err)
	require.NoError(t, g.Remove(v))
	for range BreadthFirst(g, refs[5], Directed) {
		t.Fatal("stale start must yield nothing")
	}
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "directed", Directed.String())
	assert.Equal(t, "reversed", Reversed.String())
	assert.Equal(t, "undirected", Undirected.String())
	assert.Equal(t, "unknown", Direction(9).String())
}
