package spatial

import (
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/celltrack/graph"
	"github.com/hupe1980/celltrack/testutil"
)

func ref(i int32) graph.Ref { return graph.Ref{Index: i, Gen: 1} }

func fill(t *testing.T, x *Index, points [][]float64) {
	t.Helper()
	for i, p := range points {
		require.NoError(t, x.Add(ref(int32(i)), p))
	}
}

func TestIndex_Empty(t *testing.T) {
	x := NewIndex(0, 3)

	assert.Zero(t, x.Size())
	assert.Zero(t, x.ModCount())

	res := x.NearestNeighbor([]float64{1, 2, 3})
	assert.False(t, res.Found)
	assert.True(t, res.Ref.IsNil())
	assert.True(t, math.IsNaN(res.SquareDistance))
	assert.True(t, math.IsNaN(res.Distance()))

	c, err := x.Clip(NewConvexPolytope(HyperPlane{Normal: []float64{1, 0, 0}, Distance: 0}))
	require.NoError(t, err)
	assert.Empty(t, c.InsideRefs())
	assert.Empty(t, c.OutsideRefs())

	require.NoError(t, x.Rebuild())
	assert.Zero(t, x.Size())
}

func TestIndex_NearestRoundTrip(t *testing.T) {
	x := NewIndex(0, 3)
	p := []float64{1.5, -2, 7}
	require.NoError(t, x.Add(ref(4), p))

	res := x.NearestNeighbor(p)
	require.True(t, res.Found)
	assert.Equal(t, ref(4), res.Ref)
	assert.Zero(t, res.SquareDistance)
	assert.Equal(t, p, res.Position)

	require.NoError(t, x.Rebuild())
	res = x.NearestNeighbor(p)
	assert.Equal(t, ref(4), res.Ref)
	assert.Zero(t, res.SquareDistance)
}

func TestIndex_AddCopiesPosition(t *testing.T) {
	x := NewIndex(0, 2)
	p := []float64{1, 1}
	require.NoError(t, x.Add(ref(0), p))
	p[0] = 100

	got, ok := x.Snapshot().Position(ref(0))
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1}, got)
}

func TestIndex_DimensionMismatch(t *testing.T) {
	x := NewIndex(0, 3)
	assert.ErrorIs(t, x.Add(ref(0), []float64{1, 2}), ErrDimensionMismatch)
	assert.Zero(t, x.Size())

	require.NoError(t, x.Add(ref(0), []float64{1, 2, 3}))
	assert.False(t, x.NearestNeighbor([]float64{1}).Found)

	_, err := x.Clip(NewConvexPolytope(HyperPlane{Normal: []float64{1}, Distance: 0}))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestIndex_ModCount(t *testing.T) {
	rng := testutil.NewRNG(1)
	points := rng.Positions(50, 3, 10)

	x := NewIndex(0, 3)
	for i, p := range points {
		before := x.ModCount()
		require.NoError(t, x.Add(ref(int32(i)), p))
		assert.Equal(t, before+1, x.ModCount())
	}
	assert.Equal(t, 50, x.Size())

	require.NoError(t, x.Rebuild())
	assert.Zero(t, x.ModCount())
	assert.Equal(t, 50, x.Size())

	// Removing a tree node invalidates it.
	require.True(t, x.Remove(ref(3)))
	assert.Equal(t, 1, x.ModCount())
	assert.Equal(t, 49, x.Size())

	// Removing an overflow member drops it.
	require.NoError(t, x.Add(ref(100), []float64{1, 1, 1}))
	assert.Equal(t, 2, x.ModCount())
	assert.Equal(t, 50, x.Size())
	require.True(t, x.Remove(ref(100)))
	assert.Equal(t, 1, x.ModCount())
	assert.Equal(t, 49, x.Size())

	// Absent vertices are a no-op.
	assert.False(t, x.Remove(ref(3)))
	assert.False(t, x.Remove(ref(999)))
	assert.Equal(t, 1, x.ModCount())

	// Re-adding an overflow member leaves size and modCount unchanged.
	require.NoError(t, x.Add(ref(200), []float64{2, 2, 2}))
	size, mods := x.Size(), x.ModCount()
	require.NoError(t, x.Add(ref(200), []float64{3, 3, 3}))
	assert.Equal(t, size, x.Size())
	assert.Equal(t, mods, x.ModCount())
}

func TestIndex_MoveTreeNode(t *testing.T) {
	x := NewIndex(0, 3)
	require.NoError(t, x.Add(ref(0), []float64{0, 0, 0}))
	require.NoError(t, x.Add(ref(1), []float64{5, 5, 5}))
	require.NoError(t, x.Rebuild())

	require.NoError(t, x.Add(ref(0), []float64{9, 9, 9}))
	assert.Equal(t, 2, x.Size())
	assert.Equal(t, 2, x.ModCount())
	assert.Equal(t, 1, x.Snapshot().AddedSize())

	res := x.NearestNeighbor([]float64{0, 0, 0})
	assert.Equal(t, ref(1), res.Ref)
	res = x.NearestNeighbor([]float64{9, 9, 9})
	assert.Equal(t, ref(0), res.Ref)
	assert.Zero(t, res.SquareDistance)

	require.NoError(t, x.Rebuild())
	assert.Equal(t, 2, x.Snapshot().TreeSize())
	assert.Zero(t, x.Snapshot().AddedSize())
}

func TestIndex_StaleGeneration(t *testing.T) {
	x := NewIndex(0, 2)
	old := graph.Ref{Index: 0, Gen: 1}
	require.NoError(t, x.Add(old, []float64{0, 0}))
	require.NoError(t, x.Rebuild())

	reused := graph.Ref{Index: 0, Gen: 2}
	assert.False(t, x.Contains(reused))
	assert.False(t, x.Remove(reused))
	assert.True(t, x.Contains(old))
}

func TestIndex_ContainsAfterAddRemove(t *testing.T) {
	rng := testutil.NewRNG(7)
	x := NewIndex(2, 3)
	live := map[int32]bool{}

	for step := range 400 {
		i := int32(rng.Intn(40))
		if live[i] {
			require.True(t, x.Remove(ref(i)))
			assert.False(t, x.Contains(ref(i)))
			delete(live, i)
		} else {
			require.NoError(t, x.Add(ref(i), rng.Position(3, 10)))
			assert.True(t, x.Contains(ref(i)))
			live[i] = true
		}
		assert.Equal(t, len(live), x.Size())
		if step%37 == 0 {
			require.NoError(t, x.Rebuild())
			assert.Zero(t, x.ModCount())
		}
	}

	var got []int32
	for r := range x.All() {
		got = append(got, r.Index)
	}
	slices.Sort(got)
	var want []int32
	for i := range live {
		want = append(want, i)
	}
	slices.Sort(want)
	assert.Equal(t, want, got)
}

func TestIndex_NearestMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(42)
	points := rng.Positions(300, 3, 100)

	x := NewIndex(0, 3)
	fill(t, x, points[:200])
	require.NoError(t, x.Rebuild())
	for i, p := range points[200:] {
		require.NoError(t, x.Add(ref(int32(200+i)), p))
	}
	removed := map[int]bool{}
	for i := 0; i < 300; i += 7 {
		require.True(t, x.Remove(ref(int32(i))))
		removed[i] = true
	}

	for range 100 {
		q := rng.Position(3, 100)
		want, wantDist := testutil.ExactNearest(points, q, func(i int) bool { return removed[i] })
		res := x.NearestNeighbor(q)
		require.True(t, res.Found)
		assert.Equal(t, int32(want), res.Ref.Index)
		assert.InDelta(t, wantDist, res.SquareDistance, 1e-9)
	}
}

func TestIndex_ClipHalfSpace(t *testing.T) {
	x := NewIndex(0, 3)
	require.NoError(t, x.Add(ref(0), []float64{0, 0, 0}))
	require.NoError(t, x.Add(ref(1), []float64{10, 0, 0}))

	// x < 5
	polytope := NewConvexPolytope(HyperPlane{Normal: []float64{-1, 0, 0}, Distance: -5})

	check := func() {
		c, err := x.Clip(polytope)
		require.NoError(t, err)
		assert.Equal(t, []graph.Ref{ref(0)}, c.InsideRefs())
		assert.Equal(t, []graph.Ref{ref(1)}, c.OutsideRefs())
	}
	check()
	require.NoError(t, x.Rebuild())
	check()
}

func TestIndex_ClipMatchesBruteForce(t *testing.T) {
	rng := testutil.NewRNG(3)
	points := rng.Positions(400, 3, 100)

	x := NewIndex(0, 3)
	fill(t, x, points[:300])
	require.NoError(t, x.Rebuild())
	for i, p := range points[300:] {
		require.NoError(t, x.Add(ref(int32(300+i)), p))
	}
	removed := map[int]bool{}
	for i := 1; i < 400; i += 11 {
		require.True(t, x.Remove(ref(int32(i))))
		removed[i] = true
	}

	planes := testutil.Box([]float64{20, 10, 30}, []float64{70, 60, 90})
	inside, outside := testutil.ExactClip(points, planes)

	c, err := x.Clip(NewConvexPolytope(planes...))
	require.NoError(t, err)

	toIdx := func(refs []graph.Ref) []int {
		out := make([]int, len(refs))
		for i, r := range refs {
			out[i] = int(r.Index)
		}
		slices.Sort(out)
		return out
	}
	keep := func(idx []int) []int {
		out := idx[:0:0]
		for _, i := range idx {
			if !removed[i] {
				out = append(out, i)
			}
		}
		return out
	}
	assert.Equal(t, keep(inside), toIdx(c.InsideRefs()))
	assert.Equal(t, keep(outside), toIdx(c.OutsideRefs()))
}

func TestIndex_UnclippedHelperIsEmpty(t *testing.T) {
	x := NewIndex(0, 2)
	require.NoError(t, x.Add(ref(0), []float64{1, 1}))
	c := x.ClipConvexPolytope()
	assert.Empty(t, c.InsideRefs())
	assert.Empty(t, c.OutsideRefs())
}

func TestIndex_RebuildIdempotent(t *testing.T) {
	rng := testutil.NewRNG(11)
	x := NewIndex(0, 3)
	fill(t, x, rng.Positions(128, 3, 50))
	probe := []float64{25, 25, 25}

	require.NoError(t, x.Rebuild())
	size, res := x.Size(), x.NearestNeighbor(probe)

	require.NoError(t, x.Rebuild())
	assert.Equal(t, size, x.Size())
	assert.Equal(t, res, x.NearestNeighbor(probe))
}

func TestIndex_SnapshotIsolation(t *testing.T) {
	x := NewIndex(0, 2)
	require.NoError(t, x.Add(ref(0), []float64{0, 0}))
	search := x.NearestNeighborSearch()

	require.True(t, x.Remove(ref(0)))
	require.NoError(t, x.Add(ref(1), []float64{1, 1}))
	require.NoError(t, x.Rebuild())

	res := search.Search([]float64{0, 0})
	assert.Equal(t, ref(0), res.Ref)
	assert.Equal(t, ref(1), x.NearestNeighbor([]float64{0, 0}).Ref)
}

type observerFunc func(t, size int, took time.Duration)

func (f observerFunc) OnRebuild(t, size int, took time.Duration) { f(t, size, took) }

func TestIndex_Observer(t *testing.T) {
	var gotT, gotSize int
	x := NewIndex(5, 2, WithObserver(observerFunc(func(t, size int, _ time.Duration) {
		gotT, gotSize = t, size
	})))
	require.NoError(t, x.Add(ref(0), []float64{0, 0}))
	require.NoError(t, x.Rebuild())
	assert.Equal(t, 5, gotT)
	assert.Equal(t, 1, gotSize)
}

func TestIndex_ConcurrentReadersAndWriters(t *testing.T) {
	rng := testutil.NewRNG(5)
	points := rng.Positions(500, 3, 100)
	x := NewIndex(0, 3)
	fill(t, x, points[:250])

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i, p := range points[250:] {
			assert.NoError(t, x.Add(ref(int32(250+i)), p))
			if i%25 == 0 {
				assert.NoError(t, x.Rebuild())
			}
		}
	}()

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				res := x.NearestNeighbor([]float64{50, 50, 50})
				assert.True(t, res.Found)
				d := x.Snapshot()
				n := 0
				for range d.All() {
					n++
				}
				assert.Equal(t, d.Size(), n)
			}
		}()
	}

	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				assert.NoError(t, x.Rebuild())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 500, x.Size())
}
