package kdtree

import (
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when a point has the wrong length.
var ErrDimensionMismatch = errors.New("kdtree: dimension mismatch")

// Point is an input point carrying a value.
type Point[T any] struct {
	Pos   []float64
	Value T
}

// Tree is an immutable KD-tree over values of type T.
type Tree[T any] struct {
	n      int
	coords []float64
	values []T
	min    []float64
	max    []float64
}

// Build creates a tree over points. The point positions are copied.
func Build[T any](n int, points []Point[T]) (*Tree[T], error) {
	if n <= 0 {
		return nil, ErrDimensionMismatch
	}
	size := len(points)
	perm := make([]int, size)
	for i, p := range points {
		if len(p.Pos) != n {
			return nil, ErrDimensionMismatch
		}
		perm[i] = i
	}

	t := &Tree[T]{
		n:      n,
		coords: make([]float64, size*n),
		values: make([]T, size),
		min:    make([]float64, n),
		max:    make([]float64, n),
	}
	if size == 0 {
		return t, nil
	}

	for d := range n {
		t.min[d], t.max[d] = math.Inf(1), math.Inf(-1)
	}
	for _, p := range points {
		for d, x := range p.Pos {
			t.min[d] = math.Min(t.min[d], x)
			t.max[d] = math.Max(t.max[d], x)
		}
	}

	b := builder[T]{n: n, points: points, perm: perm}
	b.partition(0, size, 0)

	for i, pi := range perm {
		copy(t.coords[i*n:(i+1)*n], points[pi].Pos)
		t.values[i] = points[pi].Value
	}
	return t, nil
}

type builder[T any] struct {
	n      int
	points []Point[T]
	perm   []int
}

func (b *builder[T]) coord(i, d int) float64 {
	return b.points[b.perm[i]].Pos[d]
}

// partition arranges perm[lo:hi] so that the median along the split
// dimension sits at mid, then recurses into both halves.
func (b *builder[T]) partition(lo, hi, depth int) {
	if hi-lo <= 1 {
		return
	}
	mid := (lo + hi) / 2
	b.kthElement(lo, hi-1, mid, depth%b.n)
	b.partition(lo, mid, depth+1)
	b.partition(mid+1, hi, depth+1)
}

// kthElement is Hoare's selection on perm[i:j] (inclusive) along dimension d.
func (b *builder[T]) kthElement(i, j, k, d int) {
	for j > i {
		pivot := b.coord(j, d)
		l, r := i, j-1
		for {
			for l <= r && b.coord(l, d) < pivot {
				l++
			}
			for r >= l && b.coord(r, d) > pivot {
				r--
			}
			if l >= r {
				break
			}
			b.perm[l], b.perm[r] = b.perm[r], b.perm[l]
			l++
			r--
		}
		b.perm[l], b.perm[j] = b.perm[j], b.perm[l]

		switch {
		case k < l:
			j = l - 1
		case k > l:
			i = l + 1
		default:
			return
		}
	}
}

// Len returns the number of nodes.
func (t *Tree[T]) Len() int { return len(t.values) }

// Dimensions returns the number of dimensions.
func (t *Tree[T]) Dimensions() int { return t.n }

// Value returns the value of node i.
func (t *Tree[T]) Value(i int) T { return t.values[i] }

// Coords returns the position of node i. The slice must not be modified.
func (t *Tree[T]) Coords(i int) []float64 {
	return t.coords[i*t.n : (i+1)*t.n : (i+1)*t.n]
}

// Min returns the lower corner of the bounding box.
func (t *Tree[T]) Min() []float64 { return t.min }

// Max returns the upper corner of the bounding box.
func (t *Tree[T]) Max() []float64 { return t.max }

// SquareDistance returns the squared euclidean distance from node i to q.
func (t *Tree[T]) SquareDistance(i int, q []float64) float64 {
	var sum float64
	for d, x := range t.Coords(i) {
		diff := x - q[d]
		sum += diff * diff
	}
	return sum
}
