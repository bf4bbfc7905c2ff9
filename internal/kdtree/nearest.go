package kdtree

import "math"

// Nearest returns the node closest to q and its squared distance. Nodes for
// which skip returns true are ignored. If no node qualifies, Nearest returns
// -1 and NaN.
func (t *Tree[T]) Nearest(q []float64, skip func(node int) bool) (int, float64) {
	s := nnSearch[T]{t: t, q: q, skip: skip, best: -1, bestDist: math.Inf(1)}
	s.search(0, t.Len(), 0)
	if s.best < 0 {
		return -1, math.NaN()
	}
	return s.best, s.bestDist
}

type nnSearch[T any] struct {
	t        *Tree[T]
	q        []float64
	skip     func(int) bool
	best     int
	bestDist float64
}

func (s *nnSearch[T]) search(lo, hi, depth int) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	if s.skip == nil || !s.skip(mid) {
		if dist := s.t.SquareDistance(mid, s.q); dist < s.bestDist {
			s.best, s.bestDist = mid, dist
		}
	}

	d := depth % s.t.n
	axis := s.q[d] - s.t.coords[mid*s.t.n+d]
	if axis < 0 {
		s.search(lo, mid, depth+1)
		if axis*axis < s.bestDist {
			s.search(mid+1, hi, depth+1)
		}
	} else {
		s.search(mid+1, hi, depth+1)
		if axis*axis < s.bestDist {
			s.search(lo, mid, depth+1)
		}
	}
}
