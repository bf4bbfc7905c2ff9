package testutil

import (
	"math"
	"math/rand"
	"sync"

	"github.com/hupe1980/celltrack/internal/kdtree"
	"github.com/hupe1980/celltrack/metric"
)

// RNG encapsulates a seeded random number generator. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Position returns a random position with coordinates in [0, scale).
func (r *RNG) Position(dims int, scale float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos := make([]float64, dims)
	for i := range pos {
		pos[i] = r.rand.Float64() * scale
	}
	return pos
}

// Positions generates num random positions with coordinates in [0, scale).
// Uses a single backing array.
func (r *RNG) Positions(num, dims int, scale float64) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dims)
	out := make([][]float64, num)
	for i := range num {
		pos := data[i*dims : (i+1)*dims : (i+1)*dims]
		for j := range pos {
			pos[j] = r.rand.Float64() * scale
		}
		out[i] = pos
	}
	return out
}

// Jitter returns pos displaced by gaussian noise with the given sigma,
// the way a tracked cell drifts between timepoints.
func (r *RNG) Jitter(pos []float64, sigma float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(pos))
	for i, x := range pos {
		out[i] = x + r.rand.NormFloat64()*sigma
	}
	return out
}

// ExactNearest returns the index of the point closest to q by linear scan,
// skipping indices for which skip returns true. It returns -1 and NaN when
// no point qualifies.
func ExactNearest(points [][]float64, q []float64, skip func(int) bool) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, p := range points {
		if skip != nil && skip(i) {
			continue
		}
		if d := metric.SquaredL2(p, q); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return -1, math.NaN()
	}
	return best, bestDist
}

// ExactClip classifies points against the intersection of planes by linear
// scan and returns the indices inside and outside.
func ExactClip(points [][]float64, planes []kdtree.HyperPlane) (inside, outside []int) {
	for i, p := range points {
		in := true
		for _, pl := range planes {
			if !pl.Inside(p) {
				in = false
				break
			}
		}
		if in {
			inside = append(inside, i)
		} else {
			outside = append(outside, i)
		}
	}
	return inside, outside
}

// Box returns the half-spaces bounding the axis-aligned box [lo, hi].
func Box(lo, hi []float64) []kdtree.HyperPlane {
	planes := make([]kdtree.HyperPlane, 0, 2*len(lo))
	for d := range lo {
		n := make([]float64, len(lo))
		n[d] = 1
		planes = append(planes, kdtree.HyperPlane{Normal: n, Distance: lo[d]})
		m := make([]float64, len(lo))
		m[d] = -1
		planes = append(planes, kdtree.HyperPlane{Normal: m, Distance: -hi[d]})
	}
	return planes
}
