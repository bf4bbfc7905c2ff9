// Package metric provides distance and projection kernels over float64
// positions.
package metric

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// ErrLengthMismatch is returned when two positions have different lengths.
var ErrLengthMismatch = errors.New("metric: position lengths do not match")

// SquaredL2 returns the squared euclidean distance between a and b.
// It panics if the lengths differ.
func SquaredL2(a, b []float64) float64 {
	if len(a) != len(b) {
		panic(ErrLengthMismatch)
	}
	var sum float64
	for i, x := range a {
		d := x - b[i]
		sum += d * d
	}
	return sum
}

// L2 returns the euclidean distance between a and b.
func L2(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	return floats.Distance(a, b, 2), nil
}

// Dot returns the dot product of a and b.
func Dot(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrLengthMismatch
	}
	return floats.Dot(a, b), nil
}

// Magnitude returns the euclidean norm of v.
func Magnitude(v []float64) float64 {
	return floats.Norm(v, 2)
}

// Normalize scales v in place to unit length and returns the original
// length. A zero vector is left unchanged.
func Normalize(v []float64) float64 {
	n := Magnitude(v)
	if n != 0 {
		floats.Scale(1/n, v)
	}
	return n
}
