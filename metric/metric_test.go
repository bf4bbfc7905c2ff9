package metric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaredL2(t *testing.T) {
	assert.Equal(t, 0.0, SquaredL2([]float64{1, 2, 3}, []float64{1, 2, 3}))
	assert.Equal(t, 25.0, SquaredL2([]float64{0, 0}, []float64{3, 4}))
	assert.Panics(t, func() { SquaredL2([]float64{1}, []float64{1, 2}) })
}

func TestL2AndDot(t *testing.T) {
	d, err := L2([]float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-12)

	_, err = L2([]float64{0}, []float64{3, 4})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	dot, err := Dot([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 32.0, dot)

	_, err = Dot([]float64{1}, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestNormalize(t *testing.T) {
	v := []float64{3, 0, 4}
	n := Normalize(v)
	assert.InDelta(t, 5.0, n, 1e-12)
	assert.InDelta(t, 1.0, Magnitude(v), 1e-12)

	zero := []float64{0, 0}
	assert.Equal(t, 0.0, Normalize(zero))
	assert.False(t, math.IsNaN(zero[0]))
}
