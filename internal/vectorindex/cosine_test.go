package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineIdenticalVectorsIsExactlyOne(t *testing.T) {
	// 3-4-5 triangle values keep the norms exact in floating point.
	v := []float32{3, 4}
	assert.Equal(t, 1.0, Cosine(v, v))

	unit := []float32{0, 1, 0, 0}
	assert.Equal(t, 1.0, Cosine(unit, unit))
}

func TestCosineOrthogonalVectorsIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}))
}

func TestCosineOppositeVectorsIsNegativeOne(t *testing.T) {
	assert.Equal(t, -1.0, Cosine([]float32{0, 3, 4}, []float32{0, -3, -4}))
}

func TestCosineZeroVectorNeverMatches(t *testing.T) {
	zero := make([]float32, 4)
	other := []float32{1, 2, 3, 4}

	assert.Equal(t, 0.0, Cosine(zero, other))
	assert.Equal(t, 0.0, Cosine(other, zero))

	// Two zero vectors are deliberately not considered identical: nameless
	// items must never be duplicates of each other.
	assert.Equal(t, 0.0, Cosine(zero, zero))
}

func TestCosineMismatchedOrEmptyLengths(t *testing.T) {
	assert.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
	assert.Equal(t, 0.0, Cosine(nil, nil))
}

func TestCosineKnownAngle(t *testing.T) {
	// 45 degrees between (1,0) and (1,1).
	assert.InDelta(t, 0.7071, Cosine([]float32{1, 0}, []float32{1, 1}), 1e-4)
}
