package vectorindex

import "math"

// Cosine computes the cosine similarity of two vectors. It is 0.0 when the
// lengths differ or either norm is zero, so zero vectors (nameless items)
// never match anything, including each other.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0.0
	}
	return dot / denom
}
