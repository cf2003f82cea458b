package embedding

import "math"

// Cosine computes the cosine similarity of two vectors: dot(a,b)/(|a|*|b|).
// Returns 0 when either vector has zero magnitude, so callers never divide
// by zero. Vectors of unequal length are compared over the shorter prefix.
func Cosine(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
