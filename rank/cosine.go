package rank

import "math"

// Cosine returns the cosine similarity of a and b, accumulated in float64.
// Returns 0 when either vector has zero norm. Callers must pass vectors of equal length.
func Cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
