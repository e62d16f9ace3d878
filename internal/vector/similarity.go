package vector

// InnerProduct returns the inner product of two vectors. For unit-norm vectors this equals
// cosine similarity, and ranking by it is the same as ranking by ascending Euclidean distance
// (‖a-b‖² = 2 - 2a·b).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
