package utils

import "math"

// NormalizeL2 scales vec in place to unit length, so the inner product of two
// normalized embeddings is their cosine similarity. A zero vector is left
// untouched; it scores zero against everything downstream.
func NormalizeL2(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}
