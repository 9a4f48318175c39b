package vector

import "sort"

// Hit is one row of a matrix search result.
type Hit struct {
	Index int     // row index in the searched matrix
	Score float64 // cosine similarity to the query
}

// SearchMatrix scores every row of matrix against query by cosine similarity
// and returns the rows with score >= floor, strictly non-increasing by score,
// truncated to k. Ties keep the original row order, so results are stable for
// a fixed matrix and query. An empty matrix or k <= 0 yields no hits.
func SearchMatrix(query []float32, matrix [][]float32, k int, floor float64) []Hit {
	if k <= 0 || len(matrix) == 0 {
		return nil
	}
	hits := make([]Hit, 0, len(matrix))
	for i, row := range matrix {
		score := Cosine(query, row)
		if score >= floor {
			hits = append(hits, Hit{Index: i, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
