// Package ranker scores a query embedding against every corpus row and
// selects the top-k indices. This is the per-query hot path.
package ranker

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Degenerate inputs (length mismatch, zero norm) score 0 rather than
// NaN; an empty-string embedding must never poison the ranking.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Rank scores query against every row of matrix and returns the indices
// of the k best rows in descending-score order. Exactly equal scores
// tie-break by ascending corpus index so identical inputs always produce
// identical output. k larger than the corpus clamps; an empty corpus
// yields an empty slice.
func Rank(query []float32, matrix [][]float32, k int) []int {
	if len(matrix) == 0 || k <= 0 {
		return nil
	}

	scores := make([]float32, len(matrix))
	for i, row := range matrix {
		scores[i] = CosineSimilarity(query, row)
	}

	indices := make([]int, len(matrix))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool {
		a, b := indices[i], indices[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	})

	if k > len(indices) {
		k = len(indices)
	}
	return indices[:k]
}
