package utils

import (
	"math"
	"sort"
)

// CosineDistance is 1 - cosine similarity. Vectors of different length, or any zero vector, are at
// distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

// Scored pairs an index with its distance.
type Scored struct {
	Index    int
	Distance float64
}

// NearestN scores every candidate against query and returns the n closest, nearest first.
// Ties keep candidate order.
func NearestN(query []float32, candidates [][]float32, n int) []Scored {
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Index: i, Distance: CosineDistance(query, c)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})
	if n >= 0 && len(scored) > n {
		scored = scored[:n]
	}
	return scored
}
