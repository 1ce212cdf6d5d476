// Package similarity provides the pure vector math that routing, scoring,
// clustering and dedup are built on. Numeric edge cases (zero vectors,
// singleton sets, mismatched lengths) return well-defined degenerate
// values instead of errors.
package similarity

import "math"

// Cosine computes the cosine similarity between two vectors, in [-1, 1].
// The second return value is false when the vectors have mismatched
// lengths or either side has zero magnitude; the similarity is 0 in that
// case. Strict callers must check the flag rather than treating 0 as a
// valid score.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0 || magB == 0 {
		return 0, false
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB)), true
}

// Centroid computes the element-wise mean of a set of vectors.
// Returns nil for an empty input set; callers must guard.
// Vectors shorter than the first are ignored beyond their length.
func Centroid(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dims := len(vectors[0])
	sum := make([]float64, dims)
	for _, v := range vectors {
		for i := 0; i < dims && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}

	out := make([]float32, dims)
	n := float64(len(vectors))
	for i := range sum {
		out[i] = float32(sum[i] / n)
	}
	return out
}

// Coherence computes the mean pairwise cosine similarity within a set of
// vectors, in [0, 1] for embedding-like inputs. A single vector has
// coherence 1.0 by convention; an empty set or a set of zero vectors has
// coherence 0.0.
func Coherence(vectors [][]float32) float64 {
	if len(vectors) == 0 {
		return 0
	}
	if len(vectors) == 1 {
		if _, ok := Cosine(vectors[0], vectors[0]); !ok {
			return 0
		}
		return 1.0
	}

	var total float64
	var pairs int
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sim, ok := Cosine(vectors[i], vectors[j])
			if !ok {
				sim = 0
			}
			total += sim
			pairs++
		}
	}

	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}
