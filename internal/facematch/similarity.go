package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity computes the cosine similarity between two embedding vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// Mismatched lengths, empty input and zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return newVector(a).cosine(newVector(b))
}

// vector caches the float64 form and L2 norm of an embedding so a target can be
// compared against many candidates without recomputing either.
type vector struct {
	v    []float64
	norm float64
}

func newVector(e []float32) vector {
	v := make([]float64, len(e))
	for i, x := range e {
		v[i] = float64(x)
	}
	return vector{v: v, norm: floats.Norm(v, 2)}
}

func (a vector) cosine(b vector) float64 {
	if len(a.v) != len(b.v) || len(a.v) == 0 || a.norm == 0 || b.norm == 0 {
		return 0
	}
	similarity := floats.Dot(a.v, b.v) / (a.norm * b.norm)
	if math.IsNaN(similarity) {
		return 0
	}
	// Clamp to [-1, 1] to handle floating point errors
	return math.Max(-1, math.Min(1, similarity))
}
