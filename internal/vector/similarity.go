package vector

import (
	"math"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

// CosineSimilarity returns dot(a,b)/(|a|*|b|) in [-1, 1].
// Vectors of different or zero length are rejected with an invalid dimension error,
// and a zero-magnitude vector with a degenerate vector error, so the result is never NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, semerr.New(semerr.CodeVectorDimensionInvalid, "vectors must have the same non-zero length",
			semerr.Field("expected", len(a)), semerr.Field("actual", len(b)))
	}
	normA, normB := L2Norm(a), L2Norm(b)
	if normA == 0 || normB == 0 {
		return 0, semerr.New(semerr.CodeVectorNormDegenerate, "cannot compare a zero-magnitude vector")
	}
	sim := InnerProduct(a, b) / (normA * normB)
	// rounding can push identical vectors a hair past 1
	return math.Max(-1, math.Min(1, sim)), nil
}

// InnerProduct returns the inner product of two vectors, or 0 when lengths differ.
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

// L2Norm returns the L2 norm of a vector.
func L2Norm(x []float32) float64 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
