package vector

import (
	"math"
	"testing"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity_SelfIsOne(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.3, -0.2, 0.9},
		{1e-3, 2e-3, -5e-4},
		{12, 7, 3, 1},
	}
	for _, v := range vectors {
		got, err := CosineSimilarity(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got, 1e-6)
	}
}

func TestCosineSimilarity_Symmetric(t *testing.T) {
	a := []float32{0.1, 0.7, -0.3}
	b := []float32{-0.4, 0.2, 0.5}
	ab, err := CosineSimilarity(a, b)
	require.NoError(t, err)
	ba, err := CosineSimilarity(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestCosineSimilarity_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 2}, []float32{-1, -2}, -1},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"45 degrees", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-6)
		})
	}
}

func TestCosineSimilarity_Errors(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.True(t, semerr.HasCode(err, semerr.CodeVectorDimensionInvalid))

	_, err = CosineSimilarity(nil, nil)
	assert.True(t, semerr.HasCode(err, semerr.CodeVectorDimensionInvalid))

	_, err = CosineSimilarity([]float32{0, 0}, []float32{1, 0})
	assert.True(t, semerr.HasCode(err, semerr.CodeVectorNormDegenerate))

	_, err = CosineSimilarity([]float32{1, 0}, []float32{0, 0})
	assert.True(t, semerr.HasCode(err, semerr.CodeVectorNormDegenerate))
}

func TestL2NormAndInnerProduct(t *testing.T) {
	assert.Equal(t, 5.0, L2Norm([]float32{3, 4}))
	assert.Equal(t, 0.0, L2Norm(nil))
	assert.Equal(t, 11.0, InnerProduct([]float32{1, 2}, []float32{3, 4}))
	assert.Equal(t, 0.0, InnerProduct([]float32{1}, []float32{3, 4}))
}
