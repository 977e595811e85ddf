package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/semsearch/pkg/utils"
)

// MockProvider returns deterministic unit vectors derived from a hash of the text,
// so the same text always gets the same embedding. Used offline and in tests.
type MockProvider struct{}

// NewMockProvider returns a deterministic provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() string { return ProviderMock }

// CreateEmbeddings returns one vector of req.Dimensions per input.
func (p *MockProvider) CreateEmbeddings(ctx context.Context, req Request) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(req.Inputs))
	for i, text := range req.Inputs {
		out[i] = MockVector(text, req.Dimensions)
	}
	return out, nil
}

// MockVector returns the deterministic embedding for text.
func MockVector(text string, dimensions int) []float32 {
	h := hashString(text)
	emb := make([]float32, dimensions)
	for i := 0; i < dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb
}

func hashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
