// Package embedding turns text into vectors through a remote or local provider,
// adding batching limits, retries, rate limiting, and dimension checks on top.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	MaxBatchSize() int
	Model() string
	Close() error
}

// Request is a single call to an embedding provider.
type Request struct {
	Model      string
	Inputs     []string
	Dimensions int
}

// Provider is the raw embedding endpoint. Implementations report retryable failures
// with the embedding.provider.transient code and everything else with
// embedding.provider.failure.
type Provider interface {
	Name() string
	CreateEmbeddings(ctx context.Context, req Request) ([][]float32, error)
}
