package embedding

import (
	"context"
	"errors"
	"net"
	"net/http"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
	"github.com/hyperjump/semsearch/pkg/utils"
)

// OpenAIConfig holds OpenAI embedding provider settings.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // optional, useful for compatible gateways and tests
}

// OpenAIProvider calls the OpenAI embeddings endpoint.
type OpenAIProvider struct {
	client openaisdk.Client
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider. Returns an error if the API key is missing.
// SDK-level retries are disabled; Client owns the retry policy.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, semerr.New(semerr.CodeConfigValidateInvalidValue, "openai: missing api_key",
			semerr.FieldProvider(ProviderOpenAI))
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIProvider{client: openaisdk.NewClient(opts...)}, nil
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// CreateEmbeddings sends all inputs in one request and returns vectors ordered by
// the response index.
func (p *OpenAIProvider) CreateEmbeddings(ctx context.Context, req Request) ([][]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Input:          openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: req.Inputs},
		Model:          openaisdk.EmbeddingModel(req.Model),
		EncodingFormat: openaisdk.EmbeddingNewParamsEncodingFormatFloat,
	}
	if req.Dimensions > 0 {
		params.Dimensions = openaisdk.Int(int64(req.Dimensions))
	}
	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Data) != len(req.Inputs) {
		out := make([][]float32, len(resp.Data))
		for i, d := range resp.Data {
			out[i] = utils.Float64sToFloat32s(d.Embedding)
		}
		return out, nil
	}
	out := make([][]float32, len(req.Inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) || out[d.Index] != nil {
			return nil, semerr.New(semerr.CodeEmbeddingBatchSizeMismatch, "provider returned an unexpected embedding index",
				semerr.FieldProvider(ProviderOpenAI), semerr.Field("index", d.Index))
		}
		out[d.Index] = utils.Float64sToFloat32s(d.Embedding)
	}
	return out, nil
}

// classifyOpenAIError maps SDK errors onto transient and permanent provider codes.
// Rate limits, server errors, and timeouts are transient; auth, malformed requests,
// and exhausted quota are permanent.
func classifyOpenAIError(err error) error {
	provider := semerr.FieldProvider(ProviderOpenAI)

	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return semerr.Wrap(err, semerr.CodeEmbeddingProviderTransient, "openai: request timed out", provider)
	}

	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		status := semerr.Field("status", apiErr.StatusCode)
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests && apiErr.Code == "insufficient_quota":
			return semerr.Wrap(err, semerr.CodeEmbeddingProviderFailure, "openai: quota exhausted", provider, status)
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusRequestTimeout,
			apiErr.StatusCode == http.StatusConflict,
			apiErr.StatusCode >= http.StatusInternalServerError:
			return semerr.Wrap(err, semerr.CodeEmbeddingProviderTransient, "openai: temporary failure", provider, status)
		default:
			return semerr.Wrap(err, semerr.CodeEmbeddingProviderFailure, "openai: request rejected", provider, status)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return semerr.Wrap(err, semerr.CodeEmbeddingProviderTransient, "openai: network error", provider)
	}
	return semerr.Wrap(err, semerr.CodeEmbeddingProviderTransient, "openai: request failed", provider)
}
