package embedding

import (
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// ProviderConfig selects and configures a provider.
type ProviderConfig struct {
	Name    string
	APIKey  string
	BaseURL string
}

// NewProvider creates the provider named by cfg.Name.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case ProviderOpenAI, "":
		return NewOpenAIProvider(OpenAIConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	case ProviderMock:
		return NewMockProvider(), nil
	default:
		return nil, semerr.New(semerr.CodeEmbeddingProviderUnsupported, "unknown embedding provider",
			semerr.FieldProvider(cfg.Name))
	}
}
