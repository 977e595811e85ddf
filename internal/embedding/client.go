package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

const (
	DefaultMaxBatchSize = 2048
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMaxDelay     = 30 * time.Second
	DefaultTimeout      = 60 * time.Second
)

// RetryConfig controls how transient provider failures are retried.
type RetryConfig struct {
	MaxRetries   int           // retries after the first attempt; 0 disables retrying
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap on the exponential delay
	Timeout      time.Duration // per-attempt timeout
}

// ClientConfig configures a Client. Dimensions is fixed per client and every
// returned vector is checked against it.
type ClientConfig struct {
	Model             string
	Dimensions        int
	MaxBatchSize      int
	Retry             RetryConfig
	RequestsPerSecond float64
	CacheSize         int
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.Retry.MaxRetries < 0 {
		c.Retry.MaxRetries = 0
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = DefaultInitialDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = DefaultMaxDelay
	}
	if c.Retry.MaxDelay < c.Retry.InitialDelay {
		c.Retry.MaxDelay = c.Retry.InitialDelay
	}
	if c.Retry.Timeout <= 0 {
		c.Retry.Timeout = DefaultTimeout
	}
	return c
}

// Client is the embedding adapter used by ingestion and queries. It enforces the
// batch limit, retries transient failures with exponential backoff, and verifies
// that the provider returned one vector of the configured dimension per input.
type Client struct {
	provider Provider
	cfg      ClientConfig
	limiter  *rate.Limiter
	cache    *EmbeddingCache
	logger   *zap.Logger
}

var _ Embedder = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for retry and request events.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient wraps provider with the adapter behaviour described by cfg.
func NewClient(provider Provider, cfg ClientConfig, opts ...ClientOption) (*Client, error) {
	if provider == nil {
		return nil, semerr.New(semerr.CodeConfigValidateInvalidValue, "embedding provider is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, semerr.New(semerr.CodeConfigValidateInvalidValue, "embedding dimensions must be positive",
			semerr.Field("dimensions", cfg.Dimensions))
	}
	if cfg.Model == "" {
		return nil, semerr.New(semerr.CodeConfigValidateInvalidValue, "embedding model is required")
	}
	cfg = cfg.withDefaults()
	c := &Client{
		provider: provider,
		cfg:      cfg,
		logger:   zap.NewNop(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.CacheSize > 0 {
		c.cache = NewEmbeddingCache(cfg.CacheSize)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

// Embed embeds a single text. Successful results are cached when a cache is configured.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(text); ok {
			return v, nil
		}
	}
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(text, out[0])
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one provider request and returns vectors in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) > c.cfg.MaxBatchSize {
		return nil, semerr.New(semerr.CodeEmbeddingBatchTooLarge, "batch exceeds provider limit",
			semerr.Field("size", len(texts)), semerr.Field("max", c.cfg.MaxBatchSize))
	}
	req := Request{Model: c.cfg.Model, Inputs: texts, Dimensions: c.cfg.Dimensions}
	vectors, err := c.createWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, semerr.New(semerr.CodeEmbeddingBatchSizeMismatch, "provider returned a different number of embeddings",
			semerr.FieldProvider(c.provider.Name()), semerr.Field("expected", len(texts)), semerr.Field("actual", len(vectors)))
	}
	for i, v := range vectors {
		if len(v) != c.cfg.Dimensions {
			return nil, semerr.New(semerr.CodeEmbeddingDimensionMismatch, "provider returned an embedding of unexpected dimension",
				semerr.FieldProvider(c.provider.Name()), semerr.Field("position", i),
				semerr.Field("expected", c.cfg.Dimensions), semerr.Field("actual", len(v)))
		}
	}
	return vectors, nil
}

func (c *Client) createWithRetry(ctx context.Context, req Request) ([][]float32, error) {
	attempts := 0
	var waitErr error
	op := func() ([][]float32, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil, backoff.Permanent(ctx.Err())
				}
				// the next token would arrive after the caller's deadline
				waitErr = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
				return nil, backoff.Permanent(waitErr)
			}
		}
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Retry.Timeout)
		defer cancel()
		out, err := c.provider.CreateEmbeddings(attemptCtx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !semerr.IsTransient(err) {
			// a fresh error, since wrapping would keep the provider's own code
			err = semerr.New(semerr.CodeEmbeddingProviderTransient,
				fmt.Sprintf("embedding attempt timed out after %s: %v", c.cfg.Retry.Timeout, err),
				semerr.FieldProvider(c.provider.Name()))
		}
		if !semerr.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.Retry.InitialDelay
	b.MaxInterval = c.cfg.Retry.MaxDelay
	b.Multiplier = 2

	vectors, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.Retry.MaxRetries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Debug("embedding request failed, retrying",
				zap.String("provider", c.provider.Name()),
				zap.Int("attempt", attempts),
				zap.Duration("backoff", next),
				zap.Error(err))
		}),
	)
	if err == nil {
		return vectors, nil
	}

	switch {
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return nil, ctx.Err()
	case waitErr != nil:
		return nil, waitErr
	case semerr.IsTransient(err):
		// a transient code would survive wrapping, so the exhausted failure is a fresh error
		return nil, semerr.New(semerr.CodeEmbeddingProviderFailure,
			fmt.Sprintf("embedding provider still failing after %d attempts: %v", attempts, err),
			semerr.FieldProvider(c.provider.Name()), semerr.Field("attempts", attempts))
	case semerr.CodeOf(err) == "":
		return nil, semerr.Wrap(err, semerr.CodeEmbeddingProviderFailure, "embedding request failed",
			semerr.FieldProvider(c.provider.Name()), semerr.Field("attempts", attempts))
	default:
		return nil, semerr.With(err, semerr.FieldProvider(c.provider.Name()), semerr.Field("attempts", attempts))
	}
}

// Dimensions returns the configured embedding dimension.
func (c *Client) Dimensions() int { return c.cfg.Dimensions }

// MaxBatchSize returns the largest batch accepted by EmbedBatch.
func (c *Client) MaxBatchSize() int { return c.cfg.MaxBatchSize }

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// ProviderName returns the underlying provider identifier.
func (c *Client) ProviderName() string { return c.provider.Name() }

// Close is a no-op; providers hold no resources that outlive a request.
func (c *Client) Close() error { return nil }
