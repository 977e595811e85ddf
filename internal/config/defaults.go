package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultHost              = "localhost"
	DefaultPort              = 8080
	DefaultBackend           = "json"
	DefaultSnapshotPath      = "./data/vectors.json"
	DefaultProvider          = "openai"
	DefaultModel             = "text-embedding-3-small"
	DefaultDimensions        = 1536
	DefaultMaxBatchSize      = 2048
	DefaultMaxRetries        = 3
	DefaultInitialDelay      = 500 * time.Millisecond
	DefaultMaxDelay          = 30 * time.Second
	DefaultTimeout           = 60 * time.Second
	DefaultConcurrency       = 1
	DefaultSearchLimit       = 3
	DefaultMaxSearchLimit    = 100
	DefaultEmbeddingCacheLen = 1000
)

// setDefaults registers every key with viper so environment overrides apply
// even when the config file does not mention the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("storage.backend", DefaultBackend)
	v.SetDefault("storage.snapshot_path", DefaultSnapshotPath)
	v.SetDefault("embedding.provider", DefaultProvider)
	v.SetDefault("embedding.model", DefaultModel)
	v.SetDefault("embedding.dimensions", DefaultDimensions)
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.max_batch_size", DefaultMaxBatchSize)
	v.SetDefault("embedding.max_retries", DefaultMaxRetries)
	v.SetDefault("embedding.initial_delay", DefaultInitialDelay)
	v.SetDefault("embedding.max_delay", DefaultMaxDelay)
	v.SetDefault("embedding.timeout", DefaultTimeout)
	v.SetDefault("embedding.requests_per_second", 0)
	v.SetDefault("embedding.cache_size", DefaultEmbeddingCacheLen)
	v.SetDefault("ingest.corpus_path", "")
	v.SetDefault("ingest.batch_size", 0)
	v.SetDefault("ingest.concurrency", DefaultConcurrency)
	v.SetDefault("search.default_limit", DefaultSearchLimit)
	v.SetDefault("search.max_limit", DefaultMaxSearchLimit)
}

// ApplyDefaults sets default values for any zero values in cfg.
// MaxRetries, RequestsPerSecond and BatchSize keep zero, which is meaningful for them.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultBackend
	}
	if cfg.Storage.SnapshotPath == "" {
		cfg.Storage.SnapshotPath = DefaultSnapshotPath
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultProvider
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultModel
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = DefaultDimensions
	}
	if cfg.Embedding.MaxBatchSize == 0 {
		cfg.Embedding.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.Embedding.InitialDelay == 0 {
		cfg.Embedding.InitialDelay = DefaultInitialDelay
	}
	if cfg.Embedding.MaxDelay == 0 {
		cfg.Embedding.MaxDelay = DefaultMaxDelay
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = DefaultTimeout
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = DefaultConcurrency
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = DefaultSearchLimit
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = DefaultMaxSearchLimit
	}
}
