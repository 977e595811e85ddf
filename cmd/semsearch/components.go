package main

import (
	"go.uber.org/zap"

	"github.com/hyperjump/semsearch/internal/config"
	"github.com/hyperjump/semsearch/internal/embedding"
	"github.com/hyperjump/semsearch/internal/indexer"
	"github.com/hyperjump/semsearch/internal/search"
	"github.com/hyperjump/semsearch/internal/storage"
)

// Components holds the initialized store, embedder, engine, and indexer.
type Components struct {
	Store    storage.SnapshotStore
	Embedder *embedding.Client
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

// Close releases the store and embedder.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

type componentOptions struct {
	cacheSnapshot bool
	progress      indexer.ProgressFunc
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, opts componentOptions) (*Components, error) {
	store, err := storage.NewSnapshotStore(cfg.Storage.Backend, cfg.Storage.SnapshotPath)
	if err != nil {
		return nil, err
	}

	provider, err := embedding.NewProvider(embedding.ProviderConfig{
		Name:    cfg.Embedding.Provider,
		APIKey:  cfg.Embedding.APIKey,
		BaseURL: cfg.Embedding.BaseURL,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	client, err := embedding.NewClient(provider, embedding.ClientConfig{
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		MaxBatchSize: cfg.Embedding.MaxBatchSize,
		Retry: embedding.RetryConfig{
			MaxRetries:   cfg.Embedding.MaxRetries,
			InitialDelay: cfg.Embedding.InitialDelay,
			MaxDelay:     cfg.Embedding.MaxDelay,
			Timeout:      cfg.Embedding.Timeout,
		},
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		CacheSize:         cfg.Embedding.CacheSize,
	}, embedding.WithLogger(logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Debug("embedding client initialized",
		zap.String("provider", client.ProviderName()),
		zap.String("model", client.Model()),
		zap.Int("dimensions", client.Dimensions()))

	engineOpts := []search.EngineOption{search.WithLogger(logger)}
	if opts.cacheSnapshot {
		engineOpts = append(engineOpts, search.WithSnapshotCache())
	}
	idxOpts := []indexer.IndexerOption{
		indexer.WithLogger(logger),
		indexer.WithBatchSize(cfg.Ingest.BatchSize),
		indexer.WithConcurrency(cfg.Ingest.Concurrency),
	}
	if opts.progress != nil {
		idxOpts = append(idxOpts, indexer.WithProgress(opts.progress))
	}

	return &Components{
		Store:    store,
		Embedder: client,
		Engine:   search.NewEngine(store, client, engineOpts...),
		Indexer:  indexer.NewIndexer(store, client, idxOpts...),
	}, nil
}
