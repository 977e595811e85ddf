// Package search answers similarity queries against the stored snapshot.
package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/hyperjump/semsearch/internal/embedding"
	"github.com/hyperjump/semsearch/internal/models"
	"github.com/hyperjump/semsearch/internal/storage"
	"github.com/hyperjump/semsearch/internal/vector"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

var tracer = otel.Tracer("github.com/hyperjump/semsearch/internal/search")

// loaded is a snapshot together with the index built from it.
type loaded struct {
	snap  *models.Snapshot
	index *vector.MemoryIndex
}

// Engine runs the query pipeline: embed the query, score every stored record, keep the top k.
type Engine struct {
	store    storage.SnapshotStore
	embedder embedding.Embedder
	logger   *zap.Logger

	cacheSnapshot bool
	mu            sync.Mutex
	cached        *loaded
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for query events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithSnapshotCache keeps the loaded snapshot between queries until Invalidate is called.
// Without it every query reads the store.
func WithSnapshotCache() EngineOption {
	return func(e *Engine) { e.cacheSnapshot = true }
}

// NewEngine creates a search engine reading from store and embedding queries with embedder.
func NewEngine(store storage.SnapshotStore, embedder embedding.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		embedder: embedder,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Invalidate drops the cached snapshot so the next query reloads it.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	e.cached = nil
	e.mu.Unlock()
}

func (e *Engine) load(ctx context.Context) (*loaded, error) {
	if e.cacheSnapshot {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.cached != nil {
			return e.cached, nil
		}
	}
	snap, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	index, err := vector.NewMemoryIndexFromSnapshot(snap)
	if err != nil {
		return nil, semerr.With(err, semerr.FieldPath(e.store.Location()))
	}
	l := &loaded{snap: snap, index: index}
	if e.cacheSnapshot {
		e.cached = l
	}
	e.logger.Debug("snapshot loaded",
		zap.String("location", e.store.Location()),
		zap.String("run_id", snap.RunID),
		zap.Int("records", len(snap.Records)))
	return l, nil
}

// Search ranks the stored records against query. A blank query is rejected before
// any embedding request. Records with zero-magnitude embeddings are left out of the
// ranking and listed in the response's Excluded field.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (resp *models.SearchResponse, err error) {
	startTime := time.Now()
	ctx, sp := tracer.Start(ctx, "search.Search")
	defer func() {
		if err != nil {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, err.Error())
		}
		sp.End()
	}()

	if query == nil {
		return nil, semerr.New(semerr.CodeSearchQueryInvalid, "query is required")
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	sp.SetAttributes(attribute.Int("limit", query.Limit))

	l, err := e.load(ctx)
	if err != nil {
		return nil, e.abortedOr(ctx, err)
	}
	snap := l.snap
	sp.SetAttributes(attribute.Int("records", len(snap.Records)))

	if snap.Dimension != e.embedder.Dimensions() {
		return nil, semerr.New(semerr.CodeEmbeddingDimensionMismatch, "snapshot dimension differs from the configured embedding dimension",
			semerr.Field("snapshot", snap.Dimension), semerr.Field("configured", e.embedder.Dimensions()),
			semerr.FieldPath(e.store.Location()))
	}
	if snap.Model != "" && snap.Model != e.embedder.Model() {
		e.logger.Warn("snapshot was built with a different embedding model",
			zap.String("snapshot_model", snap.Model),
			zap.String("query_model", e.embedder.Model()))
	}

	resp = &models.SearchResponse{
		Query:        query.Query,
		Results:      []*models.ScoredResult{},
		TotalRecords: l.index.Size(),
	}
	if l.index.Size() == 0 {
		resp.QueryTime = time.Since(startTime).Milliseconds()
		return resp, nil
	}

	queryEmbedding, err := e.embedder.Embed(ctx, query.Query)
	if err != nil {
		if semerr.IsProviderError(err) {
			e.logger.Warn("query embedding failed", zap.String("code", string(semerr.CodeOf(err))), zap.Error(err))
		}
		return nil, e.abortedOr(ctx, err)
	}
	hits, err := l.index.Search(ctx, queryEmbedding, query.Limit)
	if err != nil {
		return nil, e.abortedOr(ctx, err)
	}
	if len(hits.Excluded) > 0 {
		e.logger.Warn("records with zero-magnitude embeddings excluded from ranking",
			zap.Int64s("ids", hits.Excluded))
		resp.Excluded = hits.Excluded
	}

	for i, h := range hits.Hits {
		r, ok := l.index.Record(h.ID)
		if !ok {
			continue
		}
		resp.Results = append(resp.Results, &models.ScoredResult{
			ID:       r.ID,
			Text:     r.Text,
			Metadata: r.Metadata,
			Score:    h.Score,
			Rank:     i + 1,
		})
	}
	if len(resp.Results) > 0 {
		resp.Best = resp.Results[0]
	}
	resp.QueryTime = time.Since(startTime).Milliseconds()

	e.logger.Debug("search complete",
		zap.String("query", query.Query),
		zap.Int("results", len(resp.Results)),
		zap.Int64("query_time_ms", resp.QueryTime))
	sp.SetAttributes(attribute.Int("results", len(resp.Results)))
	return resp, nil
}

// Status summarizes the stored snapshot and its size on disk.
func (e *Engine) Status(ctx context.Context) (*models.SnapshotInfo, error) {
	l, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	info := l.snap.Info()
	info.Location = e.store.Location()
	info.Backend = e.store.Backend()
	size, err := storage.DiskUsageBytes(storage.StoreFiles(e.store)...)
	if err != nil {
		e.logger.Warn("disk usage unavailable", zap.Error(err))
	}
	info.DiskBytes = size
	return &info, nil
}

func (e *Engine) abortedOr(ctx context.Context, err error) error {
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	return semerr.Wrap(err, semerr.CodeSearchQueryAborted, "search cancelled")
}
