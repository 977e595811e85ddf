// Package indexer embeds a document corpus and persists it as one vector snapshot.
package indexer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/semsearch/internal/embedding"
	"github.com/hyperjump/semsearch/internal/models"
	"github.com/hyperjump/semsearch/internal/storage"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

var tracer = otel.Tracer("github.com/hyperjump/semsearch/internal/indexer")

// ProgressFunc is called after each embedded batch with the number of documents
// embedded so far and the corpus size.
type ProgressFunc func(done, total int)

// Indexer runs ingestion: validate the corpus, embed it in batches, save one snapshot.
type Indexer struct {
	store       storage.SnapshotStore
	embedder    embedding.Embedder
	batchSize   int
	concurrency int
	progress    ProgressFunc
	logger      *zap.Logger // optional; when set, logs per-batch debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for batch and run events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithBatchSize caps the documents per embedding call. Values above the embedder's
// MaxBatchSize are clamped to it.
func WithBatchSize(n int) IndexerOption {
	return func(idx *Indexer) { idx.batchSize = n }
}

// WithConcurrency sets how many batches may be in flight at once. Default 1.
func WithConcurrency(n int) IndexerOption {
	return func(idx *Indexer) { idx.concurrency = n }
}

// WithProgress registers a progress callback. It may be called from several
// goroutines when concurrency is above 1, but never concurrently.
func WithProgress(fn ProgressFunc) IndexerOption {
	return func(idx *Indexer) { idx.progress = fn }
}

// NewIndexer creates an indexer writing to store and embedding with embedder.
func NewIndexer(store storage.SnapshotStore, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:       store,
		embedder:    embedder,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.concurrency < 1 {
		idx.concurrency = 1
	}
	if idx.logger == nil {
		idx.logger = zap.NewNop()
	}
	return idx
}

func (idx *Indexer) effectiveBatchSize() int {
	limit := idx.embedder.MaxBatchSize()
	if limit <= 0 {
		limit = embedding.DefaultMaxBatchSize
	}
	if idx.batchSize <= 0 || idx.batchSize > limit {
		return limit
	}
	return idx.batchSize
}

// ValidateCorpus checks that docs is non-empty, every text is non-blank and ids are unique.
func ValidateCorpus(docs []models.Document) error {
	if len(docs) == 0 {
		return semerr.New(semerr.CodeIngestCorpusInvalid, "corpus is empty")
	}
	positions := make(map[int64]int, len(docs))
	for i, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			return semerr.New(semerr.CodeIngestCorpusInvalid, "document text is empty",
				semerr.FieldDocumentID(d.ID), semerr.Field("position", i))
		}
		if first, dup := positions[d.ID]; dup {
			return semerr.New(semerr.CodeIngestCorpusDuplicateID, "duplicate document id",
				semerr.FieldDocumentID(d.ID), semerr.Field("positions", []int{first, i}))
		}
		positions[d.ID] = i
	}
	return nil
}

type batchRange struct{ start, end int }

func partition(n, size int) []batchRange {
	batches := make([]batchRange, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		batches = append(batches, batchRange{start, end})
	}
	return batches
}

// Ingest embeds docs and replaces the stored snapshot with the result. Records keep
// the input order. Nothing is saved unless every batch succeeds.
func (idx *Indexer) Ingest(ctx context.Context, docs []models.Document) (report *models.IngestReport, err error) {
	ctx, sp := tracer.Start(ctx, "indexer.Ingest", trace.WithAttributes(
		attribute.Int("documents", len(docs)),
		attribute.String("model", idx.embedder.Model()),
	))
	defer func() {
		if err != nil {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, err.Error())
		}
		sp.End()
	}()

	if err := ValidateCorpus(docs); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, aborted(ctx)
	}

	started := time.Now()
	dim := idx.embedder.Dimensions()
	batches := partition(len(docs), idx.effectiveBatchSize())
	sp.SetAttributes(attribute.Int("batches", len(batches)))
	idx.logger.Info("ingestion started",
		zap.Int("documents", len(docs)),
		zap.Int("batches", len(batches)),
		zap.Int("concurrency", idx.concurrency))

	records := make([]*models.VectorRecord, len(docs))
	var done atomic.Int64
	progress := newProgressReporter(idx.progress, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for i, b := range batches {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batch := docs[b.start:b.end]
			texts := make([]string, len(batch))
			for j, d := range batch {
				texts[j] = d.Text
			}
			embeddings, err := idx.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return batchError(err, i, batch)
			}
			if len(embeddings) != len(batch) {
				return batchError(semerr.New(semerr.CodeEmbeddingBatchSizeMismatch, "embedder returned wrong number of vectors",
					semerr.Field("expected", len(batch)), semerr.Field("actual", len(embeddings))), i, batch)
			}
			for j, d := range batch {
				if len(embeddings[j]) != dim {
					return batchError(semerr.New(semerr.CodeEmbeddingDimensionMismatch, "embedding has wrong dimension",
						semerr.FieldDocumentID(d.ID), semerr.Field("expected", dim), semerr.Field("actual", len(embeddings[j]))), i, batch)
				}
				records[b.start+j] = models.NewVectorRecord(d, embeddings[j])
			}
			n := int(done.Add(int64(len(batch))))
			idx.logger.Debug("batch embedded",
				zap.Int("batch", i),
				zap.Int("size", len(batch)),
				zap.Int("embedded", n),
				zap.Int("total", len(docs)))
			progress.report(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, aborted(ctx)
		}
		// the embedder gave up before the caller's deadline was reached
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, semerr.Wrap(err, semerr.CodeIngestRunAborted, "ingestion cancelled")
		}
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, aborted(ctx)
	}

	snap := &models.Snapshot{
		Version:   models.SnapshotVersion,
		RunID:     uuid.NewString(),
		Model:     idx.embedder.Model(),
		Dimension: dim,
		CreatedAt: time.Now().UTC(),
		Records:   records,
	}
	if err := idx.store.Save(ctx, snap); err != nil {
		if ctx.Err() != nil {
			return nil, aborted(ctx)
		}
		return nil, semerr.With(err, semerr.Field("run_id", snap.RunID))
	}

	report = &models.IngestReport{
		RunID:     snap.RunID,
		Documents: len(records),
		Batches:   len(batches),
		Model:     snap.Model,
		Dimension: dim,
		Location:  idx.store.Location(),
		Duration:  time.Since(started),
	}
	idx.logger.Info("ingestion complete",
		zap.String("run_id", report.RunID),
		zap.Int("documents", report.Documents),
		zap.String("location", report.Location),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func aborted(ctx context.Context) error {
	return semerr.Wrap(ctx.Err(), semerr.CodeIngestRunAborted, "ingestion cancelled")
}

// batchError attaches the batch index and its document ids. The cause keeps its own
// code; uncoded causes are reported as batch failures.
func batchError(err error, batch int, docs []models.Document) error {
	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return semerr.Wrap(err, semerr.CodeIngestBatchFailure, "embedding batch failed",
		semerr.FieldBatch(batch), semerr.Field("document_ids", ids))
}
