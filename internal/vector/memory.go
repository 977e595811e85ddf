package vector

import (
	"context"
	"sync"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

const cancelCheckInterval = 256

// MemoryIndex is an exact in-memory index that scores every record with cosine similarity.
// It is safe for concurrent readers.
type MemoryIndex struct {
	dimensions int
	records    []*models.VectorRecord
	byID       map[int64]*models.VectorRecord
	mu         sync.RWMutex
}

var _ Searcher = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, semerr.New(semerr.CodeVectorDimensionInvalid, "dimensions must be positive",
			semerr.Field("dimensions", dimensions))
	}
	return &MemoryIndex{
		dimensions: dimensions,
		byID:       make(map[int64]*models.VectorRecord),
	}, nil
}

// NewMemoryIndexFromSnapshot builds an index holding every record of snap.
func NewMemoryIndexFromSnapshot(snap *models.Snapshot) (*MemoryIndex, error) {
	if snap.Dimension <= 0 {
		return nil, semerr.New(semerr.CodeStoreSnapshotCorrupt, "snapshot has no usable dimension",
			semerr.Field("dimension", snap.Dimension))
	}
	idx, err := NewMemoryIndex(snap.Dimension)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(snap.Records...); err != nil {
		return nil, err
	}
	return idx, nil
}

// Add appends records. Every embedding must match the index dimension and ids must be unique.
// Nothing is added when any record is rejected.
func (m *MemoryIndex) Add(records ...*models.VectorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := make(map[int64]struct{}, len(records))
	for _, r := range records {
		if len(r.Embedding) != m.dimensions {
			return semerr.New(semerr.CodeStoreSnapshotCorrupt, "record dimension does not match index",
				semerr.FieldDocumentID(r.ID), semerr.Field("expected", m.dimensions), semerr.Field("actual", len(r.Embedding)))
		}
		_, exists := m.byID[r.ID]
		_, repeated := pending[r.ID]
		if exists || repeated {
			return semerr.New(semerr.CodeStoreSnapshotCorrupt, "duplicate record id", semerr.FieldDocumentID(r.ID))
		}
		pending[r.ID] = struct{}{}
	}
	for _, r := range records {
		m.records = append(m.records, r)
		m.byID[r.ID] = r
	}
	return nil
}

// Search scores every record against query and returns the k best by descending score,
// ties broken by ascending id. Records with a zero-magnitude embedding are skipped and
// reported in Excluded. k is clamped to the number of scorable records.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) (*SearchHits, error) {
	if len(query) != m.dimensions {
		return nil, semerr.New(semerr.CodeEmbeddingDimensionMismatch, "query dimension does not match stored vectors",
			semerr.Field("expected", m.dimensions), semerr.Field("actual", len(query)))
	}
	if L2Norm(query) == 0 {
		return nil, semerr.New(semerr.CodeVectorNormDegenerate, "query embedding has zero magnitude")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := &SearchHits{Scanned: len(m.records)}
	top := NewTopK(k)
	for i, r := range m.records {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		score, err := CosineSimilarity(query, r.Embedding)
		if err != nil {
			if semerr.HasCode(err, semerr.CodeVectorNormDegenerate) {
				out.Excluded = append(out.Excluded, r.ID)
				continue
			}
			return nil, semerr.With(err, semerr.FieldDocumentID(r.ID))
		}
		top.Push(Hit{ID: r.ID, Score: score})
	}
	out.Hits = top.Sorted()
	return out, nil
}

// Record returns the stored record with the given id.
func (m *MemoryIndex) Record(id int64) (*models.VectorRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	return r, ok
}

// Size returns the number of records in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Dimensions returns the vector dimension the index accepts.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}
