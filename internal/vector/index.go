// Package vector provides cosine similarity, bounded top-k selection, and an exact in-memory index.
package vector

import "context"

// Searcher ranks stored records against a query embedding.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) (*SearchHits, error)
	Size() int
	Dimensions() int
}

// SearchHits is the outcome of a scan: ranked hits plus records that could not be scored.
type SearchHits struct {
	Hits []Hit
	// Excluded holds ids of records whose embedding has zero magnitude.
	Excluded []int64
	// Scanned is the number of records considered.
	Scanned int
}
