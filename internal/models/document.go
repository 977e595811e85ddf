// Package models defines core data structures for documents, vector records, snapshots, and query results.
package models

// Document is a unit of searchable text supplied by the caller.
type Document struct {
	ID       int64             `json:"id" yaml:"id"`
	Text     string            `json:"text" yaml:"text"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// VectorRecord is a document paired with its embedding, as persisted in a snapshot.
type VectorRecord struct {
	ID        int64             `json:"id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float32         `json:"embedding"`
}

// NewVectorRecord builds a record from doc and its embedding. Metadata is copied.
func NewVectorRecord(doc Document, embedding []float32) *VectorRecord {
	var meta map[string]string
	if len(doc.Metadata) > 0 {
		meta = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
	}
	return &VectorRecord{
		ID:        doc.ID,
		Text:      doc.Text,
		Metadata:  meta,
		Embedding: embedding,
	}
}

// Dimension returns the embedding length.
func (r *VectorRecord) Dimension() int {
	return len(r.Embedding)
}
