package models

import (
	"time"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

// SnapshotVersion is the schema version written by this build. Snapshots with a
// different version are rejected on load.
const SnapshotVersion = 1

// Snapshot is the complete persisted output of one ingestion run.
type Snapshot struct {
	Version   int             `json:"version"`
	RunID     string          `json:"run_id"`
	Model     string          `json:"model"`
	Dimension int             `json:"dimension"`
	CreatedAt time.Time       `json:"created_at"`
	Records   []*VectorRecord `json:"records"`
}

// Validate checks the snapshot's structural invariants: known version, one shared
// positive dimension, unique ids. Violations are reported as corrupt store errors.
// Empty metadata maps are set to nil, matching what every store loads back.
func (s *Snapshot) Validate() error {
	if s.Version != SnapshotVersion {
		return semerr.New(semerr.CodeStoreSnapshotCorrupt, "unsupported snapshot version",
			semerr.Field("version", s.Version), semerr.Field("supported", SnapshotVersion))
	}
	if s.Dimension <= 0 {
		return semerr.New(semerr.CodeStoreSnapshotCorrupt, "snapshot dimension must be positive",
			semerr.Field("dimension", s.Dimension))
	}
	seen := make(map[int64]struct{}, len(s.Records))
	for i, r := range s.Records {
		if r == nil {
			return semerr.New(semerr.CodeStoreSnapshotCorrupt, "snapshot contains an empty record",
				semerr.Field("position", i))
		}
		if len(r.Embedding) != s.Dimension {
			return semerr.New(semerr.CodeStoreSnapshotCorrupt, "snapshot records have inconsistent dimensions",
				semerr.FieldDocumentID(r.ID), semerr.Field("expected", s.Dimension), semerr.Field("actual", len(r.Embedding)))
		}
		if _, dup := seen[r.ID]; dup {
			return semerr.New(semerr.CodeStoreSnapshotCorrupt, "snapshot contains duplicate record id",
				semerr.FieldDocumentID(r.ID))
		}
		seen[r.ID] = struct{}{}
		if len(r.Metadata) == 0 {
			r.Metadata = nil
		}
	}
	return nil
}

// SnapshotInfo is a summary of a snapshot for status reporting.
type SnapshotInfo struct {
	Location  string    `json:"location"`
	Backend   string    `json:"backend"`
	RunID     string    `json:"run_id"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"created_at"`
	DiskBytes int64     `json:"disk_usage_bytes"`
}

// Info summarizes s.
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{
		RunID:     s.RunID,
		Model:     s.Model,
		Dimension: s.Dimension,
		Records:   len(s.Records),
		CreatedAt: s.CreatedAt,
	}
}

// IngestReport describes a completed ingestion run.
type IngestReport struct {
	RunID     string        `json:"run_id"`
	Documents int           `json:"documents"`
	Batches   int           `json:"batches"`
	Model     string        `json:"model"`
	Dimension int           `json:"dimension"`
	Location  string        `json:"location"`
	Duration  time.Duration `json:"duration_ns"`
}
