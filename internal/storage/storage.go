// Package storage persists ingestion snapshots. A snapshot is written as one unit
// and replaces the previous one atomically from a reader's point of view.
package storage

import (
	"context"
	"strings"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// SnapshotStore saves and loads the vector record snapshot.
type SnapshotStore interface {
	// Save validates snap and replaces any existing snapshot with it.
	Save(ctx context.Context, snap *models.Snapshot) error
	// Load returns the current snapshot. A missing snapshot is reported with
	// store.snapshot.not_found; unreadable or inconsistent data with store.snapshot.corrupt.
	Load(ctx context.Context) (*models.Snapshot, error)
	Location() string
	Backend() string
	Close() error
}

// NewSnapshotStore opens the store for backend at path. An empty backend selects JSON.
func NewSnapshotStore(backend, path string) (SnapshotStore, error) {
	if path == "" {
		return nil, semerr.New(semerr.CodeConfigValidateInvalidValue, "snapshot path is required")
	}
	switch strings.ToLower(backend) {
	case BackendJSON, "":
		return NewFileStore(path), nil
	case BackendSQLite:
		return NewSQLiteStore(path), nil
	default:
		return nil, semerr.New(semerr.CodeStoreBackendUnsupported, "unknown storage backend",
			semerr.Field("backend", backend))
	}
}
