package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

// SQLiteStore keeps the snapshot in a SQLite database. Save replaces every row in
// one transaction, so readers see either the old snapshot or the new one.
// The database is opened on first use; Load on a missing file does not create it.
type SQLiteStore struct {
	path string
	mu   sync.Mutex
	db   *sql.DB
}

var _ SnapshotStore = (*SQLiteStore)(nil)

// NewSQLiteStore returns a store for the database at dbPath.
func NewSQLiteStore(dbPath string) *SQLiteStore {
	return &SQLiteStore{path: dbPath}
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	s.db = db
	return db, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshot_meta (
		singleton INTEGER PRIMARY KEY CHECK (singleton = 1),
		version INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		model TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vector_records (
		position INTEGER PRIMARY KEY,
		id INTEGER NOT NULL UNIQUE,
		text TEXT NOT NULL,
		metadata TEXT,
		embedding BLOB NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Save replaces the stored snapshot with snap.
func (s *SQLiteStore) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	db, err := s.open()
	if err != nil {
		return semerr.Wrap(err, semerr.CodeStoreSnapshotWriteFailure, "open snapshot database", semerr.FieldPath(s.path))
	}
	if err := s.replace(ctx, db, snap); err != nil {
		return semerr.Wrap(err, semerr.CodeStoreSnapshotWriteFailure, "write snapshot", semerr.FieldPath(s.path))
	}
	return nil
}

func (s *SQLiteStore) replace(ctx context.Context, db *sql.DB, snap *models.Snapshot) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vector_records`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_meta`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (singleton, version, run_id, model, dimension, created_at)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		snap.Version, snap.RunID, snap.Model, snap.Dimension, snap.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vector_records (position, id, text, metadata, embedding)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range snap.Records {
		var metadata sql.NullString
		if len(r.Metadata) > 0 {
			raw, err := json.Marshal(r.Metadata)
			if err != nil {
				return semerr.Errorf(semerr.CodeStoreSnapshotWriteFailure, "marshal metadata for record %d: %w", r.ID, err)
			}
			metadata = sql.NullString{String: string(raw), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Text, metadata, float32SliceToBytes(r.Embedding)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load reads the stored snapshot.
func (s *SQLiteStore) Load(ctx context.Context) (*models.Snapshot, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotNotFound, "no snapshot found; run ingest first", semerr.FieldPath(s.path))
		}
		return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "stat snapshot database", semerr.FieldPath(s.path))
	}
	db, err := s.open()
	if err != nil {
		return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "open snapshot database", semerr.FieldPath(s.path))
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, semerr.Wrap(err, semerr.CodeStoreDatabaseFailure, "begin read", semerr.FieldPath(s.path))
	}
	defer tx.Rollback()

	var snap models.Snapshot
	var createdAt string
	err = tx.QueryRowContext(ctx,
		`SELECT version, run_id, model, dimension, created_at FROM snapshot_meta WHERE singleton = 1`,
	).Scan(&snap.Version, &snap.RunID, &snap.Model, &snap.Dimension, &createdAt)
	if err == sql.ErrNoRows {
		return nil, semerr.New(semerr.CodeStoreSnapshotNotFound, "no snapshot found; run ingest first", semerr.FieldPath(s.path))
	}
	if err != nil {
		return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "read snapshot metadata", semerr.FieldPath(s.path))
	}
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "parse snapshot timestamp", semerr.FieldPath(s.path))
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, text, metadata, embedding FROM vector_records ORDER BY position`)
	if err != nil {
		return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "read snapshot records", semerr.FieldPath(s.path))
	}
	defer rows.Close()

	for rows.Next() {
		var r models.VectorRecord
		var metadata sql.NullString
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Text, &metadata, &blob); err != nil {
			return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "scan snapshot record", semerr.FieldPath(s.path))
		}
		if len(blob)%4 != 0 {
			return nil, semerr.New(semerr.CodeStoreSnapshotCorrupt, "embedding blob is not a float32 array",
				semerr.FieldDocumentID(r.ID), semerr.Field("bytes", len(blob)))
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "decode record metadata", semerr.FieldDocumentID(r.ID))
			}
		}
		r.Embedding = bytesToFloat32Slice(blob)
		snap.Records = append(snap.Records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "iterate snapshot records", semerr.FieldPath(s.path))
	}
	if err := snap.Validate(); err != nil {
		return nil, semerr.With(err, semerr.FieldPath(s.path))
	}
	return &snap, nil
}

func (s *SQLiteStore) Location() string { return s.path }

func (s *SQLiteStore) Backend() string { return BackendSQLite }

// Close closes the database connection if it was opened.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
