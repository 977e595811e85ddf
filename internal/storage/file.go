package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

// CompressedSuffix marks snapshot files stored zstd-compressed.
const CompressedSuffix = ".zst"

// FileStore keeps the snapshot as a single JSON document, optionally zstd-compressed
// when the path ends in ".zst". Writes go to a temp file that is renamed over the target.
type FileStore struct {
	path string
}

var _ SnapshotStore = (*FileStore)(nil)

// NewFileStore returns a store for the snapshot file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) compressed() bool {
	return strings.HasSuffix(s.path, CompressedSuffix)
}

// Save writes snap atomically. A failed save leaves the previous snapshot intact.
func (s *FileStore) Save(ctx context.Context, snap *models.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return semerr.Wrap(err, semerr.CodeStoreSnapshotWriteFailure, "create snapshot directory", semerr.FieldPath(dir))
	}
	err := writeFileAtomic(s.path, func(w io.Writer) error {
		if !s.compressed() {
			return json.NewEncoder(w).Encode(snap)
		}
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if err := json.NewEncoder(enc).Encode(snap); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return semerr.Wrap(err, semerr.CodeStoreSnapshotWriteFailure, "write snapshot", semerr.FieldPath(s.path))
	}
	return nil
}

// Load reads and validates the snapshot.
func (s *FileStore) Load(ctx context.Context) (*models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotNotFound, "no snapshot found; run ingest first", semerr.FieldPath(s.path))
		}
		return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "open snapshot", semerr.FieldPath(s.path))
	}
	defer f.Close()

	var r io.Reader = bufio.NewReaderSize(f, 256*1024)
	if s.compressed() {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "open compressed snapshot", semerr.FieldPath(s.path))
		}
		defer dec.Close()
		r = dec
	}

	var snap models.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, semerr.Wrap(err, semerr.CodeStoreSnapshotCorrupt, "decode snapshot", semerr.FieldPath(s.path))
	}
	if err := snap.Validate(); err != nil {
		return nil, semerr.With(err, semerr.FieldPath(s.path))
	}
	return &snap, nil
}

func (s *FileStore) Location() string { return s.path }

func (s *FileStore) Backend() string { return BackendJSON }

// Close is a no-op; the file is only open during Save and Load.
func (s *FileStore) Close() error { return nil }

// writeFileAtomic writes through a temp file in the target directory, fsyncs it,
// renames it over filename, and fsyncs the directory.
func writeFileAtomic(filename string, write func(io.Writer) error) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := write(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}
	tmpName = ""

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
