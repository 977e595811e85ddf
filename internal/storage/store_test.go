package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Version:   models.SnapshotVersion,
		RunID:     "run-1",
		Model:     "text-embedding-3-small",
		Dimension: 3,
		CreatedAt: time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC),
		Records: []*models.VectorRecord{
			{ID: 1, Text: "We offer a 30-day refund policy on all purchases.", Metadata: map[string]string{"type": "policy", "topic": "refunds"}, Embedding: []float32{0.1, -0.25, 0.333333}},
			{ID: 2, Text: "Our support team is available 24/7 via email and live chat.", Embedding: []float32{1e-7, 3.4028235e38, -1}},
			{ID: 3, Text: "Shipping usually takes 3-5 business days within the country.", Metadata: map[string]string{"type": "info"}, Embedding: []float32{0, 0, 0}},
		},
	}
}

func assertSnapshotEqual(t *testing.T, want, got *models.Snapshot) {
	t.Helper()
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Model, got.Model)
	assert.Equal(t, want.Dimension, got.Dimension)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", want.CreatedAt, got.CreatedAt)
	require.Len(t, got.Records, len(want.Records))
	for i := range want.Records {
		assert.Equal(t, want.Records[i], got.Records[i], "record %d", i)
	}
}

func eachBackend(t *testing.T, fn func(t *testing.T, newStore func(path string) SnapshotStore, name string)) {
	backends := []struct {
		name string
		file string
		new  func(path string) SnapshotStore
	}{
		{"json", "vectors.json", func(p string) SnapshotStore { return NewFileStore(p) }},
		{"json+zstd", "vectors.json.zst", func(p string) SnapshotStore { return NewFileStore(p) }},
		{"sqlite", "vectors.db", func(p string) SnapshotStore { return NewSQLiteStore(p) }},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) { fn(t, b.new, b.file) })
	}
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, newStore func(string) SnapshotStore, file string) {
		path := filepath.Join(t.TempDir(), "nested", file)
		store := newStore(path)
		defer store.Close()
		ctx := context.Background()

		want := sampleSnapshot()
		require.NoError(t, store.Save(ctx, want))
		got, err := store.Load(ctx)
		require.NoError(t, err)
		assertSnapshotEqual(t, want, got)

		reopened := newStore(path)
		defer reopened.Close()
		got, err = reopened.Load(ctx)
		require.NoError(t, err)
		assertSnapshotEqual(t, want, got)
	})
}

func TestSnapshotStore_SaveReplaces(t *testing.T) {
	eachBackend(t, func(t *testing.T, newStore func(string) SnapshotStore, file string) {
		store := newStore(filepath.Join(t.TempDir(), file))
		defer store.Close()
		ctx := context.Background()

		require.NoError(t, store.Save(ctx, sampleSnapshot()))
		next := &models.Snapshot{
			Version:   models.SnapshotVersion,
			RunID:     "run-2",
			Model:     "m",
			Dimension: 2,
			CreatedAt: time.Now().UTC(),
			Records:   []*models.VectorRecord{{ID: 9, Text: "only", Embedding: []float32{1, 0}}},
		}
		require.NoError(t, store.Save(ctx, next))
		got, err := store.Load(ctx)
		require.NoError(t, err)
		assertSnapshotEqual(t, next, got)
	})
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	eachBackend(t, func(t *testing.T, newStore func(string) SnapshotStore, file string) {
		path := filepath.Join(t.TempDir(), file)
		store := newStore(path)
		defer store.Close()

		_, err := store.Load(context.Background())
		require.Error(t, err)
		assert.True(t, semerr.IsNotFound(err), "code=%s", semerr.CodeOf(err))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "load must not create the snapshot")
	})
}

func TestSnapshotStore_SaveRejectsInvalid(t *testing.T) {
	eachBackend(t, func(t *testing.T, newStore func(string) SnapshotStore, file string) {
		path := filepath.Join(t.TempDir(), file)
		store := newStore(path)
		defer store.Close()

		snap := sampleSnapshot()
		snap.Records[1].Embedding = []float32{1, 2}
		err := store.Save(context.Background(), snap)
		assert.True(t, semerr.HasCode(err, semerr.CodeStoreSnapshotCorrupt))
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{{{"},
		{"truncated", `{"version":1,"dimension":2,"records":[{"id":1,"embedding":[1,`},
		{"version mismatch", `{"version":7,"dimension":2,"records":[]}`},
		{"mixed dimensions", `{"version":1,"dimension":2,"records":[{"id":1,"text":"a","embedding":[1,0]},{"id":2,"text":"b","embedding":[1,0,0]}]}`},
		{"duplicate ids", `{"version":1,"dimension":1,"records":[{"id":1,"text":"a","embedding":[1]},{"id":1,"text":"b","embedding":[2]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vectors.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := NewFileStore(path).Load(context.Background())
			require.Error(t, err)
			assert.True(t, semerr.HasCode(err, semerr.CodeStoreSnapshotCorrupt), "code=%s", semerr.CodeOf(err))
		})
	}
}

func TestFileStore_CompressedIsSmallerAndNotPlainJSON(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot()
	for i := 0; i < 50; i++ {
		snap.Records = append(snap.Records, &models.VectorRecord{ID: int64(100 + i), Text: "repeated filler text", Embedding: []float32{0.5, 0.5, 0.5}})
	}
	ctx := context.Background()
	plain := filepath.Join(dir, "v.json")
	packed := filepath.Join(dir, "v.json.zst")
	require.NoError(t, NewFileStore(plain).Save(ctx, snap))
	require.NoError(t, NewFileStore(packed).Save(ctx, snap))

	plainBytes, err := DiskUsageBytes(plain)
	require.NoError(t, err)
	packedBytes, err := DiskUsageBytes(packed)
	require.NoError(t, err)
	assert.Less(t, packedBytes, plainBytes)

	raw, err := os.ReadFile(packed)
	require.NoError(t, err)
	assert.NotEqual(t, byte('{'), raw[0])

	// a compressed file read as plain JSON is corrupt, not silently empty
	require.NoError(t, os.Rename(packed, filepath.Join(dir, "misnamed.json")))
	_, err = NewFileStore(filepath.Join(dir, "misnamed.json")).Load(ctx)
	assert.True(t, semerr.HasCode(err, semerr.CodeStoreSnapshotCorrupt))
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "vectors.json"))
	require.NoError(t, store.Save(context.Background(), sampleSnapshot()))
	require.NoError(t, store.Save(context.Background(), sampleSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "vectors.json", entries[0].Name())
}

func TestSQLiteStore_EmptyDatabaseIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	store := NewSQLiteStore(path)
	defer store.Close()
	db, err := store.open()
	require.NoError(t, err)
	require.NotNil(t, db)

	_, err = store.Load(context.Background())
	assert.True(t, semerr.IsNotFound(err))
}

func TestNewSnapshotStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSnapshotStore("", filepath.Join(dir, "a.json"))
	require.NoError(t, err)
	assert.Equal(t, BackendJSON, s.Backend())
	assert.Equal(t, []string{filepath.Join(dir, "a.json")}, StoreFiles(s))

	s, err = NewSnapshotStore("SQLite", filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, s.Backend())
	assert.Len(t, StoreFiles(s), 3)
	require.NoError(t, s.Close())

	_, err = NewSnapshotStore("postgres", filepath.Join(dir, "x"))
	assert.True(t, semerr.HasCode(err, semerr.CodeStoreBackendUnsupported))

	_, err = NewSnapshotStore(BackendJSON, "")
	assert.True(t, semerr.IsInvalidInput(err))
}

func TestFloat32BytesRoundTrip(t *testing.T) {
	in := []float32{0, -0.5, 1.25, 3.4028235e38, 1e-45}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Len(t, float32SliceToBytes(in), 20)
}

func TestSnapshotStore_EmptyMetadataRoundTrip(t *testing.T) {
	eachBackend(t, func(t *testing.T, newStore func(string) SnapshotStore, file string) {
		store := newStore(filepath.Join(t.TempDir(), file))
		defer store.Close()
		snap := sampleSnapshot()
		snap.Records[1].Metadata = map[string]string{}
		require.NoError(t, store.Save(context.Background(), snap))

		got, err := store.Load(context.Background())
		require.NoError(t, err)
		assertSnapshotEqual(t, snap, got)
		assert.Nil(t, got.Records[1].Metadata)
	})
}
