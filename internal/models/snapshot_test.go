package models

import (
	"testing"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

func TestSnapshot_Validate(t *testing.T) {
	rec := func(id int64, emb ...float32) *VectorRecord {
		return &VectorRecord{ID: id, Text: "t", Embedding: emb}
	}
	tests := []struct {
		name    string
		snap    *Snapshot
		wantErr bool
	}{
		{"valid", &Snapshot{Version: SnapshotVersion, Dimension: 2, Records: []*VectorRecord{rec(1, 1, 0), rec(2, 0, 1)}}, false},
		{"empty records", &Snapshot{Version: SnapshotVersion, Dimension: 2}, false},
		{"wrong version", &Snapshot{Version: 99, Dimension: 2}, true},
		{"zero dimension", &Snapshot{Version: SnapshotVersion, Dimension: 0}, true},
		{"mixed dimensions", &Snapshot{Version: SnapshotVersion, Dimension: 2, Records: []*VectorRecord{rec(1, 1, 0), rec(2, 1, 0, 0)}}, true},
		{"duplicate ids", &Snapshot{Version: SnapshotVersion, Dimension: 2, Records: []*VectorRecord{rec(1, 1, 0), rec(1, 0, 1)}}, true},
		{"nil record", &Snapshot{Version: SnapshotVersion, Dimension: 2, Records: []*VectorRecord{nil}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snap.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !semerr.HasCode(err, semerr.CodeStoreSnapshotCorrupt) {
				t.Errorf("error code = %q", semerr.CodeOf(err))
			}
		})
	}
}

func TestNewVectorRecord_CopiesMetadata(t *testing.T) {
	doc := Document{ID: 1, Text: "refund", Metadata: map[string]string{"type": "policy"}}
	r := NewVectorRecord(doc, []float32{1, 0})
	doc.Metadata["type"] = "changed"
	if r.Metadata["type"] != "policy" {
		t.Errorf("metadata aliased: %v", r.Metadata)
	}
	if r.Dimension() != 2 {
		t.Errorf("Dimension() = %d", r.Dimension())
	}
}

func TestSnapshot_ValidateClearsEmptyMetadata(t *testing.T) {
	s := &Snapshot{
		Version:   SnapshotVersion,
		Dimension: 2,
		Records: []*VectorRecord{
			{ID: 1, Text: "a", Metadata: map[string]string{}, Embedding: []float32{1, 0}},
			{ID: 2, Text: "b", Metadata: map[string]string{"type": "info"}, Embedding: []float32{0, 1}},
		},
	}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.Records[0].Metadata != nil {
		t.Errorf("empty metadata kept: %#v", s.Records[0].Metadata)
	}
	if s.Records[1].Metadata["type"] != "info" {
		t.Errorf("metadata lost: %v", s.Records[1].Metadata)
	}
}
