package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

func sampleResponse() *models.SearchResponse {
	results := []*models.ScoredResult{
		{ID: 1, Text: "We offer a 30-day refund policy on all purchases.", Metadata: map[string]string{"type": "policy", "topic": "refunds"}, Score: 0.912345, Rank: 1},
		{ID: 4, Text: "You can update your account details from the profile settings page.", Score: 0.5, Rank: 2},
	}
	return &models.SearchResponse{
		Query:        "refund",
		Best:         results[0],
		Results:      results,
		Excluded:     []int64{9},
		TotalRecords: 5,
		QueryTime:    3,
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Best match:",
		"1. [0.9123] (id 1) We offer a 30-day refund policy",
		"   topic=refunds type=policy",
		"Top 2 results:",
		"2. [0.5000] (id 4) You can update",
		"Skipped 1 record(s) with zero-magnitude embeddings: 9",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Best == nil || decoded.Best.ID != 1 || len(decoded.Results) != 2 {
		t.Errorf("unexpected decoded response: %+v", decoded)
	}
}

func TestWriteSearchResults_NoResults(t *testing.T) {
	var buf bytes.Buffer
	resp := &models.SearchResponse{Query: "anything", Results: []*models.ScoredResult{}}
	if err := WriteSearchResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `No results for "anything"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWriteIngestReportAndStatus(t *testing.T) {
	var buf bytes.Buffer
	report := &models.IngestReport{RunID: "r1", Documents: 4, Batches: 1, Model: "m", Dimension: 8, Location: "/tmp/v.json", Duration: 1500 * time.Millisecond}
	if err := WriteIngestReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Ingested 4 documents in 1 batch(es) with m (8 dimensions)") {
		t.Errorf("unexpected ingest output: %s", buf.String())
	}

	buf.Reset()
	info := &models.SnapshotInfo{Location: "/tmp/v.json", Backend: "json", Records: 4, Dimension: 8, DiskBytes: 2048}
	if err := WriteStatus(&buf, info, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "records:     4") || !strings.Contains(buf.String(), "2.0 KiB") {
		t.Errorf("unexpected status output: %s", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !semerr.IsInvalidInput(err) {
			t.Errorf("ParseOutputFormat(%q) should be an invalid input error", tt.in)
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}
