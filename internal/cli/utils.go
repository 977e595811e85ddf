// Package cli formats command output for the semsearch binary.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
	"github.com/hyperjump/semsearch/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const maxTextWidth = 200

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", semerr.New(semerr.CodeCLIInputInvalid, "output must be text or json", semerr.Field("output", s))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes the best match and the ranked list to w.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if response.Best == nil {
		fmt.Fprintf(w, "No results for %q (%d records searched)\n", response.Query, response.TotalRecords)
		writeExcluded(w, response.Excluded)
		return nil
	}
	fmt.Fprintln(w, "Best match:")
	writeOneResult(w, response.Best)
	fmt.Fprintf(w, "\nTop %d results:\n", len(response.Results))
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	writeExcluded(w, response.Excluded)
	return nil
}

func writeOneResult(w io.Writer, result *models.ScoredResult) {
	fmt.Fprintf(w, "%d. [%.4f] (id %d) %s\n", result.Rank, result.Score, result.ID, utils.Truncate(result.Text, maxTextWidth))
	if meta := FormatMetadata(result.Metadata); meta != "" {
		fmt.Fprintf(w, "   %s\n", meta)
	}
}

func writeExcluded(w io.Writer, ids []int64) {
	if len(ids) == 0 {
		return
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	fmt.Fprintf(w, "\nSkipped %d record(s) with zero-magnitude embeddings: %s\n", len(ids), strings.Join(parts, ", "))
}

// FormatMetadata renders metadata as key=value pairs in key order.
func FormatMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + meta[k]
	}
	return strings.Join(pairs, " ")
}

// WriteIngestReport writes the outcome of an ingestion run.
func WriteIngestReport(w io.Writer, report *models.IngestReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Ingested %d documents in %d batch(es) with %s (%d dimensions)\n",
		report.Documents, report.Batches, report.Model, report.Dimension)
	fmt.Fprintf(w, "Snapshot: %s\n", report.Location)
	fmt.Fprintf(w, "Run ID:   %s\n", report.RunID)
	fmt.Fprintf(w, "Took:     %s\n", report.Duration.Round(time.Millisecond))
	return nil
}

// WriteStatus writes a snapshot summary.
func WriteStatus(w io.Writer, info *models.SnapshotInfo, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintln(w, "# snapshot")
	fmt.Fprintf(w, "location:    %s\n", info.Location)
	fmt.Fprintf(w, "backend:     %s\n", info.Backend)
	fmt.Fprintf(w, "run_id:      %s\n", info.RunID)
	fmt.Fprintf(w, "model:       %s\n", info.Model)
	fmt.Fprintf(w, "dimension:   %d\n", info.Dimension)
	fmt.Fprintf(w, "records:     %d\n", info.Records)
	fmt.Fprintf(w, "created_at:  %s\n", info.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "disk_usage:  %s\n", FormatBytes(info.DiskBytes))
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
