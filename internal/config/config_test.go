package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "semsearch.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
embedding:
  provider: mock
  dimensions: 64
  initial_delay: 250ms
storage:
  backend: sqlite
  snapshot_path: "/tmp/semsearch/vectors.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != "mock" || cfg.Embedding.Dimensions != 64 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Embedding.InitialDelay != 250*time.Millisecond {
		t.Errorf("initial_delay = %v, want 250ms", cfg.Embedding.InitialDelay)
	}
	if cfg.Embedding.Model != DefaultModel {
		t.Errorf("model should default to %s, got %s", DefaultModel, cfg.Embedding.Model)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.SnapshotPath != "/tmp/semsearch/vectors.db" {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Dimensions != DefaultDimensions || cfg.Embedding.MaxBatchSize != DefaultMaxBatchSize {
		t.Errorf("unexpected defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.MaxRetries != DefaultMaxRetries {
		t.Errorf("max_retries = %d, want %d", cfg.Embedding.MaxRetries, DefaultMaxRetries)
	}
	if cfg.Search.DefaultLimit != 3 {
		t.Errorf("default_limit = %d, want 3", cfg.Search.DefaultLimit)
	}
	want := filepath.Join(dir, "data", "vectors.json")
	if cfg.Storage.SnapshotPath != want {
		t.Errorf("snapshot_path = %s, want %s", cfg.Storage.SnapshotPath, want)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("SEMSEARCH_EMBEDDING_MODEL", "text-embedding-3-large")
	t.Setenv("SEMSEARCH_EMBEDDING_DIMENSIONS", "3072")
	t.Setenv("SEMSEARCH_SERVER_PORT", "9100")
	t.Setenv("SEMSEARCH_EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	cfg, err := Load(writeConfig(t, "embedding:\n  model: text-embedding-3-small\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Model != "text-embedding-3-large" {
		t.Errorf("model = %s, env should win over file", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 3072 || cfg.Server.Port != 9100 {
		t.Errorf("unexpected overrides: dims=%d port=%d", cfg.Embedding.Dimensions, cfg.Server.Port)
	}
	if cfg.Embedding.APIKey != "sk-from-env" {
		t.Errorf("api key should fall back to OPENAI_API_KEY, got %q", cfg.Embedding.APIKey)
	}
}

func TestLoad_prefixedAPIKeyWins(t *testing.T) {
	t.Setenv("SEMSEARCH_EMBEDDING_API_KEY", "sk-prefixed")
	t.Setenv("OPENAI_API_KEY", "sk-plain")
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.APIKey != "sk-prefixed" {
		t.Errorf("api key = %q, want sk-prefixed", cfg.Embedding.APIKey)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  snapshot_path: "./data/vectors.json.zst"
ingest:
  corpus_path: "./corpus/docs.yaml"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "data", "vectors.json.zst"); cfg.Storage.SnapshotPath != want {
		t.Errorf("snapshot_path = %s, want %s", cfg.Storage.SnapshotPath, want)
	}
	if want := filepath.Join(dir, "corpus", "docs.yaml"); cfg.Ingest.CorpusPath != want {
		t.Errorf("corpus_path = %s, want %s", cfg.Ingest.CorpusPath, want)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad backend", "storage:\n  backend: postgres\n"},
		{"bad provider", "embedding:\n  provider: cohere\n"},
		{"negative retries", "embedding:\n  max_retries: -1\n"},
		{"batch above max", "embedding:\n  max_batch_size: 10\ningest:\n  batch_size: 11\n"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"delays inverted", "embedding:\n  initial_delay: 10s\n  max_delay: 1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !semerr.HasCode(err, semerr.CodeConfigValidateInvalidValue) {
				t.Errorf("code = %s, want %s", semerr.CodeOf(err), semerr.CodeConfigValidateInvalidValue)
			}
		})
	}
}

func TestLoad_unreadable(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed\n"))
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !semerr.HasCode(err, semerr.CodeConfigLoadReadFailure) {
		t.Errorf("code = %s, want %s", semerr.CodeOf(err), semerr.CodeConfigLoadReadFailure)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "semsearch.yaml")
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.MaxDelay = 45 * time.Second
	cfg.Storage.SnapshotPath = "/var/lib/semsearch/vectors.json"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Embedding.Provider != "mock" || got.Embedding.MaxDelay != 45*time.Second {
		t.Errorf("round trip lost embedding settings: %+v", got.Embedding)
	}
	if got.Storage.SnapshotPath != cfg.Storage.SnapshotPath {
		t.Errorf("snapshot_path = %s, want %s", got.Storage.SnapshotPath, cfg.Storage.SnapshotPath)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.Addr() != "localhost:8080" {
		t.Errorf("addr: got %s", cfg.Server.Addr())
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("default embedding: got %s/%d", cfg.Embedding.Model, cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.MaxRetries != 0 {
		t.Errorf("max_retries zero value must be kept, got %d", cfg.Embedding.MaxRetries)
	}
	if cfg.Ingest.Concurrency != 1 {
		t.Errorf("default concurrency: got %d", cfg.Ingest.Concurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, want string
	}{
		{"/abs/path", "/abs/path"},
		{"./rel", filepath.Join("/cfg", "rel")},
		{".", "/cfg"},
		{"data/vectors.json", filepath.Join(home, "data", "vectors.json")},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in, "/cfg"); got != tt.want {
			t.Errorf("expandPath(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
