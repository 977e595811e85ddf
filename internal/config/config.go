// Package config loads semsearch settings from a YAML file and SEMSEARCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

// EnvPrefix is prepended to environment overrides, e.g. SEMSEARCH_EMBEDDING_MODEL.
const EnvPrefix = "SEMSEARCH"

// DefaultFileName is the config file looked up in the working directory when no path is given.
const DefaultFileName = "semsearch.yaml"

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug" mapstructure:"debug"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig selects where the snapshot lives.
type StorageConfig struct {
	Backend      string `yaml:"backend" mapstructure:"backend"`
	SnapshotPath string `yaml:"snapshot_path" mapstructure:"snapshot_path"`
}

// EmbeddingConfig holds provider and adapter settings.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider" mapstructure:"provider"`
	Model             string        `yaml:"model" mapstructure:"model"`
	Dimensions        int           `yaml:"dimensions" mapstructure:"dimensions"`
	APIKey            string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	MaxBatchSize      int           `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	InitialDelay      time.Duration `yaml:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay          time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	CacheSize         int           `yaml:"cache_size" mapstructure:"cache_size"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	CorpusPath  string `yaml:"corpus_path,omitempty" mapstructure:"corpus_path"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// SearchConfig holds query settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `yaml:"max_limit" mapstructure:"max_limit"`
}

// Load reads the config file at path, applies SEMSEARCH_* environment overrides and
// defaults, and expands paths. A missing file is not an error: defaults and the
// environment still apply. When path is empty, DefaultFileName in the working
// directory is used if it exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		if _, err := os.Stat(DefaultFileName); err == nil {
			path = DefaultFileName
		}
	}
	configDir := "."
	if path != "" {
		configDir = filepath.Dir(path)
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, semerr.Wrap(err, semerr.CodeConfigLoadReadFailure, "failed to read config", semerr.FieldPath(path))
			}
		} else if !os.IsNotExist(err) {
			return nil, semerr.Wrap(err, semerr.CodeConfigLoadReadFailure, "failed to stat config", semerr.FieldPath(path))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, semerr.Wrap(err, semerr.CodeConfigValidateInvalidValue, "failed to parse config", semerr.FieldPath(path))
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	ApplyDefaults(&cfg)

	cfg.Storage.SnapshotPath = expandPath(cfg.Storage.SnapshotPath, configDir)
	if cfg.Ingest.CorpusPath != "" {
		cfg.Ingest.CorpusPath = expandPath(cfg.Ingest.CorpusPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(key string, value any, msg string) {
		errs = append(errs, semerr.New(semerr.CodeConfigValidateInvalidValue, "config: "+key+" "+msg,
			semerr.Field("key", key), semerr.Field("value", value)))
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		invalid("server.port", c.Server.Port, "must be between 1 and 65535")
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "json", "sqlite":
	default:
		invalid("storage.backend", c.Storage.Backend, "must be one of [json, sqlite]")
	}
	if c.Storage.SnapshotPath == "" {
		invalid("storage.snapshot_path", c.Storage.SnapshotPath, "must not be empty")
	}
	switch c.Embedding.Provider {
	case "openai", "mock":
	default:
		invalid("embedding.provider", c.Embedding.Provider, "must be one of [openai, mock]")
	}
	if c.Embedding.Model == "" {
		invalid("embedding.model", c.Embedding.Model, "must not be empty")
	}
	if c.Embedding.Dimensions <= 0 {
		invalid("embedding.dimensions", c.Embedding.Dimensions, "must be positive")
	}
	if c.Embedding.MaxBatchSize <= 0 {
		invalid("embedding.max_batch_size", c.Embedding.MaxBatchSize, "must be positive")
	}
	if c.Embedding.MaxRetries < 0 {
		invalid("embedding.max_retries", c.Embedding.MaxRetries, "must not be negative")
	}
	if c.Embedding.MaxDelay < c.Embedding.InitialDelay {
		invalid("embedding.max_delay", c.Embedding.MaxDelay, "must not be shorter than embedding.initial_delay")
	}
	if c.Embedding.RequestsPerSecond < 0 {
		invalid("embedding.requests_per_second", c.Embedding.RequestsPerSecond, "must not be negative")
	}
	if c.Ingest.BatchSize < 0 || c.Ingest.BatchSize > c.Embedding.MaxBatchSize {
		invalid("ingest.batch_size", c.Ingest.BatchSize, "must be between 0 and embedding.max_batch_size")
	}
	if c.Ingest.Concurrency < 1 {
		invalid("ingest.concurrency", c.Ingest.Concurrency, "must be at least 1")
	}
	if c.Search.DefaultLimit < 1 || c.Search.DefaultLimit > c.Search.MaxLimit {
		invalid("search.default_limit", c.Search.DefaultLimit, "must be between 1 and search.max_limit")
	}
	if len(errs) == 0 {
		return nil
	}
	return semerr.Wrap(errors.Join(errs...), semerr.CodeConfigValidateInvalidValue, "invalid configuration")
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
