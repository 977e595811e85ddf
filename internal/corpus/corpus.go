// Package corpus reads document collections from disk and provides the built-in sample set.
package corpus

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/semsearch/internal/models"
	semerr "github.com/hyperjump/semsearch/pkg/errors"
)

var supportedExtensions = map[string]string{
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
}

// IsSupported reports whether path has a corpus file extension.
func IsSupported(path string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load reads the documents in the corpus file at path. The file holds either a list of
// documents or an object with a "documents" list. Load does not validate ids or text.
func Load(path string) ([]models.Document, error) {
	format, ok := supportedExtensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, semerr.New(semerr.CodeCorpusFormatUnknown, "unsupported corpus file extension",
			semerr.FieldPath(path), semerr.Field("extension", filepath.Ext(path)))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, semerr.Wrap(err, semerr.CodeCorpusReadFailure, "read corpus file", semerr.FieldPath(path))
	}
	docs, err := Parse(data, format)
	if err != nil {
		return nil, semerr.With(err, semerr.FieldPath(path))
	}
	return docs, nil
}

type wrapped struct {
	Documents []models.Document `json:"documents" yaml:"documents"`
}

// Parse decodes corpus data in the given format ("json" or "yaml").
func Parse(data []byte, format string) ([]models.Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.Document{}, nil
	}
	switch format {
	case "json":
		if trimmed[0] == '{' {
			var w wrapped
			if err := json.Unmarshal(trimmed, &w); err != nil {
				return nil, semerr.Wrap(err, semerr.CodeCorpusParseInvalid, "decode JSON corpus")
			}
			return w.Documents, nil
		}
		var docs []models.Document
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, semerr.Wrap(err, semerr.CodeCorpusParseInvalid, "decode JSON corpus")
		}
		return docs, nil
	case "yaml":
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, semerr.Wrap(err, semerr.CodeCorpusParseInvalid, "decode YAML corpus")
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
			var w wrapped
			if err := node.Decode(&w); err != nil {
				return nil, semerr.Wrap(err, semerr.CodeCorpusParseInvalid, "decode YAML corpus")
			}
			return w.Documents, nil
		}
		var docs []models.Document
		if err := node.Decode(&docs); err != nil {
			return nil, semerr.Wrap(err, semerr.CodeCorpusParseInvalid, "decode YAML corpus")
		}
		return docs, nil
	default:
		return nil, semerr.New(semerr.CodeCorpusFormatUnknown, "unsupported corpus format", semerr.Field("format", format))
	}
}

// Sample returns the built-in support knowledge base.
func Sample() []models.Document {
	return []models.Document{
		{
			ID:       1,
			Text:     "We offer a 30-day refund policy on all purchases.",
			Metadata: map[string]string{"type": "policy", "topic": "refunds"},
		},
		{
			ID:       2,
			Text:     "Our support team is available 24/7 via email and live chat.",
			Metadata: map[string]string{"type": "info", "topic": "support"},
		},
		{
			ID:       3,
			Text:     "Shipping usually takes 3-5 business days within the country.",
			Metadata: map[string]string{"type": "info", "topic": "shipping"},
		},
		{
			ID:       4,
			Text:     "You can update your account details from the profile settings page.",
			Metadata: map[string]string{"type": "howto", "topic": "account"},
		},
	}
}
