// Package errors provides coded, structured errors shared by every semsearch layer.
// Codes follow the "area.operation.reason" form; the trailing reason drives
// classification helpers such as IsNotFound and HTTPStatus.
package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeIngestCorpusInvalid     Code = "ingest.corpus.invalid"
	CodeIngestCorpusDuplicateID Code = "ingest.corpus.duplicate_id"
	CodeIngestBatchFailure      Code = "ingest.batch.failure"
	CodeIngestRunAborted        Code = "ingest.run.aborted"

	CodeSearchQueryInvalid Code = "search.query.invalid"
	CodeSearchQueryAborted Code = "search.query.aborted"

	CodeEmbeddingProviderTransient   Code = "embedding.provider.transient"
	CodeEmbeddingProviderFailure     Code = "embedding.provider.failure"
	CodeEmbeddingProviderUnsupported Code = "embedding.provider.unsupported"
	CodeEmbeddingBatchSizeMismatch   Code = "embedding.batch.size_mismatch"
	CodeEmbeddingBatchTooLarge       Code = "embedding.batch.invalid"
	CodeEmbeddingDimensionMismatch   Code = "embedding.dimension.mismatch"

	CodeVectorDimensionInvalid Code = "vector.dimension.invalid"
	CodeVectorNormDegenerate   Code = "vector.norm.degenerate"

	CodeStoreSnapshotNotFound     Code = "store.snapshot.not_found"
	CodeStoreSnapshotCorrupt      Code = "store.snapshot.corrupt"
	CodeStoreSnapshotWriteFailure Code = "store.snapshot.write_failure"
	CodeStoreBackendUnsupported   Code = "store.backend.unsupported"
	CodeStoreDatabaseFailure      Code = "store.database.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read_failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"
	CodeConfigSaveWriteFailure     Code = "config.save.write_failure"

	CodeCorpusReadFailure   Code = "corpus.read.failure"
	CodeCorpusParseInvalid  Code = "corpus.parse.invalid_format"
	CodeCorpusFormatUnknown Code = "corpus.format.invalid"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldDocumentID(id int64) Attr {
	return Field("document_id", id)
}

func FieldBatch(index int) Attr {
	return Field("batch", index)
}

func FieldProvider(name string) Attr {
	return Field("provider", name)
}

func FieldPath(path string) Attr {
	return Field("path", path)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

// Wrap annotates err with a code and message. When err already carries a code,
// CodeOf keeps reporting the innermost one.
func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format" || r == "duplicate_id"
}

func IsAborted(err error) bool {
	return reason(CodeOf(err)) == "aborted"
}

// IsProviderError reports whether err originated at the embedding provider boundary.
func IsProviderError(err error) bool {
	code := string(CodeOf(err))
	return strings.HasPrefix(code, "embedding.provider.")
}

// IsTransient reports whether the failure may succeed when retried.
func IsTransient(err error) bool {
	return reason(CodeOf(err)) == "transient"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsAborted(err):
		return http.StatusRequestTimeout
	case strings.HasPrefix(string(CodeOf(err)), "embedding."):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
