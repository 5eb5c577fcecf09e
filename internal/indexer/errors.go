package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/docrag/internal/embedding"
	"github.com/hyperjump/docrag/internal/extract"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/vector"
)

var (
	// ErrEmptyDocument reports a file with no extractable text.
	ErrEmptyDocument = errors.New("empty document")
	// ErrCatalogWrite reports a catalog failure after the corpus accepted the chunks.
	ErrCatalogWrite = errors.New("catalog write failed")
)

// Error codes carried in ErrorResult.Error.
const (
	CodeUnsupportedFormat    = "unsupported format"
	CodeEmptyDocument        = "empty document"
	CodeEmbeddingUnavailable = "embedding unavailable"
	CodePersistenceFailed    = "persistence failed"
	CodeCatalogWrite         = "catalog write failed"
	CodeTimeout              = "timeout"
	CodeIngestFailed         = "ingestion failed"
)

// Explain converts an ingestion or query error into the structured result shown
// to callers, with a corrective suggestion. It returns nil for a nil error.
func Explain(err error) *models.ErrorResult {
	if err == nil {
		return nil
	}
	var unsupported *extract.UnsupportedFormatError
	switch {
	case errors.As(err, &unsupported) && unsupported.Err != nil:
		return &models.ErrorResult{
			Error: CodeUnsupportedFormat,
			Message: fmt.Sprintf("The %s file could not be decoded (%v). Check that it is not damaged or password protected.",
				unsupported.Ext, unsupported.Err),
		}
	case errors.Is(err, extract.ErrUnsupportedFormat):
		ext := "this"
		if unsupported != nil && unsupported.Ext != "" {
			ext = unsupported.Ext
		}
		return &models.ErrorResult{
			Error: CodeUnsupportedFormat,
			Message: fmt.Sprintf("Files of type %s cannot be ingested. Supported types: %s.",
				ext, strings.Join(extract.SupportedExtensions(), ", ")),
		}
	case errors.Is(err, ErrEmptyDocument):
		return &models.ErrorResult{
			Error:   CodeEmptyDocument,
			Message: "No text content found in document. Upload a file that contains text, not only images.",
		}
	case errors.Is(err, embedding.ErrUnavailable):
		return &models.ErrorResult{
			Error:   CodeEmbeddingUnavailable,
			Message: "The embedding model could not be loaded. Fix the embedding configuration and restart the service.",
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &models.ErrorResult{
			Error:   CodeTimeout,
			Message: "Embedding took too long. Try again, or raise embedding.timeout_seconds.",
		}
	case errors.Is(err, vector.ErrPersistenceFailed):
		return &models.ErrorResult{
			Error:   CodePersistenceFailed,
			Message: "The document is searchable now but was not saved to disk. Free disk space or fix permissions; the next ingestion saves it.",
		}
	case errors.Is(err, ErrCatalogWrite):
		return &models.ErrorResult{
			Error:   CodeCatalogWrite,
			Message: "The document is searchable but missing from the document list. Re-upload it to record it.",
		}
	default:
		return &models.ErrorResult{Error: CodeIngestFailed, Message: err.Error()}
	}
}
