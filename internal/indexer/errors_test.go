package indexer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/docrag/internal/embedding"
	"github.com/hyperjump/docrag/internal/extract"
	"github.com/hyperjump/docrag/internal/vector"
)

func TestExplain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unsupported", fmt.Errorf("extract: %w", &extract.UnsupportedFormatError{Ext: ".exe"}), CodeUnsupportedFormat},
		{"decoder failure", &extract.UnsupportedFormatError{Ext: ".pdf", Err: errors.New("bad xref")}, CodeUnsupportedFormat},
		{"empty", fmt.Errorf("a.txt: %w", ErrEmptyDocument), CodeEmptyDocument},
		{"embedding", fmt.Errorf("%w: no model", embedding.ErrUnavailable), CodeEmbeddingUnavailable},
		{"timeout", fmt.Errorf("embed: %w", context.DeadlineExceeded), CodeTimeout},
		{"persistence", fmt.Errorf("%w: disk full", vector.ErrPersistenceFailed), CodePersistenceFailed},
		{"catalog", fmt.Errorf("%w: locked", ErrCatalogWrite), CodeCatalogWrite},
		{"joined", errors.Join(fmt.Errorf("%w: x", vector.ErrPersistenceFailed), ErrCatalogWrite), CodePersistenceFailed},
		{"other", errors.New("boom"), CodeIngestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Explain(tt.err)
			if got == nil || got.Error != tt.code {
				t.Fatalf("Explain = %+v, want code %q", got, tt.code)
			}
			if got.Message == "" {
				t.Error("message should carry a suggestion")
			}
		})
	}
	if Explain(nil) != nil {
		t.Error("Explain(nil) should be nil")
	}
}
