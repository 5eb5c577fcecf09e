// Package embedding maps text to fixed-dimension vectors. Providers range from a
// local lexical hasher to ONNX and remote HTTP models.
package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the embedding model could not be initialized.
// It is sticky for the life of a Lazy embedder.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedder produces vector embeddings for text. Implementations are
// deterministic for a fixed model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
