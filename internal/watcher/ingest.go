package watcher

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/storage"
)

// MetaOrigin is the metadata key recording how a file entered the corpus.
const MetaOrigin = "origin"

// Ingester ingests one file.
type Ingester interface {
	Ingest(ctx context.Context, path string, metadata map[string]string, uploadedBy *int64) (*models.IngestResult, error)
}

// PathLookup finds the active catalog entry for an absolute path.
type PathLookup interface {
	FindActiveByPath(ctx context.Context, path string) (*models.CatalogEntry, error)
}

// IngestHandler returns a Handler that ingests files not yet in the catalog.
// The corpus is append-only, so a file that is already recorded is skipped
// even when it changed.
func IngestHandler(ing Ingester, catalog PathLookup, logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, path string) {
		log := logger.With(zap.String("path", path))
		_, err := catalog.FindActiveByPath(ctx, path)
		switch {
		case err == nil:
			log.Debug("Already ingested, skipping")
			return
		case !errors.Is(err, storage.ErrNotFound):
			log.Error("Catalog lookup failed", zap.Error(err))
			return
		}
		res, err := ing.Ingest(ctx, path, map[string]string{MetaOrigin: "watch"}, nil)
		switch {
		case err != nil && res == nil:
			log.Warn("Ingestion failed", zap.Error(err))
		case err != nil:
			log.Warn("Ingested with warnings", zap.Int("chunks", res.ChunksCreated), zap.Error(err))
		default:
			log.Info("Ingested dropped file", zap.Int("chunks", res.ChunksCreated), zap.Int("total", res.TotalDocuments))
		}
	}
}
