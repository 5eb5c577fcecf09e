// Package storage holds the upload catalog: one durable record per ingested
// file, soft-deleted through an is_active flag.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/docrag/internal/models"
)

// ErrNotFound is returned when no catalog entry matches.
var ErrNotFound = errors.New("catalog entry not found")

// Catalog records ingested files independently of the vector corpus.
type Catalog interface {
	// Create inserts entry as active and sets its ID and UploadedAt.
	Create(ctx context.Context, entry *models.CatalogEntry) error
	Get(ctx context.Context, id int64) (*models.CatalogEntry, error)
	// ListActive returns active entries, newest first.
	ListActive(ctx context.Context) ([]*models.CatalogEntry, error)
	FindActiveByPath(ctx context.Context, path string) (*models.CatalogEntry, error)
	// DeactivateAll tombstones every active entry and returns how many changed.
	DeactivateAll(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	// ActiveChunks sums chunks_count over active entries.
	ActiveChunks(ctx context.Context) (int64, error)
	Close() error
}
