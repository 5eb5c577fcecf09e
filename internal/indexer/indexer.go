// Package indexer implements ingestion: extract, chunk, embed, append to the
// corpus, and record the file in the catalog.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docrag/internal/chunker"
	"github.com/hyperjump/docrag/internal/embedding"
	"github.com/hyperjump/docrag/internal/extract"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/storage"
	"github.com/hyperjump/docrag/internal/vector"
)

// MetaSource overrides the source name recorded for a file. Uploads use it to
// keep the client's filename when the stored copy has a generated prefix.
const MetaSource = "source"

const clearedMessage = "All documents removed from RAG system"

// Indexer ingests files into a corpus and a catalog.
type Indexer struct {
	corpus       *vector.Corpus
	catalog      storage.Catalog
	embedder     embedding.Embedder
	extractor    *extract.Extractor
	splitter     *chunker.Splitter
	embedTimeout time.Duration
	logger       *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithEmbedTimeout bounds each batched embed call. Zero means no extra bound.
func WithEmbedTimeout(d time.Duration) Option {
	return func(idx *Indexer) { idx.embedTimeout = d }
}

// WithSplitter replaces the default 1000/200 splitter.
func WithSplitter(s *chunker.Splitter) Option {
	return func(idx *Indexer) { idx.splitter = s }
}

// New returns an Indexer over the given corpus, catalog and embedder.
func New(corpus *vector.Corpus, catalog storage.Catalog, embedder embedding.Embedder, opts ...Option) *Indexer {
	idx := &Indexer{
		corpus:    corpus,
		catalog:   catalog,
		embedder:  embedder,
		extractor: extract.NewExtractor(),
		splitter:  chunker.NewSplitter(chunker.DefaultChunkSize, chunker.DefaultOverlap),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest extracts, chunks and embeds the file at path, appends the chunks to the
// corpus, persists it, and records a catalog entry. Extraction, empty-text and
// embedding failures leave the corpus untouched. When the corpus accepted the
// chunks but the snapshot save or the catalog write failed, Ingest returns the
// result together with an error wrapping vector.ErrPersistenceFailed and/or
// ErrCatalogWrite.
func (idx *Indexer) Ingest(ctx context.Context, path string, metadata map[string]string, uploadedBy *int64) (*models.IngestResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	name := filepath.Base(absPath)
	if s := strings.TrimSpace(metadata[MetaSource]); s != "" {
		name = s
	}
	log := idx.logger.With(zap.String("file", name))
	log.Debug("Ingesting file", zap.String("path", absPath))

	text, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	texts := idx.splitter.Split(text)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyDocument)
	}

	extra := extraMetadata(metadata)
	chunks := make([]models.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.Chunk{
			Text:          t,
			SourceName:    name,
			SourcePath:    absPath,
			ChunkIndex:    i,
			ExtraMetadata: extra,
		}
	}

	vectors, err := idx.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", name, err)
	}

	total, appendErr := idx.corpus.Append(chunks, vectors)
	if appendErr != nil && !errors.Is(appendErr, vector.ErrPersistenceFailed) {
		return nil, fmt.Errorf("append %s: %w", name, appendErr)
	}
	result := &models.IngestResult{
		Status:         "success",
		File:           name,
		ChunksCreated:  len(chunks),
		TotalDocuments: total,
	}
	if appendErr != nil {
		log.Warn("Chunks kept in memory only", zap.Error(appendErr))
	}

	var size int64
	if info, err := os.Stat(absPath); err == nil {
		size = info.Size()
	}
	entry := &models.CatalogEntry{
		Filename:    name,
		FilePath:    absPath,
		FileSize:    size,
		FileType:    strings.ToLower(filepath.Ext(absPath)),
		ChunksCount: len(chunks),
		UploadedBy:  uploadedBy,
	}
	var catalogErr error
	if err := idx.catalog.Create(ctx, entry); err != nil {
		log.Error("Failed to record catalog entry", zap.Error(err))
		catalogErr = fmt.Errorf("%w: %v", ErrCatalogWrite, err)
	}

	if err := errors.Join(appendErr, catalogErr); err != nil {
		return result, err
	}
	log.Info("Ingested file", zap.Int("chunks", len(chunks)), zap.Int("total", total))
	return result, nil
}

func (idx *Indexer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if idx.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, idx.embedTimeout)
		defer cancel()
	}
	vectors, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}
	return vectors, nil
}

// Clear empties the corpus, deletes its snapshot, and tombstones every active
// catalog entry. Uploaded files stay on disk. Calling it twice succeeds twice.
func (idx *Indexer) Clear(ctx context.Context) (*models.ClearResult, error) {
	if err := idx.corpus.Clear(); err != nil {
		return nil, err
	}
	n, err := idx.catalog.DeactivateAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogWrite, err)
	}
	idx.logger.Info("Cleared corpus", zap.Int64("deactivated", n))
	return &models.ClearResult{Status: "cleared", Message: clearedMessage}, nil
}

func extraMetadata(metadata map[string]string) map[string]string {
	var extra map[string]string
	for k, v := range metadata {
		if k == MetaSource {
			continue
		}
		if extra == nil {
			extra = make(map[string]string, len(metadata))
		}
		extra[k] = v
	}
	return extra
}
