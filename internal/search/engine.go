// Package search implements the query side: reload the corpus, embed the query
// outside the corpus lock, rank by cosine similarity, and format excerpts.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docrag/internal/embedding"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/storage"
	"github.com/hyperjump/docrag/internal/vector"
)

const (
	DefaultK = 5
	MaxK     = 50

	noDocumentsMessage = "No documents have been uploaded yet. Please upload documents first using the upload feature."
)

// Engine answers queries against a corpus.
type Engine struct {
	corpus       *vector.Corpus
	catalog      storage.Catalog
	embedder     embedding.Embedder
	defaultK     int
	maxK         int
	minScore     float64
	embedTimeout time.Duration
	logger       *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithEmbedTimeout bounds the query embed call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(e *Engine) { e.embedTimeout = d }
}

// WithLimits sets the k used when callers pass none and the largest k accepted.
func WithLimits(defaultK, maxK int) Option {
	return func(e *Engine) {
		if defaultK > 0 {
			e.defaultK = defaultK
		}
		if maxK > 0 {
			e.maxK = maxK
		}
	}
}

// WithMinScore sets the similarity a result must exceed.
func WithMinScore(s float64) Option {
	return func(e *Engine) { e.minScore = s }
}

// NewEngine returns a query engine.
func NewEngine(corpus *vector.Corpus, catalog storage.Catalog, embedder embedding.Embedder, opts ...Option) *Engine {
	e := &Engine{
		corpus:   corpus,
		catalog:  catalog,
		embedder: embedder,
		defaultK: DefaultK,
		maxK:     MaxK,
		minScore: vector.DefaultMinScore,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query returns the top results as labeled excerpts. When nothing matches it
// returns a guidance message instead, which is not an error.
func (e *Engine) Query(ctx context.Context, text string, k int) (string, error) {
	results, err := e.Search(ctx, text, k)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return e.noResultsMessage(ctx)
	}
	return FormatResults(results), nil
}

// Search reloads the corpus and returns up to k ranked chunks. An empty corpus
// returns no results without calling the embedder.
func (e *Engine) Search(ctx context.Context, text string, k int) ([]*models.QueryResult, error) {
	req := models.QueryRequest{Query: text, K: k}
	if err := req.Normalize(e.defaultK, e.maxK); err != nil {
		return nil, err
	}

	e.corpus.Load()
	size := e.corpus.Len()
	if size == 0 {
		e.logger.Debug("Query on empty corpus", zap.String("query", req.Query))
		return nil, nil
	}

	vec, err := e.embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	ranked := e.corpus.Search(vec, req.K, e.minScore)
	results := make([]*models.QueryResult, len(ranked))
	for i := range ranked {
		results[i] = &ranked[i]
	}
	e.logger.Debug("Query",
		zap.String("query", req.Query),
		zap.Int("corpus_chunks", size),
		zap.Int("results", len(results)))
	return results, nil
}

// SearchResponse wraps Search with timing for API callers.
func (e *Engine) SearchResponse(ctx context.Context, req *models.QueryRequest) (*models.SearchResponse, error) {
	start := time.Now()
	results, err := e.Search(ctx, req.Query, req.K)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []*models.QueryResult{}
	}
	return &models.SearchResponse{
		Query:     strings.TrimSpace(req.Query),
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(start).Milliseconds(),
	}, nil
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	if e.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.embedTimeout)
		defer cancel()
	}
	return e.embedder.Embed(ctx, text)
}

func (e *Engine) noResultsMessage(ctx context.Context) (string, error) {
	entries, err := e.catalog.ListActive(ctx)
	if err != nil {
		return "", fmt.Errorf("list catalog: %w", err)
	}
	if len(entries) == 0 {
		return noDocumentsMessage, nil
	}
	names := make([]string, len(entries))
	for i, entry := range entries {
		names[i] = entry.Filename
	}
	return fmt.Sprintf("No relevant content found for your query. Available documents: %s. Try a different search term.",
		strings.Join(names, ", ")), nil
}

// FormatResults renders results in rank order as "[Source: name]" blocks
// separated by "---" lines.
func FormatResults(results []*models.QueryResult) string {
	var b strings.Builder
	for _, r := range results {
		source := "Unknown"
		content := ""
		if r.Chunk != nil {
			content = r.Chunk.Text
			if r.Chunk.SourceName != "" {
				source = r.Chunk.SourceName
			}
		}
		fmt.Fprintf(&b, "[Source: %s]\n%s\n\n---\n\n", source, content)
	}
	return b.String()
}

// ListIngested returns the active catalog entries, each carrying the current
// corpus size. The corpus is reread only if another process changed it.
func (e *Engine) ListIngested(ctx context.Context) ([]models.ListedDocument, error) {
	e.corpus.Refresh()
	entries, err := e.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	total := e.corpus.Len()
	docs := make([]models.ListedDocument, len(entries))
	for i, entry := range entries {
		docs[i] = models.ListedDocument{
			ID:               entry.ID,
			Filename:         entry.Filename,
			FilePath:         entry.FilePath,
			FileSize:         entry.FileSize,
			FileType:         entry.FileType,
			Chunks:           entry.ChunksCount,
			UploadedAt:       entry.UploadedAt,
			VectorStoreTotal: total,
		}
	}
	return docs, nil
}

// Status reports corpus and catalog sizes.
func (e *Engine) Status(ctx context.Context) (*models.Status, error) {
	e.corpus.Refresh()
	docs, err := e.catalog.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("count catalog: %w", err)
	}
	chunks, err := e.catalog.ActiveChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count catalog chunks: %w", err)
	}
	st := &models.Status{
		CorpusChunks:    e.corpus.Len(),
		Dimensions:      e.corpus.Dimensions(),
		Sources:         e.corpus.Sources(),
		ActiveDocuments: docs,
		CatalogChunks:   chunks,
	}
	st.Drift = int64(st.CorpusChunks) != st.CatalogChunks
	if lazy, ok := e.embedder.(*embedding.Lazy); ok {
		st.EmbeddingReady = lazy.Loaded()
	} else {
		st.EmbeddingReady = e.embedder != nil
	}
	if st.Sources == nil {
		st.Sources = []string{}
	}
	return st, nil
}
