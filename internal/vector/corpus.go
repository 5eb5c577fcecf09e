// Package vector holds the chunk corpus: parallel chunk and embedding sequences
// persisted as one atomically replaced snapshot, plus cosine top-k search.
package vector

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/pkg/utils"
)

var (
	// ErrPersistenceFailed reports a snapshot write failure. The in-memory
	// corpus still holds the data; the next successful save makes it durable.
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrCorruptSnapshot reports an unreadable snapshot. Load degrades to an
	// empty corpus instead of returning it.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrDimensionMismatch reports vectors whose length differs from the corpus.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

type fileStamp struct {
	modTime time.Time
	size    int64
	exists  bool
}

func statStamp(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{modTime: info.ModTime(), size: info.Size(), exists: true}
}

// Corpus is the process-wide chunk store. A single RWMutex guards every
// read-modify-write section: append+save is one critical section, load is
// another. Embedding never happens under the lock.
type Corpus struct {
	path   string
	logger *zap.Logger

	mu      sync.RWMutex
	dims    int
	chunks  []models.Chunk
	vectors [][]float32
	norms   []float64
	stamp   fileStamp
	dirty   bool
}

// Option configures a Corpus.
type Option func(*Corpus)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Corpus) { c.logger = l }
}

// NewCorpus returns an empty corpus persisted at path. An empty path keeps the
// corpus in memory only. Call Load to read an existing snapshot.
func NewCorpus(path string, opts ...Option) *Corpus {
	c := &Corpus{path: path, logger: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Path returns the snapshot location.
func (c *Corpus) Path() string { return c.path }

// Load replaces the in-memory state with the persisted snapshot. A missing
// snapshot yields an empty corpus; a corrupt or partial one is logged and also
// yields an empty corpus. If a previous save failed, Load first retries it and
// keeps the in-memory state when that fails again.
func (c *Corpus) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		if err := c.saveLocked(); err != nil {
			c.logger.Warn("Keeping unsaved corpus in memory", zap.Error(err))
		}
		return
	}
	c.loadLocked()
}

// Refresh reloads only when the snapshot changed on disk since this corpus last
// read or wrote it.
func (c *Corpus) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshLocked()
}

func (c *Corpus) refreshLocked() {
	if c.path == "" || c.dirty {
		return
	}
	if statStamp(c.path) != c.stamp {
		c.loadLocked()
	}
}

func (c *Corpus) loadLocked() {
	if c.path == "" {
		return
	}
	stamp := statStamp(c.path)
	dims, chunks, vectors, err := readSnapshot(c.path)
	if err != nil {
		c.logger.Warn("Snapshot unreadable, starting with empty corpus",
			zap.String("path", c.path), zap.Error(err))
		dims, chunks, vectors = 0, nil, nil
	}
	c.dims = dims
	c.chunks = chunks
	c.vectors = vectors
	c.norms = make([]float64, len(vectors))
	for i, v := range vectors {
		c.norms[i] = utils.Norm(v)
	}
	c.stamp = stamp
}

// Append adds chunks with their vectors and persists the whole corpus, all
// under the lock. It returns the new corpus size. When the save fails the
// chunks stay in memory and the error wraps ErrPersistenceFailed.
func (c *Corpus) Append(chunks []models.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("append %d chunks with %d vectors", len(chunks), len(vectors))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshLocked()

	dims := c.dims
	if len(c.vectors) == 0 && len(vectors) > 0 {
		dims = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dims {
			return len(c.chunks), fmt.Errorf("%w: vector %d has %d, corpus has %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}
	if len(chunks) == 0 {
		return len(c.chunks), nil
	}

	c.dims = dims
	for i := range chunks {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		c.chunks = append(c.chunks, cloneChunk(chunks[i]))
		c.vectors = append(c.vectors, vec)
		c.norms = append(c.norms, utils.Norm(vec))
	}
	c.dirty = true
	if err := c.saveLocked(); err != nil {
		return len(c.chunks), err
	}
	return len(c.chunks), nil
}

// Flush retries the snapshot write left pending by a failed save. It does
// nothing when the snapshot is current.
func (c *Corpus) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	return c.saveLocked()
}

func (c *Corpus) saveLocked() error {
	if c.path == "" {
		c.dirty = false
		return nil
	}
	data, err := encodeSnapshot(c.dims, c.chunks, c.vectors)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := writeFileAtomic(c.path, data); err != nil {
		c.logger.Error("Failed to save corpus snapshot", zap.String("path", c.path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	c.dirty = false
	c.stamp = statStamp(c.path)
	return nil
}

// Clear empties the corpus and deletes the snapshot. Clearing an empty corpus
// succeeds.
func (c *Corpus) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dims = 0
	c.chunks = nil
	c.vectors = nil
	c.norms = nil
	c.dirty = false
	if c.path == "" {
		return nil
	}
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove snapshot: %v", ErrPersistenceFailed, err)
	}
	c.stamp = fileStamp{}
	return nil
}

// Len returns the number of chunks.
func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// Dimensions returns the embedding length, or 0 for an empty corpus.
func (c *Corpus) Dimensions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dims
}

// Snapshot returns copies of the chunk and vector sequences.
func (c *Corpus) Snapshot() ([]models.Chunk, [][]float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chunks := make([]models.Chunk, len(c.chunks))
	vectors := make([][]float32, len(c.vectors))
	for i := range c.chunks {
		chunks[i] = cloneChunk(c.chunks[i])
		vectors[i] = append([]float32(nil), c.vectors[i]...)
	}
	return chunks, vectors
}

// Sources returns the distinct source names in insertion order.
func (c *Corpus) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for i := range c.chunks {
		name := c.chunks[i].SourceName
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func cloneChunk(ch models.Chunk) models.Chunk {
	if ch.ExtraMetadata != nil {
		meta := make(map[string]string, len(ch.ExtraMetadata))
		for k, v := range ch.ExtraMetadata {
			meta[k] = v
		}
		ch.ExtraMetadata = meta
	}
	return ch
}
