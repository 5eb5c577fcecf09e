package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/docrag/internal/embedding"
	"github.com/hyperjump/docrag/internal/extract"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/storage"
)

// Progress receives bulk ingestion progress. Implementations must be safe for
// concurrent Increment calls.
type Progress interface {
	Start(total int)
	Increment()
	Finish()
}

// DirectoryOptions controls IngestDirectory.
type DirectoryOptions struct {
	// Include and Exclude are doublestar patterns matched against slash-separated
	// paths relative to the directory. With no Include patterns every file with a
	// supported extension is a candidate.
	Include []string
	Exclude []string
	// SkipExisting skips files that already have an active catalog entry.
	SkipExisting bool
	// Concurrency bounds parallel ingestions; values below 1 mean 1.
	Concurrency int
	Metadata    map[string]string
	UploadedBy  *int64
	Progress    Progress
}

// FileError records one file that failed during bulk ingestion.
type FileError struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

// DirectoryResult summarizes a bulk ingestion.
type DirectoryResult struct {
	Ingested []*models.IngestResult
	Skipped  []string
	Failed   []FileError
}

// IngestDirectory ingests every matching file under dir. Per-file failures are
// collected in the result; only an unusable directory, an unavailable embedder,
// or a cancelled context abort the run.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, opts DirectoryOptions) (*DirectoryResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	files, err := collectFiles(absDir, opts.Include, opts.Exclude)
	if err != nil {
		return nil, err
	}

	res := &DirectoryResult{}
	if opts.SkipExisting {
		pending := files[:0]
		for _, f := range files {
			if _, err := idx.catalog.FindActiveByPath(ctx, f); err == nil {
				res.Skipped = append(res.Skipped, f)
				continue
			} else if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("catalog lookup: %w", err)
			}
			pending = append(pending, f)
		}
		files = pending
	}

	if opts.Progress != nil {
		opts.Progress.Start(len(files))
		defer opts.Progress.Finish()
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := idx.Ingest(gctx, f, opts.Metadata, opts.UploadedBy)
			if opts.Progress != nil {
				opts.Progress.Increment()
			}
			mu.Lock()
			defer mu.Unlock()
			if r != nil {
				res.Ingested = append(res.Ingested, r)
			}
			if err != nil {
				idx.logger.Warn("Failed to ingest file", zap.String("path", f), zap.Error(err))
				res.Failed = append(res.Failed, FileError{Path: f, Err: err})
				if errors.Is(err, embedding.ErrUnavailable) {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

// collectFiles walks dir and returns regular files that pass the patterns, in
// lexical order.
func collectFiles(dir string, include, exclude []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !Matches(rel, include, exclude) {
			return nil
		}
		// Follow symlinks, keep only regular files.
		if finfo, err := os.Stat(path); err != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

// Matches reports whether the slash-separated relative path passes the include
// and exclude patterns. With no include patterns the extension must be one the
// extractor supports. Invalid patterns never match.
func Matches(rel string, include, exclude []string) bool {
	for _, p := range exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return false
		}
	}
	if len(include) == 0 {
		_, ok := extract.KindOf(filepath.Ext(rel))
		return ok
	}
	for _, p := range include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
