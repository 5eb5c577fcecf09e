// Package main is the docrag CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/docrag/internal/chunker"
	"github.com/hyperjump/docrag/internal/config"
	"github.com/hyperjump/docrag/internal/embedding"
	"github.com/hyperjump/docrag/internal/indexer"
	"github.com/hyperjump/docrag/internal/search"
	"github.com/hyperjump/docrag/internal/storage"
	"github.com/hyperjump/docrag/internal/vector"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/docrag/config.yaml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}
	// A missing .env file is normal.
	_ = godotenv.Load()

	rest := args[1:]
	switch args[0] {
	case "init":
		return runInit(rest, stdout, stderr)
	case "server":
		return runServer(rest, stdout, stderr)
	case "ingest":
		return runIngest(rest, stdout, stderr)
	case "query":
		return runQuery(rest, stdout, stderr)
	case "search":
		return runSearch(rest, stdout, stderr)
	case "list":
		return runList(rest, stdout, stderr)
	case "clear":
		return runClear(rest, stdout, stderr)
	case "status":
		return runStatus(rest, stdout, stderr)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "docrag version %s\n", version)
		return 0
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}
}

// loadConfig loads config from path. When path is the default and does not
// exist, config.yaml in the current directory is used instead, so relative
// data paths resolve against the working directory. Returns the config and the
// path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if cwd, err := os.Getwd(); err == nil {
				path = filepath.Join(cwd, "config.yaml")
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// components holds initialized services.
type components struct {
	Catalog  *storage.SQLiteCatalog
	Corpus   *vector.Corpus
	Embedder *embedding.Lazy
	Engine   *search.Engine
	Indexer  *indexer.Indexer
}

func (c *components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}

// initializeComponents opens the catalog and the corpus snapshot and prepares
// the embedder. The embedding model itself loads on first use.
func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	catalog, err := storage.NewSQLiteCatalog(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog: %w", err)
	}
	emb, err := embedding.NewFromConfig(&cfg.Embedding)
	if err != nil {
		_ = catalog.Close()
		return nil, fmt.Errorf("failed to configure embedder: %w", err)
	}

	corpus := vector.NewCorpus(cfg.Storage.SnapshotPath, vector.WithLogger(logger))
	corpus.Load()
	logger.Debug("Corpus loaded",
		zap.String("path", cfg.Storage.SnapshotPath),
		zap.Int("chunks", corpus.Len()),
		zap.String("embedding_provider", cfg.Embedding.Provider))

	timeout := cfg.Embedding.Timeout()
	splitter := chunker.NewSplitter(cfg.Retrieval.ChunkSize, cfg.Retrieval.ChunkOverlap)
	idx := indexer.New(corpus, catalog, emb,
		indexer.WithLogger(logger),
		indexer.WithEmbedTimeout(timeout),
		indexer.WithSplitter(splitter))
	engine := search.NewEngine(corpus, catalog, emb,
		search.WithLogger(logger),
		search.WithEmbedTimeout(timeout),
		search.WithLimits(cfg.Retrieval.DefaultK, cfg.Retrieval.MaxK),
		search.WithMinScore(cfg.Retrieval.MinScore))

	return &components{
		Catalog:  catalog,
		Corpus:   corpus,
		Embedder: emb,
		Engine:   engine,
		Indexer:  idx,
	}, nil
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// parseMetadata turns key=value pairs into a map.
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q (want key=value)", p)
		}
		out[k] = v
	}
	return out, nil
}

// argsReorder moves any flags that appear after the positional arguments to
// the front so that flag.Parse sees them. The flag package stops at the first
// non-flag argument, so "docrag query growth -k 3" would otherwise leave -k
// unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuery joins positional args so multi-word queries work with or without quotes.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `docrag - local document retrieval for RAG

Usage:
  docrag init [--force] [path]      Write a default config file (default: ./config.yaml)
  docrag server [flags]             Start the HTTP server (and drop-folder watcher)
  docrag ingest [flags] <path>      Ingest a file or every supported file in a directory
  docrag query [flags] <text>       Print the most relevant excerpts for a query
  docrag search [flags] <text>      Print ranked chunks with scores
  docrag list [flags]               List ingested documents
  docrag clear [flags]              Remove every document from the corpus
  docrag status [flags]             Show corpus and catalog statistics
  docrag version                    Show version
  docrag help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/docrag/config.yaml, then ./config.yaml)
  --debug            Enable debug logging
  --format string    Output format: text or json (default: text)
  --server string    Server URL; when set, query/search/list/clear/status go through the HTTP API

Ingest Flags:
  --meta key=value       Metadata attached to every chunk (repeatable); "source" overrides the name
  --uploaded-by int      Uploader id recorded in the catalog
  --include pattern      Doublestar include pattern for directories (repeatable)
  --exclude pattern      Doublestar exclude pattern for directories (repeatable)
  --skip-existing        Skip files that are already in the catalog (default: true)
  --concurrency int      Parallel ingestions for directories (default: 4)
  --progress             Show a progress bar (default: when stderr is a terminal)

Query/Search Flags:
  -k int    Number of results (default from config, 5)

Examples:
  docrag ingest report.pdf
  docrag ingest --include "**/*.md" --exclude "drafts/**" ./docs
  docrag query quarterly growth
  docrag search --format json -k 10 "deployment checklist"
  docrag status --server http://localhost:8080`)
}
