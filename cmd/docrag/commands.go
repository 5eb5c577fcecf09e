package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/docrag/internal/cli"
	"github.com/hyperjump/docrag/internal/config"
	"github.com/hyperjump/docrag/internal/indexer"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/server"
	"github.com/hyperjump/docrag/internal/storage"
	"github.com/hyperjump/docrag/internal/watcher"
	"github.com/hyperjump/docrag/pkg/utils"
)

// commonFlags are shared by every subcommand that touches the corpus.
type commonFlags struct {
	config *string
	debug  *bool
	format *string
	server *string
}

func newFlagSet(name string, stderr io.Writer, withServer bool) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cf := &commonFlags{
		config: fs.String("config", defaultConfigPath, "config file path"),
		debug:  fs.Bool("debug", false, "enable debug logging"),
		format: fs.String("format", "text", "output format: text or json"),
	}
	if withServer {
		cf.server = fs.String("server", "", "server URL (empty = open the data files directly)")
	}
	return fs, cf
}

func (cf *commonFlags) remote() string {
	if cf.server == nil {
		return ""
	}
	return *cf.server
}

// session is a loaded config with its logger and, for direct access, the
// opened components.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	format cli.OutputFormat
	comps  *components
}

func (s *session) Close() {
	if s.comps != nil {
		s.comps.Close()
	}
	_ = s.logger.Sync()
}

// openSession loads config and builds the CLI logger. When open is true it also
// initializes the components.
func openSession(cf *commonFlags, stderr io.Writer, open bool) (*session, error) {
	format, err := cli.ParseFormat(*cf.format)
	if err != nil {
		return nil, err
	}
	cfg, _, err := loadConfig(*cf.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewCLILogger(cfg.Debug || *cf.debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	s := &session{cfg: cfg, logger: logger, format: format}
	if open {
		s.comps, err = initializeComponents(cfg, logger)
		if err != nil {
			_ = logger.Sync()
			return nil, err
		}
	}
	return s, nil
}

// fail prints err to stderr, explained when possible, and returns exit code 1.
func fail(stderr io.Writer, format cli.OutputFormat, err error) int {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		_ = cli.WriteError(stderr, &apiErr.Result, format)
		return 1
	}
	_ = cli.WriteError(stderr, indexer.Explain(err), format)
	return 1
}

func runServer(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()
	logger.Info("Config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("embedding_provider", cfg.Embedding.Provider))

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize components", zap.Error(err))
		return 1
	}
	defer comps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.Watch.Directories) > 0 {
		w := watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(),
			watcher.IngestHandler(comps.Indexer, comps.Catalog, logger),
			watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			logger.Error("Failed to start watcher", zap.Error(err))
			return 1
		}
		defer w.Stop()
		go w.SyncExisting(ctx)
	}

	srv := server.NewServer(comps.Engine, comps.Indexer, cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", zap.Error(err))
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("Shutdown incomplete", zap.Error(err))
	}
	if err := comps.Corpus.Flush(); err != nil {
		logger.Error("Unsaved chunks lost on exit", zap.Error(err))
		return 1
	}
	return 0
}

func runInit(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "overwrite an existing config file")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return 2
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "Usage: docrag init [--force] [path]")
		return 1
	}
	path := "config.yaml"
	if fs.NArg() == 1 {
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(stderr, "Error: %s already exists. Pass --force to overwrite it.\n", path)
		return 1
	}

	var cfg config.Config
	config.ApplyDefaults(&cfg)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := config.Save(path, &cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Wrote default config to %s\n", path)
	return 0
}

func runIngest(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("ingest", stderr, false)
	var meta, include, exclude stringList
	fs.Var(&meta, "meta", "metadata key=value attached to every chunk (repeatable)")
	fs.Var(&include, "include", "doublestar include pattern for directories (repeatable)")
	fs.Var(&exclude, "exclude", "doublestar exclude pattern for directories (repeatable)")
	uploadedBy := fs.Int64("uploaded-by", 0, "uploader id recorded in the catalog (0 = none)")
	skipExisting := fs.Bool("skip-existing", true, "skip files already in the catalog (directories only)")
	concurrency := fs.Int("concurrency", 4, "parallel ingestions for directories")
	progress := fs.Bool("progress", cli.DefaultProgressEnabled(), "show a progress bar")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: docrag ingest [flags] <file-or-directory>")
		return 1
	}
	path := fs.Arg(0)

	metadata, err := parseMetadata(meta)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	var uploader *int64
	if *uploadedBy != 0 {
		uploader = uploadedBy
	}
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(stderr, "Cannot read %s: %v\n", path, err)
		return 1
	}

	s, err := openSession(cf, stderr, true)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := cli.StartSpinner(*progress && !s.comps.Embedder.Loaded(), "loading embedding model")
	err = s.comps.Embedder.Ready()
	done()
	if err != nil {
		return fail(stderr, s.format, err)
	}

	if !info.IsDir() {
		res, err := s.comps.Indexer.Ingest(ctx, path, metadata, uploader)
		if res == nil {
			return fail(stderr, s.format, err)
		}
		_ = cli.WriteIngestResult(stdout, res, err, s.format)
		return 0
	}

	opts := indexer.DirectoryOptions{
		Include:      append(append([]string(nil), s.cfg.Ingest.Include...), include...),
		Exclude:      append(append([]string(nil), s.cfg.Ingest.Exclude...), exclude...),
		SkipExisting: *skipExisting,
		Concurrency:  *concurrency,
		Metadata:     metadata,
		UploadedBy:   uploader,
		Progress:     cli.NewIngestProgress(*progress),
	}
	start := time.Now()
	res, err := s.comps.Indexer.IngestDirectory(ctx, path, opts)
	if res != nil {
		_ = cli.WriteDirectoryResult(stdout, res, time.Since(start), s.format)
	}
	if err != nil {
		return fail(stderr, s.format, err)
	}
	if len(res.Failed) > 0 {
		return 1
	}
	return 0
}

func runQuery(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("query", stderr, true)
	k := fs.Int("k", 0, "number of results (0 = configured default)")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return 2
	}
	text := buildQuery(fs.Args())
	if text == "" {
		fmt.Fprintln(stderr, "Usage: docrag query [flags] <text>")
		return 1
	}
	s, err := openSession(cf, stderr, cf.remote() == "")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()
	ctx := context.Background()

	var out string
	if url := cf.remote(); url != "" {
		resp, err := newAPIClient(url).query(ctx, models.QueryRequest{Query: text, K: *k})
		if err != nil {
			return fail(stderr, s.format, err)
		}
		out = resp.Context
	} else {
		out, err = s.comps.Engine.Query(ctx, text, *k)
		if err != nil {
			return fail(stderr, s.format, err)
		}
	}
	_ = cli.WriteQuery(stdout, text, out, s.format)
	return 0
}

func runSearch(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("search", stderr, true)
	k := fs.Int("k", 0, "number of results (0 = configured default)")
	if err := fs.Parse(argsReorder(args)); err != nil {
		return 2
	}
	text := buildQuery(fs.Args())
	if text == "" {
		fmt.Fprintln(stderr, "Usage: docrag search [flags] <text>")
		return 1
	}
	s, err := openSession(cf, stderr, cf.remote() == "")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()
	ctx := context.Background()

	req := models.QueryRequest{Query: text, K: *k}
	var resp *models.SearchResponse
	if url := cf.remote(); url != "" {
		resp, err = newAPIClient(url).search(ctx, req)
	} else {
		resp, err = s.comps.Engine.SearchResponse(ctx, &req)
	}
	if err != nil {
		return fail(stderr, s.format, err)
	}
	_ = cli.WriteSearchResults(stdout, resp, s.format)
	return 0
}

func runList(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("list", stderr, true)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, err := openSession(cf, stderr, cf.remote() == "")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()
	ctx := context.Background()

	var docs []models.ListedDocument
	if url := cf.remote(); url != "" {
		docs, err = newAPIClient(url).list(ctx)
	} else {
		docs, err = s.comps.Engine.ListIngested(ctx)
	}
	if err != nil {
		return fail(stderr, s.format, err)
	}
	_ = cli.WriteDocuments(stdout, docs, s.format)
	return 0
}

func runClear(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("clear", stderr, true)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, err := openSession(cf, stderr, cf.remote() == "")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()
	ctx := context.Background()

	var res *models.ClearResult
	if url := cf.remote(); url != "" {
		res, err = newAPIClient(url).clear(ctx)
	} else {
		res, err = s.comps.Indexer.Clear(ctx)
	}
	if err != nil {
		return fail(stderr, s.format, err)
	}
	_ = cli.WriteClearResult(stdout, res, s.format)
	return 0
}

func runStatus(args []string, stdout, stderr io.Writer) int {
	fs, cf := newFlagSet("status", stderr, true)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	s, err := openSession(cf, stderr, cf.remote() == "")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer s.Close()
	ctx := context.Background()

	var st *models.Status
	if url := cf.remote(); url != "" {
		st, err = newAPIClient(url).status(ctx)
	} else {
		st, err = s.comps.Engine.Status(ctx)
		if err == nil {
			usage, uerr := storage.MeasureDiskUsage(s.cfg.Storage.DatabasePath, s.cfg.Storage.SnapshotPath, s.cfg.Storage.UploadDir)
			if uerr == nil {
				st.DiskBytes = usage.Total()
			}
		}
	}
	if err != nil {
		return fail(stderr, s.format, err)
	}
	_ = cli.WriteStatus(stdout, st, s.format)
	return 0
}
