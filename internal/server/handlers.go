package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/docrag/internal/embedding"
	"github.com/hyperjump/docrag/internal/extract"
	"github.com/hyperjump/docrag/internal/indexer"
	"github.com/hyperjump/docrag/internal/models"
	"github.com/hyperjump/docrag/internal/storage"
)

const multipartMemory = 8 << 20

// ingestResponse carries a result that the corpus accepted, plus a warning when
// a durability step failed.
type ingestResponse struct {
	*models.IngestResult
	Warning *models.ErrorResult `json:"warning,omitempty"`
}

type ingestPathRequest struct {
	Path       string            `json:"path"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	UploadedBy *int64            `json:"uploaded_by,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.config.Server.MaxUploadMB)<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required", "Send the document in a multipart field named \"file\".")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := extract.KindOf(ext); !ok {
		s.respondExplained(w, &extract.UnsupportedFormatError{Ext: ext})
		return
	}

	metadata := make(map[string]string)
	var uploadedBy *int64
	for key, values := range r.MultipartForm.Value {
		if len(values) == 0 {
			continue
		}
		if key == "uploaded_by" {
			id, err := strconv.ParseInt(values[0], 10, 64)
			if err != nil {
				s.respondError(w, http.StatusBadRequest, "invalid uploaded_by", "uploaded_by must be an integer user id.")
				return
			}
			uploadedBy = &id
			continue
		}
		metadata[key] = values[0]
	}
	metadata[indexer.MetaSource] = name

	stored, err := s.storeUpload(file, name)
	if err != nil {
		s.logger.Error("Failed to store upload", zap.String("file", name), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "upload failed", "Could not save the file on the server. Try again later.")
		return
	}
	s.logger.Debug("Stored upload", zap.String("file", name), zap.String("path", stored),
		zap.String("request_id", middleware.GetReqID(r.Context())))

	res, err := s.indexer.Ingest(r.Context(), stored, metadata, uploadedBy)
	if res == nil && err != nil {
		// Nothing references the stored copy.
		_ = os.Remove(stored)
	}
	s.respondIngest(w, res, err)
}

// storeUpload copies src into the upload directory under a uuid-prefixed name.
func (s *Server) storeUpload(src io.Reader, name string) (string, error) {
	dir := s.config.Storage.UploadDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, uuid.New().String()+"_"+name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return path, nil
}

func (s *Server) handleIngestPath(w http.ResponseWriter, r *http.Request) {
	var req ingestPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.respondError(w, http.StatusBadRequest, "path is required", "Send {\"path\": \"/absolute/file\"}.")
		return
	}
	if !s.withinIngestRoots(req.Path) {
		s.respondError(w, http.StatusForbidden, "path not allowed",
			"Only files under the upload directory or a watched directory can be ingested by path.")
		return
	}
	if _, ok := extract.KindOf(filepath.Ext(req.Path)); ok {
		if _, err := os.Stat(req.Path); err != nil {
			s.respondError(w, http.StatusNotFound, "file not found", fmt.Sprintf("%s does not exist on the server.", req.Path))
			return
		}
	}
	res, err := s.indexer.Ingest(r.Context(), req.Path, req.Metadata, req.UploadedBy)
	s.respondIngest(w, res, err)
}

// withinIngestRoots reports whether path lies under the upload directory or one
// of the watched directories once symlinks are resolved.
func (s *Server) withinIngestRoots(path string) bool {
	target := resolvePath(path)
	roots := append([]string{s.config.Storage.UploadDir}, s.config.Watch.Directories...)
	for _, root := range roots {
		if strings.TrimSpace(root) == "" {
			continue
		}
		rel, err := filepath.Rel(resolvePath(root), target)
		if err != nil || rel == "." {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// resolvePath returns the absolute, symlink-free form of path. A missing leaf
// is resolved through its parent directory.
func resolvePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs))
	}
	return abs
}

func (s *Server) respondIngest(w http.ResponseWriter, res *models.IngestResult, err error) {
	switch {
	case err == nil:
		s.respondJSON(w, http.StatusCreated, ingestResponse{IngestResult: res})
	case res != nil:
		s.logger.Warn("Ingestion degraded", zap.String("file", res.File), zap.Error(err))
		s.respondJSON(w, http.StatusCreated, ingestResponse{IngestResult: res, Warning: indexer.Explain(err)})
	default:
		s.logger.Info("Ingestion rejected", zap.Error(err))
		s.respondExplained(w, err)
	}
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.engine.ListIngested(r.Context())
	if err != nil {
		s.logger.Error("List documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "list failed", err.Error())
		return
	}
	if docs == nil {
		docs = []models.ListedDocument{}
	}
	s.respondJSON(w, http.StatusOK, docs)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	res, err := s.indexer.Clear(r.Context())
	if err != nil {
		s.logger.Error("Clear failed", zap.Error(err))
		s.respondExplained(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*models.QueryRequest, bool) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return nil, false
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, models.ErrEmptyQuery.Error(), "Send {\"query\": \"...\", \"k\": 5}.")
		return nil, false
	}
	return &req, true
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	text, err := s.engine.Query(r.Context(), req.Query, req.K)
	if err != nil {
		s.logger.Error("Query failed", zap.Error(err))
		s.respondExplained(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.QueryResponse{Query: strings.TrimSpace(req.Query), Context: text})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	resp, err := s.engine.SearchResponse(r.Context(), req)
	if err != nil {
		s.logger.Error("Search failed", zap.Error(err))
		s.respondExplained(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleSearchDocumentsTool serves agent tool calls. Failures are returned as
// text content so the agent can relay them.
func (s *Server) handleSearchDocumentsTool(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	text, err := s.engine.Query(r.Context(), req.Query, req.K)
	if err != nil {
		e := indexer.Explain(err)
		text = fmt.Sprintf("Error searching documents: %s. %s", e.Error, e.Message)
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"content": text})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Status(r.Context())
	if err != nil {
		s.logger.Error("Status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "status failed", err.Error())
		return
	}
	usage, err := storage.MeasureDiskUsage(s.config.Storage.DatabasePath, s.config.Storage.SnapshotPath, s.config.Storage.UploadDir)
	if err == nil {
		st.DiskBytes = usage.Total()
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": st,
		"config": map[string]any{
			"embedding_provider": s.config.Embedding.Provider,
			"chunk_size":         s.config.Retrieval.ChunkSize,
			"chunk_overlap":      s.config.Retrieval.ChunkOverlap,
			"default_k":          s.config.Retrieval.DefaultK,
			"min_score":          s.config.Retrieval.MinScore,
			"snapshot_path":      s.config.Storage.SnapshotPath,
			"database_path":      s.config.Storage.DatabasePath,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, indexer.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, embedding.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondExplained(w http.ResponseWriter, err error) {
	s.respondJSON(w, statusFor(err), indexer.Explain(err))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, models.ErrorResult{Error: code, Message: message})
}
