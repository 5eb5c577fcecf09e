package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/docrag/internal/models"
)

// SQLiteCatalog implements Catalog on SQLite.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens or creates the catalog database at dbPath. Parent
// directories are created if needed.
func NewSQLiteCatalog(dbPath string) (*SQLiteCatalog, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteCatalog{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS uploaded_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		filename TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		file_type TEXT NOT NULL DEFAULT '',
		chunks_count INTEGER NOT NULL DEFAULT 0,
		uploaded_by INTEGER,
		uploaded_at TIMESTAMP NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_uploaded_files_active ON uploaded_files(is_active, uploaded_at);
	CREATE INDEX IF NOT EXISTS idx_uploaded_files_path ON uploaded_files(file_path);
	`
	_, err := db.Exec(schema)
	return err
}

const entryColumns = `id, filename, file_path, file_size, file_type, chunks_count, uploaded_by, uploaded_at, is_active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*models.CatalogEntry, error) {
	var e models.CatalogEntry
	var uploadedBy sql.NullInt64
	if err := row.Scan(&e.ID, &e.Filename, &e.FilePath, &e.FileSize, &e.FileType,
		&e.ChunksCount, &uploadedBy, &e.UploadedAt, &e.IsActive); err != nil {
		return nil, err
	}
	if uploadedBy.Valid {
		v := uploadedBy.Int64
		e.UploadedBy = &v
	}
	return &e, nil
}

// Create inserts an active entry.
func (s *SQLiteCatalog) Create(ctx context.Context, entry *models.CatalogEntry) error {
	entry.UploadedAt = time.Now().UTC()
	entry.IsActive = true
	var uploadedBy sql.NullInt64
	if entry.UploadedBy != nil {
		uploadedBy = sql.NullInt64{Int64: *entry.UploadedBy, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO uploaded_files (filename, file_path, file_size, file_type, chunks_count, uploaded_by, uploaded_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		entry.Filename, entry.FilePath, entry.FileSize, entry.FileType, entry.ChunksCount, uploadedBy, entry.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert catalog entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read catalog id: %w", err)
	}
	entry.ID = id
	return nil
}

// Get returns an entry by ID, active or not.
func (s *SQLiteCatalog) Get(ctx context.Context, id int64) (*models.CatalogEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM uploaded_files WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return e, err
}

// ListActive returns active entries, newest first.
func (s *SQLiteCatalog) ListActive(ctx context.Context) ([]*models.CatalogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM uploaded_files WHERE is_active = 1 ORDER BY uploaded_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FindActiveByPath returns the newest active entry for path.
func (s *SQLiteCatalog) FindActiveByPath(ctx context.Context, path string) (*models.CatalogEntry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM uploaded_files WHERE is_active = 1 AND file_path = ?
		 ORDER BY id DESC LIMIT 1`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return e, err
}

// DeactivateAll tombstones every active entry.
func (s *SQLiteCatalog) DeactivateAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE uploaded_files SET is_active = 0 WHERE is_active = 1`)
	if err != nil {
		return 0, fmt.Errorf("deactivate catalog entries: %w", err)
	}
	return res.RowsAffected()
}

// CountActive returns the number of active entries.
func (s *SQLiteCatalog) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM uploaded_files WHERE is_active = 1`).Scan(&n)
	return n, err
}

// ActiveChunks sums chunks_count over active entries.
func (s *SQLiteCatalog) ActiveChunks(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(chunks_count), 0) FROM uploaded_files WHERE is_active = 1`).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	return s.db.Close()
}
