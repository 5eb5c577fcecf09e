package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/hyperjump/docrag/internal/models"
)

func newTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	cat, err := NewSQLiteCatalog(filepath.Join(t.TempDir(), "nested", "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func TestSQLiteCatalog_CreateAndGet(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	uploader := int64(42)
	entry := &models.CatalogEntry{
		Filename:    "report.pdf",
		FilePath:    "/uploads/abc_report.pdf",
		FileSize:    1024,
		FileType:    ".pdf",
		ChunksCount: 3,
		UploadedBy:  &uploader,
	}
	if err := cat.Create(ctx, entry); err != nil {
		t.Fatal(err)
	}
	if entry.ID == 0 || entry.UploadedAt.IsZero() || !entry.IsActive {
		t.Errorf("Create did not populate fields: %+v", entry)
	}

	got, err := cat.Get(ctx, entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Filename != "report.pdf" || got.ChunksCount != 3 || got.UploadedBy == nil || *got.UploadedBy != 42 {
		t.Errorf("got %+v", got)
	}
	if !got.IsActive {
		t.Error("entry should be active")
	}

	if _, err := cat.Get(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing: got %v, want ErrNotFound", err)
	}
}

func TestSQLiteCatalog_ListAndDeactivate(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		e := &models.CatalogEntry{Filename: name, FilePath: "/docs/" + name, FileType: ".txt", ChunksCount: 2}
		if err := cat.Create(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := cat.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("ListActive: got %d entries", len(entries))
	}
	if entries[0].Filename != "c.txt" {
		t.Errorf("newest first: got %s", entries[0].Filename)
	}
	if n, _ := cat.CountActive(ctx); n != 3 {
		t.Errorf("CountActive = %d", n)
	}
	if n, _ := cat.ActiveChunks(ctx); n != 6 {
		t.Errorf("ActiveChunks = %d", n)
	}

	found, err := cat.FindActiveByPath(ctx, "/docs/b.txt")
	if err != nil || found.Filename != "b.txt" {
		t.Errorf("FindActiveByPath: %+v, %v", found, err)
	}

	n, err := cat.DeactivateAll(ctx)
	if err != nil || n != 3 {
		t.Fatalf("DeactivateAll: n=%d err=%v", n, err)
	}
	// Second call changes nothing.
	if n, _ := cat.DeactivateAll(ctx); n != 0 {
		t.Errorf("second DeactivateAll changed %d rows", n)
	}

	entries, _ = cat.ListActive(ctx)
	if len(entries) != 0 {
		t.Errorf("ListActive after deactivate: %d entries", len(entries))
	}
	if _, err := cat.FindActiveByPath(ctx, "/docs/b.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindActiveByPath after deactivate: %v", err)
	}
	if n, _ := cat.ActiveChunks(ctx); n != 0 {
		t.Errorf("ActiveChunks after deactivate = %d", n)
	}

	// Tombstoned rows remain readable by ID.
	old, err := cat.Get(ctx, 1)
	if err != nil || old.IsActive {
		t.Errorf("Get tombstoned: %+v, %v", old, err)
	}
}

func TestSQLiteCatalog_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	ctx := context.Background()
	cat, err := NewSQLiteCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Create(ctx, &models.CatalogEntry{Filename: "x.md", FilePath: "/x.md"}); err != nil {
		t.Fatal(err)
	}
	_ = cat.Close()

	reopened, err := NewSQLiteCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if n, _ := reopened.CountActive(ctx); n != 1 {
		t.Errorf("CountActive after reopen = %d", n)
	}
}
