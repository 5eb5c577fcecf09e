package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMeasureDiskUsage(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "catalog.db")
	snap := filepath.Join(dir, "corpus.snap")
	uploads := filepath.Join(dir, "uploads")

	write := func(path string, n int) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, n), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(db, 10)
	write(db+"-wal", 5)
	write(snap, 7)
	write(filepath.Join(uploads, "a.txt"), 3)
	write(filepath.Join(uploads, "sub", "b.txt"), 4)

	u, err := MeasureDiskUsage(db, snap, uploads)
	if err != nil {
		t.Fatal(err)
	}
	if u.Catalog != 15 || u.Snapshot != 7 || u.Uploads != 7 {
		t.Errorf("got %+v", u)
	}
	if u.Total() != 29 {
		t.Errorf("Total = %d, want 29", u.Total())
	}
}

func TestMeasureDiskUsage_MissingPaths(t *testing.T) {
	dir := t.TempDir()
	u, err := MeasureDiskUsage(filepath.Join(dir, "none.db"), "", filepath.Join(dir, "nodir"))
	if err != nil {
		t.Fatal(err)
	}
	if u.Total() != 0 {
		t.Errorf("Total = %d, want 0", u.Total())
	}
}
