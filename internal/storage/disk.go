package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage reports bytes used by the catalog database (with its WAL files),
// the corpus snapshot, and the upload directory.
type DiskUsage struct {
	Catalog  int64 `json:"catalog_bytes"`
	Snapshot int64 `json:"snapshot_bytes"`
	Uploads  int64 `json:"uploads_bytes"`
}

// Total returns the sum of all parts.
func (u DiskUsage) Total() int64 {
	return u.Catalog + u.Snapshot + u.Uploads
}

// MeasureDiskUsage sizes the storage paths. Missing paths count as zero.
func MeasureDiskUsage(dbPath, snapshotPath, uploadDir string) (DiskUsage, error) {
	var u DiskUsage
	var err error
	if u.Catalog, err = pathSize(dbPath, dbPath+"-wal", dbPath+"-shm"); err != nil {
		return u, err
	}
	if u.Snapshot, err = pathSize(snapshotPath); err != nil {
		return u, err
	}
	if u.Uploads, err = pathSize(uploadDir); err != nil {
		return u, err
	}
	return u, nil
}

// pathSize sums files and directories (recursively). Empty and missing paths
// contribute 0.
func pathSize(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return 0, err
		}
	}
	return total, nil
}
