package storage

import (
	"fmt"
	"io/fs"
	"path/filepath"
)

// Quota reports local storage usage against a limit. The engine halts
// sync while usage is at or above the limit.
type Quota interface {
	Usage() (used, limit int64, err error)
}

// DiskQuota measures the size of a directory tree.
type DiskQuota struct {
	dir   string
	limit int64
}

// NewDiskQuota creates a quota over a directory.
func NewDiskQuota(dir string, limit int64) *DiskQuota {
	return &DiskQuota{dir: dir, limit: limit}
}

// Usage walks the directory and sums file sizes.
func (q *DiskQuota) Usage() (int64, int64, error) {
	var used int64

	err := filepath.WalkDir(q.dir, func(path string, d fs.DirEntry, err error) error {
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
		used += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("measure storage usage: %w", err)
	}

	return used, q.limit, nil
}

// StaticQuota returns fixed values, for tests.
type StaticQuota struct {
	Used  int64
	Limit int64
	Err   error
}

func (q *StaticQuota) Usage() (int64, int64, error) {
	return q.Used, q.Limit, q.Err
}
