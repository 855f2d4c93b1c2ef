package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsageBytes returns the total size in bytes of the given paths. A path may be
// a file, a directory (summed recursively) or a prefix whose siblings share it,
// such as a FAISS index saved as <path>.faiss and <path>.idmap. Missing paths count as 0.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, err := pathSize(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func pathSize(p string) (int64, error) {
	info, err := os.Stat(p)
	if err == nil {
		if !info.IsDir() {
			return info.Size(), nil
		}
		var total int64
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		return total, err
	}
	if !os.IsNotExist(err) {
		return 0, err
	}
	matches, _ := filepath.Glob(p + ".*")
	var total int64
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			total += fi.Size()
		}
	}
	return total, nil
}
