package imaging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// DiskStore writes image bytes into a directory using content-addressed
// file names, so saving the same bytes twice yields the same path.
//
// DiskStore is safe for concurrent use: distinct contents never share a
// file name and identical contents produce identical files.
type DiskStore struct {
	dir string
}

// NewDiskStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

// Dir returns the store's root directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes data as "<prefix>_<hash><ext>" and returns the absolute path.
//
// The hash is the first 12 hex digits of the SHA-256 of data; the extension
// is derived from mimeType.
func (s *DiskStore) Save(prefix string, data []byte, mimeType string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	sum := sha256.Sum256(data)
	name := prefix + "_" + hex.EncodeToString(sum[:])[:12] + Extension(mimeType)
	path := filepath.Join(s.dir, name)

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+name+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store image file: %w", err)
	}
	return path, nil
}
