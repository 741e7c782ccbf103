package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FS is the filesystem surface the vault engine needs.
type FS interface {
	ReadFile(path string) ([]byte, error)
	// WriteAtomic replaces path with data. On failure the previous content
	// of path is left untouched.
	WriteAtomic(path string, data []byte) error
	Exists(path string) (bool, error)
}

// OSFS implements FS on the local filesystem.
type OSFS struct {
	// Rename replaces os.Rename when set. Tests use it to interrupt a write.
	Rename func(oldpath, newpath string) error
}

// ReadFile reads a vault file and tightens its permissions if needed.
func (o OSFS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if err := EnsureFilePermissions(path); err != nil {
		return nil, fmt.Errorf("failed to verify vault permissions: %w", err)
	}
	return data, nil
}

// WriteAtomic writes data to a temp file in the same directory and renames it over path.
func (o OSFS) WriteAtomic(path string, data []byte) error {
	return atomicWriteFile(path, data, o.Rename)
}

// Exists reports whether path exists.
func (o OSFS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
