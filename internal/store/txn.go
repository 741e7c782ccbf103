package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// AtomicWriter handles atomic file operations using temp file + rename
type AtomicWriter struct {
	targetPath string
	tempPath   string
	tempFile   *os.File
	rename     func(oldpath, newpath string) error
}

// NewAtomicWriter creates a new atomic writer for the target path
func NewAtomicWriter(targetPath string) (*AtomicWriter, error) {
	dir := filepath.Dir(targetPath)
	base := filepath.Base(targetPath)

	// Clean and validate the target directory path
	cleanDir := filepath.Clean(dir)
	if cleanDir != dir {
		return nil, fmt.Errorf("invalid directory path: potential directory traversal detected")
	}

	// Validate the base filename to prevent directory traversal
	if strings.Contains(base, "..") || strings.ContainsRune(base, filepath.Separator) {
		return nil, fmt.Errorf("invalid filename: %s", base)
	}

	// Ensure the target directory exists with secure permissions
	if err := os.MkdirAll(cleanDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Temp file lives next to the target so the rename never crosses filesystems.
	tempFile, err := os.CreateTemp(cleanDir, "."+base+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := tempFile.Chmod(0o600); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempFile.Name())
		return nil, fmt.Errorf("failed to restrict temp file permissions: %w", err)
	}

	return &AtomicWriter{
		targetPath: targetPath,
		tempPath:   tempFile.Name(),
		tempFile:   tempFile,
		rename:     os.Rename,
	}, nil
}

// Write writes data to the temporary file
func (aw *AtomicWriter) Write(data []byte) (int, error) {
	if aw.tempFile == nil {
		return 0, fmt.Errorf("writer is closed")
	}
	n, err := aw.tempFile.Write(data)
	if err != nil {
		if abortErr := aw.Abort(); abortErr != nil {
			log.Warn().Err(abortErr).Msg("failed to abort after write error")
		}
	}
	return n, err
}

// Commit finalizes the write by syncing and atomically renaming
func (aw *AtomicWriter) Commit() error {
	if aw.tempFile == nil {
		return fmt.Errorf("writer is closed")
	}

	// Sync to ensure data is written to disk
	if err := aw.tempFile.Sync(); err != nil {
		if abortErr := aw.Abort(); abortErr != nil {
			log.Warn().Err(abortErr).Msg("failed to abort after sync error")
		}
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := aw.tempFile.Close(); err != nil {
		aw.tempFile = nil
		if abortErr := aw.Abort(); abortErr != nil {
			log.Warn().Err(abortErr).Msg("failed to abort after close error")
		}
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	aw.tempFile = nil

	// Atomically rename temp file to target
	if err := aw.rename(aw.tempPath, aw.targetPath); err != nil {
		_ = os.Remove(aw.tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	syncDir(filepath.Dir(aw.targetPath))
	return nil
}

// Abort cancels the write and cleans up the temporary file
func (aw *AtomicWriter) Abort() error {
	var err error

	if aw.tempFile != nil {
		if closeErr := aw.tempFile.Close(); closeErr != nil {
			err = closeErr
		}
		aw.tempFile = nil
	}

	if removeErr := os.Remove(aw.tempPath); removeErr != nil && !os.IsNotExist(removeErr) && err == nil {
		err = removeErr
	}

	return err
}

// AtomicWriteFile writes data to a file atomically
func AtomicWriteFile(path string, data []byte) error {
	return atomicWriteFile(path, data, os.Rename)
}

func atomicWriteFile(path string, data []byte, rename func(oldpath, newpath string) error) error {
	writer, err := NewAtomicWriter(path)
	if err != nil {
		return err
	}
	if rename != nil {
		writer.rename = rename
	}

	if _, err := writer.Write(data); err != nil {
		return err
	}

	return writer.Commit()
}

// syncDir flushes the directory entry so the rename survives a crash.
// Not every platform supports syncing a directory, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// EnsureFilePermissions ensures the file has secure permissions (0600)
func EnsureFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	// Check if permissions are too permissive
	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		// Fix permissions to 0600 (owner read/write only)
		return os.Chmod(path, 0o600)
	}

	return nil
}
