package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vault-cli/pwvault/internal/domain"
)

const (
	// VaultExt is the file extension of every vault file.
	VaultExt = ".vault"

	// MaxUsernameLen bounds usernames in bytes.
	MaxUsernameLen = 256

	usernameDomain = "pwvault/user/v1\x00"
)

// Registry maps usernames to vault files inside one data directory.
// The file name is a one-way hash of the username, so listing the
// directory does not reveal who has a vault.
type Registry struct {
	dir string
	fs  FS
}

// NewRegistry returns a registry rooted at dir.
func NewRegistry(dir string, fsys FS) *Registry {
	if fsys == nil {
		fsys = OSFS{}
	}
	return &Registry{dir: dir, fs: fsys}
}

// Dir returns the data directory.
func (r *Registry) Dir() string {
	return r.dir
}

// FS returns the filesystem the registry resolves against.
func (r *Registry) FS() FS {
	return r.fs
}

// FileName returns the vault file name for username. It is deterministic
// and never contains the username itself.
func FileName(username string) string {
	sum := sha256.Sum256([]byte(usernameDomain + username))
	return hex.EncodeToString(sum[:]) + VaultExt
}

// ValidateUsername rejects blank and oversized usernames.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return domain.NewValidationError("username", "cannot be empty")
	}
	if len(username) > MaxUsernameLen {
		return domain.NewValidationError("username", fmt.Sprintf("must be at most %d bytes", MaxUsernameLen))
	}
	return nil
}

// Resolve returns the vault path for username.
func (r *Registry) Resolve(username string) (string, error) {
	if err := ValidateUsername(username); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, FileName(username)), nil
}

// Exists reports whether username already has a vault file.
func (r *Registry) Exists(username string) (bool, error) {
	path, err := r.Resolve(username)
	if err != nil {
		return false, err
	}
	ok, err := r.fs.Exists(path)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return ok, nil
}
