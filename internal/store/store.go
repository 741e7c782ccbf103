// Package store holds the decrypted secret collection of an unlocked vault
// and persists every change back to the encrypted vault file.
package store

import (
	"github.com/vault-cli/pwvault/internal/domain"
)

// EntryUpdate carries the fields an edit changes. Nil fields are left as they are.
type EntryUpdate struct {
	Label  *string
	Secret *string
}

// Seed is the first entry written when a vault is created.
type Seed struct {
	Label  string
	Secret string
}

// VaultStore defines the operations on an unlocked vault.
//
// Every mutation re-encrypts the whole collection and atomically replaces
// the vault file before it returns. A failed mutation leaves both the file
// and the in-memory collection unchanged.
type VaultStore interface {
	// Read operations. Returned entries share secret storage with the
	// store and are wiped by a later Edit, Delete or Close.
	List() []domain.Entry
	Get(id string) (domain.Entry, error)
	Find(ref string) (domain.Entry, error)
	Search(query string) []domain.Entry
	Len() int

	// Mutations
	Add(label, secret string) (domain.Entry, error)
	Edit(id string, upd EntryUpdate) (domain.Entry, error)
	Delete(id string) error

	// Close wipes every secret held in memory.
	Close()
}
