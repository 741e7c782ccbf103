// Package domain defines the core data structures of the password vault.
// It contains the secret entry, the decrypted vault document and the error
// taxonomy shared by the engine and its front ends.
package domain

import (
	"time"
)

// PlaintextVersion is the layout version of the decrypted vault document.
const PlaintextVersion = 1

// MaskedSecret is shown in place of a secret that has not been revealed.
// It has a fixed width so the real length is not disclosed.
const MaskedSecret = "••••••••"

// Entry represents one named secret held in a vault.
//
// The secret value is unexported: the only way to read it is Reveal, which
// front ends call on explicit user request.
type Entry struct {
	ID        string
	Label     string
	CreatedAt time.Time
	UpdatedAt time.Time

	secret []byte
}

// NewEntry builds an entry. The secret slice is retained, not copied.
func NewEntry(id, label string, secret []byte, createdAt, updatedAt time.Time) Entry {
	return Entry{
		ID:        id,
		Label:     label,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		secret:    secret,
	}
}

// Reveal returns the plaintext secret value.
func (e Entry) Reveal() string {
	return string(e.secret)
}

// SecretBytes exposes the backing slice for serialization and wiping.
func (e Entry) SecretBytes() []byte {
	return e.secret
}

// Masked returns the placeholder shown instead of the secret.
func (e Entry) Masked() string {
	return MaskedSecret
}

// String never includes the secret, so entries are safe to print or log.
func (e Entry) String() string {
	return e.ID + " " + e.Label + " " + MaskedSecret
}

// Plaintext is the decrypted vault document: an ordered list of entries.
// Slice order is display order.
type Plaintext struct {
	Version int
	Entries []Entry
}

// Wipe zeroes every secret held by the document.
func (p *Plaintext) Wipe() {
	for i := range p.Entries {
		s := p.Entries[i].secret
		for j := range s {
			s[j] = 0
		}
		p.Entries[i].secret = nil
	}
	p.Entries = nil
}
