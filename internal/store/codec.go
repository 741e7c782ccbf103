package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vault-cli/pwvault/internal/domain"
)

// plaintextRecord is the JSON layout sealed inside the vault file.
type plaintextRecord struct {
	Version int           `json:"version"`
	Entries []entryRecord `json:"entries"`
}

type entryRecord struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Secret    []byte    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// encodePlaintext serializes the whole document. The caller must zeroize
// the returned buffer once it has been sealed.
func encodePlaintext(doc domain.Plaintext) ([]byte, error) {
	rec := plaintextRecord{
		Version: domain.PlaintextVersion,
		Entries: make([]entryRecord, 0, len(doc.Entries)),
	}
	for _, e := range doc.Entries {
		rec.Entries = append(rec.Entries, entryRecord{
			ID:        e.ID,
			Label:     e.Label,
			Secret:    e.SecretBytes(),
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vault: %w", err)
	}
	return data, nil
}

// decodePlaintext parses a decrypted document and checks its invariants.
func decodePlaintext(data []byte) (domain.Plaintext, error) {
	var rec plaintextRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Plaintext{}, fmt.Errorf("%w: malformed vault document", domain.ErrAuthOrIntegrity)
	}
	if rec.Version != domain.PlaintextVersion {
		wipeRecords(rec.Entries)
		return domain.Plaintext{}, fmt.Errorf("%w: document version %d", domain.ErrUnsupportedFormat, rec.Version)
	}

	doc := domain.Plaintext{
		Version: rec.Version,
		Entries: make([]domain.Entry, 0, len(rec.Entries)),
	}
	seen := make(map[string]struct{}, len(rec.Entries))
	for _, r := range rec.Entries {
		if _, dup := seen[r.ID]; dup || r.ID == "" || r.Label == "" || len(r.Secret) == 0 {
			wipeRecords(rec.Entries)
			return domain.Plaintext{}, fmt.Errorf("%w: invalid entry in vault document", domain.ErrAuthOrIntegrity)
		}
		seen[r.ID] = struct{}{}
		doc.Entries = append(doc.Entries, domain.NewEntry(r.ID, r.Label, r.Secret, r.CreatedAt, r.UpdatedAt))
	}
	return doc, nil
}

func wipeRecords(records []entryRecord) {
	for i := range records {
		for j := range records[i].Secret {
			records[i].Secret[j] = 0
		}
	}
}
