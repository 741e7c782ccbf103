package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vault-cli/pwvault/internal/domain"
	"github.com/vault-cli/pwvault/internal/fuzzy"
	"github.com/vault-cli/pwvault/internal/vault"
)

// minPrefixLen is the shortest id prefix Find accepts.
const minPrefixLen = 4

// FileStore implements VaultStore on top of a single encrypted vault file.
//
// FileStore is not safe for concurrent use. Two processes writing the same
// file each produce a complete file, and the last rename wins.
type FileStore struct {
	fs     FS
	path   string
	key    *vault.Key
	params vault.Params
	doc    domain.Plaintext
	closed bool

	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used for store events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *FileStore) { s.log = l }
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) { s.now = now }
}

// WithIDGenerator replaces the random entry id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *FileStore) { s.newID = gen }
}

func newFileStore(fsys FS, path string, key *vault.Key, params vault.Params, opts []Option) *FileStore {
	s := &FileStore{
		fs:     fsys,
		path:   path,
		key:    key,
		params: params,
		doc:    domain.Plaintext{Version: domain.PlaintextVersion},
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		log:    log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes a brand-new vault file at path holding the seed entry.
// It fails with domain.ErrAlreadyExists if a file is already there.
func Create(fsys FS, path string, key *vault.Key, params vault.Params, seed Seed, opts ...Option) (*FileStore, error) {
	if err := validateFields(seed.Label, seed.Secret); err != nil {
		return nil, err
	}

	exists, err := fsys.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if exists {
		return nil, fmt.Errorf("vault %s: %w", filepath.Base(path), domain.ErrAlreadyExists)
	}

	s := newFileStore(fsys, path, key, params, opts)
	if _, err := s.Add(seed.Label, seed.Secret); err != nil {
		return nil, err
	}

	s.log.Info().Str("vault", filepath.Base(path)).Msg("vault created")
	return s, nil
}

// Load reads and decrypts the vault file at path with key.
func Load(fsys FS, path string, key *vault.Key, opts ...Option) (*FileStore, error) {
	file, err := fsys.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("vault %s: %w", filepath.Base(path), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}
	return Decrypt(fsys, path, file, key, opts...)
}

// Decrypt builds a store from vault file bytes already read from path.
// Later mutations are persisted to path.
func Decrypt(fsys FS, path string, file []byte, key *vault.Key, opts ...Option) (*FileStore, error) {
	header, err := vault.ParseHeader(file)
	if err != nil {
		return nil, err
	}

	plaintext, err := vault.Open(file, key)
	if err != nil {
		return nil, err
	}
	defer vault.Zeroize(plaintext)

	doc, err := decodePlaintext(plaintext)
	if err != nil {
		return nil, err
	}

	s := newFileStore(fsys, path, key, header.Params, opts)
	s.doc = doc
	s.log.Debug().Str("vault", filepath.Base(path)).Int("entries", len(doc.Entries)).Msg("vault loaded")
	return s, nil
}

// Path returns the vault file backing the store.
func (s *FileStore) Path() string {
	return s.path
}

// Params returns the KDF parameters recorded in the vault header.
func (s *FileStore) Params() vault.Params {
	return s.params
}

// List returns the entries in display order. The slice is a copy, but each
// entry shares its secret storage with the store: an Edit that replaces the
// secret, a Delete of the entry, or Close wipes it. Callers that need a
// secret after the next mutation must Reveal it first.
func (s *FileStore) List() []domain.Entry {
	out := make([]domain.Entry, len(s.doc.Entries))
	copy(out, s.doc.Entries)
	return out
}

// Len returns the number of entries.
func (s *FileStore) Len() int {
	return len(s.doc.Entries)
}

// Get returns the entry with the given id. The returned secret is wiped by
// the same mutations as List's.
func (s *FileStore) Get(id string) (domain.Entry, error) {
	i := s.indexOf(id)
	if i < 0 {
		return domain.Entry{}, fmt.Errorf("entry %q: %w", id, domain.ErrNotFound)
	}
	return s.doc.Entries[i], nil
}

// Find resolves a user supplied reference: an exact id, a unique id prefix
// of at least four characters, or a unique label.
func (s *FileStore) Find(ref string) (domain.Entry, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Entry{}, domain.NewValidationError("entry", "cannot be empty")
	}
	if e, err := s.Get(ref); err == nil {
		return e, nil
	}

	if len(ref) >= minPrefixLen {
		if e, ok, err := s.findUnique(func(e domain.Entry) bool { return strings.HasPrefix(e.ID, ref) }); ok || err != nil {
			return e, err
		}
	}

	if e, ok, err := s.findUnique(func(e domain.Entry) bool { return e.Label == ref }); ok || err != nil {
		return e, err
	}

	return domain.Entry{}, fmt.Errorf("entry %q: %w", ref, domain.ErrNotFound)
}

func (s *FileStore) findUnique(match func(domain.Entry) bool) (domain.Entry, bool, error) {
	var found []domain.Entry
	for _, e := range s.doc.Entries {
		if match(e) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return domain.Entry{}, false, nil
	case 1:
		return found[0], true, nil
	default:
		return domain.Entry{}, false, domain.NewValidationError("entry", fmt.Sprintf("reference matches %d entries, use the id", len(found)))
	}
}

// Search ranks entries by fuzzy label match.
func (s *FileStore) Search(query string) []domain.Entry {
	return fuzzy.Rank(query, s.doc.Entries, func(e domain.Entry) string { return e.Label })
}

// Add appends a new entry and persists the vault.
func (s *FileStore) Add(label, secret string) (domain.Entry, error) {
	if s.closed {
		return domain.Entry{}, domain.ErrSessionClosed
	}
	if err := validateFields(label, secret); err != nil {
		return domain.Entry{}, err
	}

	id := s.newID()
	if s.indexOf(id) >= 0 {
		return domain.Entry{}, fmt.Errorf("entry id collision for %q", id)
	}

	now := s.now()
	entry := domain.NewEntry(id, label, []byte(secret), now, now)

	next := make([]domain.Entry, 0, len(s.doc.Entries)+1)
	next = append(next, s.doc.Entries...)
	next = append(next, entry)

	if err := s.commit(next); err != nil {
		vault.Zeroize(entry.SecretBytes())
		return domain.Entry{}, err
	}

	s.log.Info().Str("id", id).Str("label", label).Msg("entry added")
	return entry, nil
}

// Edit changes the label and/or secret of an entry in place and persists the vault.
func (s *FileStore) Edit(id string, upd EntryUpdate) (domain.Entry, error) {
	if s.closed {
		return domain.Entry{}, domain.ErrSessionClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return domain.Entry{}, fmt.Errorf("entry %q: %w", id, domain.ErrNotFound)
	}

	old := s.doc.Entries[i]
	label := old.Label
	if upd.Label != nil {
		label = *upd.Label
	}
	secret := old.SecretBytes()
	replaced := upd.Secret != nil
	if replaced {
		secret = []byte(*upd.Secret)
	}
	if err := validateFields(label, string(secret)); err != nil {
		if replaced {
			vault.Zeroize(secret)
		}
		return domain.Entry{}, err
	}

	updated := domain.NewEntry(old.ID, label, secret, old.CreatedAt, s.now())

	next := make([]domain.Entry, len(s.doc.Entries))
	copy(next, s.doc.Entries)
	next[i] = updated

	if err := s.commit(next); err != nil {
		if replaced {
			vault.Zeroize(secret)
		}
		return domain.Entry{}, err
	}
	if replaced {
		vault.Zeroize(old.SecretBytes())
	}

	s.log.Info().Str("id", id).Bool("label_changed", upd.Label != nil).Bool("secret_changed", replaced).Msg("entry updated")
	return updated, nil
}

// Delete removes an entry, keeping the order of the rest, and persists the vault.
func (s *FileStore) Delete(id string) error {
	if s.closed {
		return domain.ErrSessionClosed
	}
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("entry %q: %w", id, domain.ErrNotFound)
	}

	removed := s.doc.Entries[i]
	next := make([]domain.Entry, 0, len(s.doc.Entries)-1)
	next = append(next, s.doc.Entries[:i]...)
	next = append(next, s.doc.Entries[i+1:]...)

	if err := s.commit(next); err != nil {
		return err
	}
	vault.Zeroize(removed.SecretBytes())

	s.log.Info().Str("id", id).Msg("entry deleted")
	return nil
}

// Close wipes every secret held by the store. The key belongs to the
// session and is wiped there.
func (s *FileStore) Close() {
	if s.closed {
		return
	}
	s.doc.Wipe()
	s.closed = true
}

// commit persists next and, only once the file is replaced, adopts it as
// the in-memory collection.
func (s *FileStore) commit(next []domain.Entry) error {
	if err := s.persist(domain.Plaintext{Version: domain.PlaintextVersion, Entries: next}); err != nil {
		return err
	}
	s.doc.Entries = next
	return nil
}

// persist seals the whole document under a fresh nonce and atomically
// replaces the vault file.
func (s *FileStore) persist(doc domain.Plaintext) error {
	data, err := encodePlaintext(doc)
	if err != nil {
		return err
	}
	defer vault.Zeroize(data)

	file, err := vault.Seal(data, s.key, s.params)
	if err != nil {
		return fmt.Errorf("failed to seal vault: %w", err)
	}

	if err := s.fs.WriteAtomic(s.path, file); err != nil {
		s.log.Error().Err(err).Str("vault", filepath.Base(s.path)).Msg("vault write failed")
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.log.Debug().Str("vault", filepath.Base(s.path)).Int("entries", len(doc.Entries)).Int("bytes", len(file)).Msg("vault persisted")
	return nil
}

func (s *FileStore) indexOf(id string) int {
	for i, e := range s.doc.Entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func validateFields(label, secret string) error {
	if strings.TrimSpace(label) == "" {
		return domain.NewValidationError("label", "cannot be empty")
	}
	if secret == "" {
		return domain.NewValidationError("secret", "cannot be empty")
	}
	return nil
}
