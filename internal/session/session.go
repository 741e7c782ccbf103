// Package session ties a username to its derived key and unlocked store.
//
// A Session owns the key. Close wipes the key and every decrypted secret,
// and callers defer it right after a successful Register or Login.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"

	"github.com/vault-cli/pwvault/internal/domain"
	"github.com/vault-cli/pwvault/internal/store"
	"github.com/vault-cli/pwvault/internal/vault"
)

// KDF holds the scrypt cost for a new vault. A zero value selects the defaults.
type KDF struct {
	N, R, P uint32
}

// Registration is the content of the registration form.
type Registration struct {
	Username string
	Password []byte
	Confirm  []byte
	First    store.Seed
	KDF      KDF
}

// Session is an unlocked vault for one user.
type Session struct {
	username string
	key      *vault.Key
	store    *store.FileStore
	closed   bool
}

// Register creates a brand-new vault for req.Username seeded with req.First
// and returns it unlocked.
//
// Validation and the duplicate check run before the key is derived, so a
// rejected form never pays for the KDF.
func Register(reg *store.Registry, req Registration, opts ...store.Option) (*Session, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	path, err := reg.Resolve(req.Username)
	if err != nil {
		return nil, err
	}
	exists, err := reg.Exists(req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("user %q: %w", req.Username, domain.ErrAlreadyExists)
	}

	params, err := newParams(req.KDF)
	if err != nil {
		return nil, err
	}

	key, err := vault.DeriveKey(req.Password, params)
	if err != nil {
		return nil, err
	}

	st, err := store.Create(reg.FS(), path, key, params, req.First, opts...)
	if err != nil {
		key.Wipe()
		return nil, err
	}

	log.Info().Str("vault", store.FileName(req.Username)).Uint32("kdf_n", params.N).Msg("user registered")
	return &Session{username: req.Username, key: key, store: st}, nil
}

// Login derives the key from password and the parameters stored in the
// user's vault header, then decrypts the vault.
//
// A wrong password and a damaged file both fail with
// domain.ErrAuthOrIntegrity.
func Login(reg *store.Registry, username string, password []byte, opts ...store.Option) (*Session, error) {
	if err := store.ValidateUsername(username); err != nil {
		return nil, err
	}
	if len(password) == 0 {
		return nil, domain.NewValidationError("password", "cannot be empty")
	}

	path, err := reg.Resolve(username)
	if err != nil {
		return nil, err
	}

	file, err := reg.FS().ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}

	header, err := vault.ParseHeader(file)
	if err != nil {
		log.Warn().Str("vault", store.FileName(username)).Msg("vault header rejected")
		return nil, err
	}

	key, err := vault.DeriveKey(password, header.Params)
	if err != nil {
		return nil, err
	}

	st, err := store.Decrypt(reg.FS(), path, file, key, opts...)
	if err != nil {
		key.Wipe()
		log.Warn().Str("vault", store.FileName(username)).Msg("unlock failed")
		return nil, err
	}

	log.Info().Str("vault", store.FileName(username)).Int("entries", st.Len()).Msg("vault unlocked")
	return &Session{username: username, key: key, store: st}, nil
}

// Username returns the user the session belongs to.
func (s *Session) Username() string {
	return s.username
}

// Store returns the unlocked store.
func (s *Session) Store() (*store.FileStore, error) {
	if s.closed {
		return nil, domain.ErrSessionClosed
	}
	return s.store, nil
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	return s.closed
}

// Close wipes the decrypted entries and the key. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.store.Close()
	s.key.Wipe()
	s.closed = true
	log.Debug().Str("vault", store.FileName(s.username)).Msg("session closed")
}

func validateRegistration(req Registration) error {
	if err := store.ValidateUsername(req.Username); err != nil {
		return err
	}
	if len(req.Password) == 0 {
		return domain.NewValidationError("password", "cannot be empty")
	}
	if subtle.ConstantTimeCompare(req.Password, req.Confirm) != 1 {
		return domain.NewValidationError("confirm", "passwords do not match")
	}
	if err := domain.RequireNonEmpty("label", req.First.Label); err != nil {
		return err
	}
	return domain.RequireNonEmpty("secret", req.First.Secret)
}

func newParams(k KDF) (vault.Params, error) {
	if k == (KDF{}) {
		return vault.DefaultParams()
	}
	params, err := vault.NewParams(k.N, k.R, k.P)
	if err != nil {
		return vault.Params{}, fmt.Errorf("%w: kdf: %v", domain.ErrValidation, err)
	}
	return params, nil
}
