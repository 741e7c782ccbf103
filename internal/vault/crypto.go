package vault

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/scrypt"

	"github.com/vault-cli/pwvault/internal/domain"
)

const (
	// Crypto constants
	KeySize   = 32 // XChaCha20-Poly1305 key size
	SaltSize  = 32 // Salt size for scrypt
	NonceSize = 24 // XChaCha20-Poly1305 nonce size
	TagSize   = 16 // Poly1305 tag size

	// Default scrypt parameters (interactive logins, ~100ms on modern hardware)
	DefaultScryptN = 1 << 15
	DefaultScryptR = 8
	DefaultScryptP = 1

	// Bounds accepted from configuration and from vault headers
	MinScryptN = 1 << 10
	MaxScryptN = 1 << 20
	MaxScryptR = 32
	MaxScryptP = 16

	// Combined limits. scrypt allocates 128*N*r bytes and does work
	// proportional to N*r*p, so each bound alone is not enough.
	MaxScryptMemory = 256 << 20
	MaxScryptWork   = 1 << 24
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrKeyWiped       = errors.New("key has been wiped")
)

// Params holds the scrypt cost parameters and the salt of one vault.
// They are chosen at registration and never change afterwards.
type Params struct {
	N    uint32
	R    uint32
	P    uint32
	Salt [SaltSize]byte
}

// NewParams returns cost parameters with a fresh random salt.
func NewParams(n, r, p uint32) (Params, error) {
	params := Params{N: n, R: r, P: p}
	if err := ValidateParams(params); err != nil {
		return Params{}, err
	}
	salt, err := GenerateSalt()
	if err != nil {
		return Params{}, err
	}
	copy(params.Salt[:], salt)
	return params, nil
}

// DefaultParams returns the default scrypt parameters with a fresh salt.
func DefaultParams() (Params, error) {
	return NewParams(DefaultScryptN, DefaultScryptR, DefaultScryptP)
}

// ValidateParams checks scrypt parameters against the supported bounds.
func ValidateParams(params Params) error {
	if params.N < MinScryptN || params.N > MaxScryptN {
		return fmt.Errorf("scrypt N must be between %d and %d", MinScryptN, MaxScryptN)
	}
	if params.N&(params.N-1) != 0 {
		return errors.New("scrypt N must be a power of two")
	}
	if params.R < 1 || params.R > MaxScryptR {
		return fmt.Errorf("scrypt r must be between 1 and %d", MaxScryptR)
	}
	if params.P < 1 || params.P > MaxScryptP {
		return fmt.Errorf("scrypt p must be between 1 and %d", MaxScryptP)
	}
	if mem := ScryptMemory(params); mem > MaxScryptMemory {
		return fmt.Errorf("scrypt N=%d r=%d needs %d MiB, limit is %d MiB", params.N, params.R, mem>>20, MaxScryptMemory>>20)
	}
	if work := uint64(params.N) * uint64(params.R) * uint64(params.P); work > MaxScryptWork {
		return fmt.Errorf("scrypt cost N*r*p=%d exceeds %d", work, MaxScryptWork)
	}
	return nil
}

// ScryptMemory returns the bytes scrypt allocates for params.
func ScryptMemory(params Params) uint64 {
	return 128 * uint64(params.N) * uint64(params.R)
}

// GenerateSalt creates a cryptographically secure random salt
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateNonce creates a cryptographically secure random nonce
func GenerateNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

// Key is a derived symmetric key. The owner must call Wipe when done.
type Key struct {
	b     [KeySize]byte
	wiped bool
}

// KeyFromBytes copies raw key material into a Key.
func KeyFromBytes(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, ErrInvalidKeySize
	}
	k := &Key{}
	copy(k.b[:], raw)
	return k, nil
}

// Wipe zeroes the key material. It is safe to call more than once.
func (k *Key) Wipe() {
	if k == nil {
		return
	}
	Zeroize(k.b[:])
	k.wiped = true
}

// Wiped reports whether Wipe has been called.
func (k *Key) Wiped() bool {
	return k == nil || k.wiped
}

// Equal compares two keys in constant time.
func (k *Key) Equal(other *Key) bool {
	if k.Wiped() || other.Wiped() {
		return false
	}
	return subtle.ConstantTimeCompare(k.b[:], other.b[:]) == 1
}

func (k *Key) bytes() ([]byte, error) {
	if k.Wiped() {
		return nil, ErrKeyWiped
	}
	return k.b[:], nil
}

// DeriveKey stretches a master password into a vault key with scrypt.
// The result depends only on the password and params; no password hash is
// stored anywhere, so a wrong password is detected by the AEAD tag alone.
func DeriveKey(password []byte, params Params) (*Key, error) {
	if err := ValidateParams(params); err != nil {
		return nil, fmt.Errorf("%w: invalid KDF parameters: %v", domain.ErrValidation, err)
	}

	raw, err := scrypt.Key(password, params.Salt[:], int(params.N), int(params.R), int(params.P), KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResource, err)
	}
	defer Zeroize(raw)

	return KeyFromBytes(raw)
}

// BenchmarkKDF measures the time taken for key derivation with given parameters
func BenchmarkKDF(params Params) (time.Duration, error) {
	start := time.Now()
	key, err := DeriveKey([]byte("benchmark-passphrase"), params)
	if err != nil {
		return 0, err
	}
	key.Wipe()
	return time.Since(start), nil
}

// Zeroize securely clears a byte slice
func Zeroize(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
