package vault

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/vault-cli/pwvault/internal/domain"
)

// Vault file layout, version 1. All integers are big-endian.
//
//	[0:4]   magic "PWVT"
//	[4:6]   format version
//	[6:10]  scrypt N
//	[10:14] scrypt r
//	[14:18] scrypt p
//	[18:50] salt
//	[50:74] nonce
//	[74:]   ciphertext || tag
//
// The 74 header bytes are the AEAD associated data.
const (
	Magic         = "PWVT"
	FormatVersion = 1

	offVersion = 4
	offN       = 6
	offR       = 10
	offP       = 14
	offSalt    = 18
	offNonce   = offSalt + SaltSize
	HeaderSize = offNonce + NonceSize
)

// Header is the unencrypted prefix of a vault file.
type Header struct {
	Version uint16
	Params  Params
	Nonce   [NonceSize]byte
}

// MarshalBinary encodes the header into its fixed 74-byte form.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf, Magic)
	binary.BigEndian.PutUint16(buf[offVersion:], h.Version)
	binary.BigEndian.PutUint32(buf[offN:], h.Params.N)
	binary.BigEndian.PutUint32(buf[offR:], h.Params.R)
	binary.BigEndian.PutUint32(buf[offP:], h.Params.P)
	copy(buf[offSalt:], h.Params.Salt[:])
	copy(buf[offNonce:], h.Nonce[:])
	return buf, nil
}

// ParseHeader decodes the header of a vault file without decrypting it.
// A malformed header is reported as an integrity failure; an unknown
// version as an unsupported format.
func ParseHeader(file []byte) (*Header, error) {
	if len(file) < HeaderSize+TagSize {
		return nil, fmt.Errorf("%w: file too short", domain.ErrAuthOrIntegrity)
	}
	if !bytes.Equal(file[:offVersion], []byte(Magic)) {
		return nil, fmt.Errorf("%w: bad magic", domain.ErrAuthOrIntegrity)
	}

	h := &Header{
		Version: binary.BigEndian.Uint16(file[offVersion:]),
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: version %d", domain.ErrUnsupportedFormat, h.Version)
	}

	h.Params.N = binary.BigEndian.Uint32(file[offN:])
	h.Params.R = binary.BigEndian.Uint32(file[offR:])
	h.Params.P = binary.BigEndian.Uint32(file[offP:])
	copy(h.Params.Salt[:], file[offSalt:offNonce])
	copy(h.Nonce[:], file[offNonce:HeaderSize])

	if err := ValidateParams(h.Params); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthOrIntegrity, err)
	}

	return h, nil
}

// Seal encrypts plaintext under key with a fresh random nonce and returns
// the complete vault file. params are written to the header and bound to the
// ciphertext as associated data.
func Seal(plaintext []byte, key *Key, params Params) ([]byte, error) {
	raw, err := key.bytes()
	if err != nil {
		return nil, err
	}
	if err := ValidateParams(params); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	aead, err := chacha20poly1305.NewX(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create AEAD: %w", err)
	}

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	h := Header{Version: FormatVersion, Params: params}
	copy(h.Nonce[:], nonce)
	header, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}

	out := make([]byte, HeaderSize, HeaderSize+len(plaintext)+aead.Overhead())
	copy(out, header)
	return aead.Seal(out, nonce, plaintext, header), nil
}

// Open verifies and decrypts a vault file. No plaintext is returned unless
// the tag verifies; every failure other than an unknown version is
// reported as domain.ErrAuthOrIntegrity.
func Open(file []byte, key *Key) ([]byte, error) {
	raw, err := key.bytes()
	if err != nil {
		return nil, err
	}

	h, err := ParseHeader(file)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to create AEAD: %w", err)
	}

	plaintext, err := aead.Open(nil, h.Nonce[:], file[HeaderSize:], file[:HeaderSize])
	if err != nil {
		return nil, domain.ErrAuthOrIntegrity
	}
	return plaintext, nil
}
