package vault

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vault-cli/pwvault/internal/domain"
)

func sealFixture(t *testing.T, plaintext []byte) ([]byte, *Key, Params) {
	t.Helper()
	params := testParams(t)
	key, err := DeriveKey([]byte("Sup3rSecret!"), params)
	require.NoError(t, err)
	t.Cleanup(key.Wipe)

	file, err := Seal(plaintext, key, params)
	require.NoError(t, err)
	return file, key, params
}

func TestSealOpenRoundTrip(t *testing.T) {
	cases := map[string][]byte{
		"empty":  {},
		"short":  []byte("x"),
		"json":   []byte(`{"version":1,"entries":[]}`),
		"binary": bytes.Repeat([]byte{0, 1, 2, 255}, 4096),
	}

	for name, plaintext := range cases {
		t.Run(name, func(t *testing.T) {
			file, key, _ := sealFixture(t, plaintext)

			got, err := Open(file, key)
			require.NoError(t, err)
			assert.Equal(t, len(plaintext), len(got))
			assert.True(t, bytes.Equal(plaintext, got))
		})
	}
}

func TestSealLayout(t *testing.T) {
	plaintext := []byte("layout check")
	file, _, params := sealFixture(t, plaintext)

	require.Len(t, file, HeaderSize+len(plaintext)+TagSize)
	assert.Equal(t, []byte(Magic), file[:4])
	assert.Equal(t, uint16(FormatVersion), binary.BigEndian.Uint16(file[4:6]))
	assert.Equal(t, params.N, binary.BigEndian.Uint32(file[6:10]))
	assert.Equal(t, params.R, binary.BigEndian.Uint32(file[10:14]))
	assert.Equal(t, params.P, binary.BigEndian.Uint32(file[14:18]))
	assert.Equal(t, params.Salt[:], file[18:50])
	assert.False(t, bytes.Contains(file, plaintext), "plaintext must not appear in the file")

	h, err := ParseHeader(file)
	require.NoError(t, err)
	assert.Equal(t, params, h.Params)
	assert.Equal(t, file[50:74], h.Nonce[:])
}

func TestOpenDetectsTampering(t *testing.T) {
	file, key, _ := sealFixture(t, []byte(`{"version":1,"entries":[{"label":"email.com"}]}`))

	for i := range file {
		tampered := append([]byte(nil), file...)
		tampered[i] ^= 0x01

		got, err := Open(tampered, key)
		require.Nil(t, got, "byte %d: no plaintext may be returned", i)
		require.Error(t, err, "byte %d", i)

		if i >= offVersion && i < offN {
			// version field: reported as an unknown format
			assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat), "byte %d: %v", i, err)
			continue
		}
		assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity, "byte %d", i)
	}
}

func TestOpenWrongKey(t *testing.T) {
	file, _, params := sealFixture(t, []byte("secret payload"))

	wrong, err := DeriveKey([]byte("not the password"), params)
	require.NoError(t, err)
	defer wrong.Wipe()

	got, err := Open(file, wrong)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity)
}

func TestOpenTruncated(t *testing.T) {
	file, key, _ := sealFixture(t, []byte("secret payload"))

	for _, n := range []int{0, 3, HeaderSize - 1, HeaderSize, HeaderSize + TagSize - 1, len(file) - 1} {
		_, err := Open(file[:n], key)
		assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity, "length %d", n)
	}
}

func TestOpenUnknownVersion(t *testing.T) {
	file, key, _ := sealFixture(t, []byte("secret payload"))
	binary.BigEndian.PutUint16(file[offVersion:], FormatVersion+1)

	_, err := Open(file, key)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.NotErrorIs(t, err, domain.ErrAuthOrIntegrity)
}

func TestParseHeaderRejectsHostileParams(t *testing.T) {
	tests := []struct {
		name    string
		n, r, p uint32
	}{
		{"huge n", 1 << 30, 8, 1},
		{"every bound at maximum", MaxScryptN, MaxScryptR, MaxScryptP},
		{"memory over limit", MaxScryptN, 8, 1},
		{"work over limit", 1 << 18, 8, MaxScryptP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, key, _ := sealFixture(t, []byte("x"))
			binary.BigEndian.PutUint32(file[offN:], tt.n)
			binary.BigEndian.PutUint32(file[offR:], tt.r)
			binary.BigEndian.PutUint32(file[offP:], tt.p)

			_, err := ParseHeader(file)
			assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity)

			_, err = Open(file, key)
			assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity)
		})
	}
}

func TestSealNonceUniqueness(t *testing.T) {
	params := testParams(t)
	key, err := DeriveKey([]byte("pw"), params)
	require.NoError(t, err)
	defer key.Wipe()

	const rounds = 2000
	seen := make(map[[NonceSize]byte]struct{}, rounds)
	for i := 0; i < rounds; i++ {
		file, err := Seal([]byte("same plaintext"), key, params)
		require.NoError(t, err)

		var nonce [NonceSize]byte
		copy(nonce[:], file[offNonce:HeaderSize])
		_, dup := seen[nonce]
		require.False(t, dup, "nonce reused after %d seals", i)
		seen[nonce] = struct{}{}
	}
}

func TestDescribeFile(t *testing.T) {
	file, _, params := sealFixture(t, []byte("0123456789"))

	info, err := DescribeFile(file)
	require.NoError(t, err)
	assert.Equal(t, uint16(FormatVersion), info.FormatVersion)
	assert.Equal(t, "scrypt", info.KDF)
	assert.Equal(t, params.N, info.N)
	assert.Equal(t, SaltSize, info.SaltLength)
	assert.Equal(t, 10+TagSize, info.PayloadBytes)

	_, err = DescribeFile([]byte("garbage"))
	assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity)
}
