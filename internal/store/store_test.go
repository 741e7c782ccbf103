package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vault-cli/pwvault/internal/domain"
	"github.com/vault-cli/pwvault/internal/vault"
)

func testKey(t *testing.T, password string) (*vault.Key, vault.Params) {
	t.Helper()
	params, err := vault.NewParams(vault.MinScryptN, 8, 1)
	require.NoError(t, err)
	key, err := vault.DeriveKey([]byte(password), params)
	require.NoError(t, err)
	t.Cleanup(key.Wipe)
	return key, params
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%04d", n)
	}
}

func newTestStore(t *testing.T, fsys FS) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test"+VaultExt)
	key, params := testKey(t, "correct horse")
	s, err := Create(fsys, path, key, params, Seed{Label: "email", Secret: "p@ss1"}, WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return s, path
}

func labels(entries []domain.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

func TestFileStore_CreateAndLoad(t *testing.T) {
	s, path := newTestStore(t, OSFS{})

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = s.Add("bank", "1234")
	require.NoError(t, err)
	_, err = s.Add("github", "gh-token")
	require.NoError(t, err)

	loaded, err := Load(OSFS{}, path, s.key)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, []string{"email", "bank", "github"}, labels(loaded.List()))
	got, err := loaded.Get("id-0002")
	require.NoError(t, err)
	assert.Equal(t, "1234", got.Reveal())
	assert.Equal(t, s.Params(), loaded.Params())
}

func TestFileStore_CreateExisting(t *testing.T) {
	s, path := newTestStore(t, OSFS{})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Create(OSFS{}, path, s.key, s.params, Seed{Label: "other", Secret: "x"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileStore_CreateValidatesSeed(t *testing.T) {
	key, params := testKey(t, "pw")
	path := filepath.Join(t.TempDir(), "seed"+VaultExt)

	_, err := Create(OSFS{}, path, key, params, Seed{Label: "  ", Secret: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = Create(OSFS{}, path, key, params, Seed{Label: "email", Secret: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no file should be written for an invalid seed")
}

func TestFileStore_LoadErrors(t *testing.T) {
	s, path := newTestStore(t, OSFS{})

	_, err := Load(OSFS{}, filepath.Join(filepath.Dir(path), "missing"+VaultExt), s.key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	wrong, _ := testKey(t, "wrong horse")
	_, err = Load(OSFS{}, path, wrong)
	assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0o600))
	_, err = Load(OSFS{}, path, s.key)
	assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity)

	require.NoError(t, os.WriteFile(path, data[:vault.HeaderSize-1], 0o600))
	_, err = Load(OSFS{}, path, s.key)
	assert.ErrorIs(t, err, domain.ErrAuthOrIntegrity)
}

func TestFileStore_EveryMutationReseals(t *testing.T) {
	s, path := newTestStore(t, OSFS{})

	read := func() []byte {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return data
	}
	nonce := func(file []byte) []byte {
		h, err := vault.ParseHeader(file)
		require.NoError(t, err)
		return h.Nonce[:]
	}

	first := read()
	e, err := s.Add("bank", "1234")
	require.NoError(t, err)
	second := read()
	assert.NotEqual(t, nonce(first), nonce(second))

	label := "bank2"
	_, err = s.Edit(e.ID, EntryUpdate{Label: &label})
	require.NoError(t, err)
	third := read()
	assert.NotEqual(t, nonce(second), nonce(third))

	require.NoError(t, s.Delete(e.ID))
	fourth := read()
	assert.NotEqual(t, nonce(third), nonce(fourth))

	assert.False(t, bytes.Contains(fourth, []byte("email")), "labels must not appear in the file")
	assert.False(t, bytes.Contains(fourth, []byte("p@ss1")), "secrets must not appear in the file")
}

func TestFileStore_AddValidation(t *testing.T) {
	s, _ := newTestStore(t, OSFS{})

	_, err := s.Add("", "secret")
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "label", verr.Field)

	_, err = s.Add("label", "")
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "secret", verr.Field)

	assert.Equal(t, 1, s.Len())
}

func TestFileStore_DuplicateLabelsAllowed(t *testing.T) {
	s, _ := newTestStore(t, OSFS{})

	a, err := s.Add("email", "other")
	require.NoError(t, err)
	assert.NotEqual(t, "id-0001", a.ID)
	assert.Equal(t, []string{"email", "email"}, labels(s.List()))
}

func TestFileStore_EditPreservesPosition(t *testing.T) {
	s, path := newTestStore(t, OSFS{})
	clock := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return clock }

	bank, err := s.Add("bank", "1234")
	require.NoError(t, err)
	_, err = s.Add("github", "gh")
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	secret := "5678"
	updated, err := s.Edit(bank.ID, EntryUpdate{Secret: &secret})
	require.NoError(t, err)
	assert.Equal(t, "bank", updated.Label)
	assert.Equal(t, "5678", updated.Reveal())
	assert.Equal(t, bank.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	assert.Equal(t, []string{"email", "bank", "github"}, labels(s.List()))

	loaded, err := Load(OSFS{}, path, s.key)
	require.NoError(t, err)
	got, err := loaded.Get(bank.ID)
	require.NoError(t, err)
	assert.Equal(t, "5678", got.Reveal())
}

func TestFileStore_EditErrors(t *testing.T) {
	s, _ := newTestStore(t, OSFS{})

	label := "x"
	_, err := s.Edit("nope", EntryUpdate{Label: &label})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	empty := ""
	_, err = s.Edit("id-0001", EntryUpdate{Secret: &empty})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := s.Get("id-0001")
	require.NoError(t, err)
	assert.Equal(t, "p@ss1", got.Reveal())
}

func TestFileStore_DeletePreservesOrder(t *testing.T) {
	s, path := newTestStore(t, OSFS{})
	_, err := s.Add("bank", "1")
	require.NoError(t, err)
	_, err = s.Add("github", "2")
	require.NoError(t, err)

	require.NoError(t, s.Delete("id-0002"))
	assert.Equal(t, []string{"email", "github"}, labels(s.List()))

	assert.ErrorIs(t, s.Delete("id-0002"), domain.ErrNotFound)

	require.NoError(t, s.Delete("id-0001"))
	require.NoError(t, s.Delete("id-0003"))
	assert.Equal(t, 0, s.Len())

	loaded, err := Load(OSFS{}, path, s.key)
	require.NoError(t, err)
	assert.Empty(t, loaded.List())
}

func TestFileStore_InterruptedWriteKeepsPreviousState(t *testing.T) {
	s, path := newTestStore(t, OSFS{})
	_, err := s.Add("bank", "1234")
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	s.fs = OSFS{Rename: func(string, string) error { return errors.New("disk full") }}

	_, err = s.Add("github", "gh")
	assert.ErrorIs(t, err, domain.ErrPersistence)

	label := "renamed"
	_, err = s.Edit("id-0002", EntryUpdate{Label: &label})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	assert.ErrorIs(t, s.Delete("id-0001"), domain.ErrPersistence)

	assert.Equal(t, []string{"email", "bank"}, labels(s.List()))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, files, 1, "temp files must be cleaned up")

	loaded, err := Load(OSFS{}, path, s.key)
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "bank"}, labels(loaded.List()))
}

func TestFileStore_Find(t *testing.T) {
	path := filepath.Join(t.TempDir(), "find"+VaultExt)
	key, params := testKey(t, "pw")
	ids := []string{"abcd1111", "abcd2222", "ffff0000"}
	next := 0
	gen := func() string { id := ids[next]; next++; return id }

	s, err := Create(OSFS{}, path, key, params, Seed{Label: "email", Secret: "a"}, WithIDGenerator(gen))
	require.NoError(t, err)
	_, err = s.Add("bank", "b")
	require.NoError(t, err)
	_, err = s.Add("bank", "c")
	require.NoError(t, err)

	e, err := s.Find("abcd1111")
	require.NoError(t, err)
	assert.Equal(t, "email", e.Label)

	e, err = s.Find("ffff")
	require.NoError(t, err)
	assert.Equal(t, "ffff0000", e.ID)

	e, err = s.Find("email")
	require.NoError(t, err)
	assert.Equal(t, "abcd1111", e.ID)

	_, err = s.Find("abcd")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Find("bank")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Find("ff")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Find(" ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFileStore_Search(t *testing.T) {
	s, _ := newTestStore(t, OSFS{})
	_, err := s.Add("github", "1")
	require.NoError(t, err)
	_, err = s.Add("bank", "2")
	require.NoError(t, err)

	assert.Equal(t, []string{"email", "github", "bank"}, labels(s.Search("")))
	assert.Equal(t, []string{"github"}, labels(s.Search("GH")))
	assert.Empty(t, s.Search("zzz"))
}

func TestFileStore_MutationsWipeEarlierSnapshots(t *testing.T) {
	s, _ := newTestStore(t, OSFS{})
	_, err := s.Add("bank", "123456789")
	require.NoError(t, err)

	before := s.List()
	kept := before[0].Reveal()
	secret := "new-secret"
	_, err = s.Edit("id-0001", EntryUpdate{Secret: &secret})
	require.NoError(t, err)

	assert.Equal(t, "p@ss1", kept)
	assert.Equal(t, "\x00\x00\x00\x00\x00", before[0].Reveal())
	assert.Equal(t, "123456789", before[1].Reveal(), "untouched entries stay readable")

	bank, err := s.Get("id-0002")
	require.NoError(t, err)
	require.NoError(t, s.Delete(bank.ID))
	assert.Equal(t, string(make([]byte, 9)), bank.Reveal())

	label := "mail"
	renamed, err := s.Edit("id-0001", EntryUpdate{Label: &label})
	require.NoError(t, err)
	assert.Equal(t, "new-secret", renamed.Reveal())
}

func TestFileStore_CloseWipes(t *testing.T) {
	s, _ := newTestStore(t, OSFS{})
	e, err := s.Get("id-0001")
	require.NoError(t, err)
	secret := e.SecretBytes()

	s.Close()
	s.Close()

	assert.Equal(t, make([]byte, len(secret)), secret)
	assert.Equal(t, 0, s.Len())

	_, err = s.Add("x", "y")
	assert.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.ErrorIs(t, s.Delete("id-0001"), domain.ErrSessionClosed)
}

func TestAtomicWriter(t *testing.T) {
	tempDir := t.TempDir()
	targetPath := filepath.Join(tempDir, "test.txt")

	writer, err := NewAtomicWriter(targetPath)
	require.NoError(t, err)

	testData := []byte("Hello, World!")
	_, err = writer.Write(testData)
	require.NoError(t, err)
	require.NoError(t, writer.Commit())

	data, err := os.ReadFile(targetPath)
	require.NoError(t, err)
	assert.Equal(t, testData, data)

	info, err := os.Stat(targetPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	writer2, err := NewAtomicWriter(targetPath + ".2")
	require.NoError(t, err)
	_, err = writer2.Write([]byte("This should be aborted"))
	require.NoError(t, err)
	require.NoError(t, writer2.Abort())

	_, err = os.Stat(targetPath + ".2")
	assert.True(t, os.IsNotExist(err), "aborted file should not exist")
	files, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	require.Len(t, files, 1, "temp file should be removed")
	assert.Equal(t, "test.txt", files[0].Name())
}

func TestEnsureFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loose")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chmod(path, 0o644))

	require.NoError(t, EnsureFilePermissions(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
