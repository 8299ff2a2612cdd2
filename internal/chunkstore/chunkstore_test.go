package chunkstore

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestComputeSHACRLFContent(t *testing.T) {
	// SHA-1 over the exact bytes, CRLF preserved.
	assert.Equal(t,
		"d07cff009c449bfdf131d865e1dc4413256e5f52",
		ComputeSHA("hello\r\nworld"))
}

func TestComputeSHAPreservesBOM(t *testing.T) {
	withBOM := "\ufeffpackage main"
	withoutBOM := "package main"
	assert.NotEqual(t, ComputeSHA(withoutBOM), ComputeSHA(withBOM))
}

func TestCompressRoundTrip(t *testing.T) {
	inputs := [][]byte{
		[]byte(""),
		[]byte("hello world"),
		[]byte("mixed\r\nline\nendings\r\n"),
		bytes.Repeat([]byte("abc123"), 10000),
	}

	for _, input := range inputs {
		compressed, err := Compress(input)
		require.NoError(t, err)
		out, err := Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, input, out)
	}
}

func TestDeriveChunkKeyVector(t *testing.T) {
	masterKey := make([]byte, 32)
	for i := range masterKey {
		masterKey[i] = byte(i)
	}
	salt, err := hex.DecodeString("f0e0d0c0b0a090807060504030201000")
	require.NoError(t, err)

	derived, err := DeriveChunkKey(masterKey, salt)
	require.NoError(t, err)
	assert.Equal(t,
		"6eed612f20f4bcb23e0f5f3023a337c73647da8e626041dea455feafe5ba3b99",
		hex.EncodeToString(derived))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)
	gzipped, err := Compress([]byte("func main() {}\n"))
	require.NoError(t, err)

	payload, err := Encrypt(gzipped, key)
	require.NoError(t, err)

	assert.Equal(t, "PAMPAE1", string(payload[:7]))

	out, err := Decrypt(payload, key)
	require.NoError(t, err)
	assert.Equal(t, gzipped, out)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key := testKey(t)
	other := testKey(t)

	payload, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	_, err = Decrypt(payload, other)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestDecryptTamperedPayloadFails(t *testing.T) {
	key := testKey(t)
	payload, err := Encrypt([]byte("payload"), key)
	require.NoError(t, err)

	payload[len(payload)-1] ^= 0xFF
	_, err = Decrypt(payload, key)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestEncryptUsesFreshSaltAndIV(t *testing.T) {
	key := testKey(t)
	a, err := Encrypt([]byte("same input"), key)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same input"), key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseMasterKey(t *testing.T) {
	raw := testKey(t)

	fromB64, err := ParseMasterKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, fromB64)

	fromHex, err := ParseMasterKey(hex.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, fromHex)

	_, err = ParseMasterKey("short")
	assert.Error(t, err)

	_, err = ParseMasterKey("")
	assert.Error(t, err)

	// 64 chars but not hex.
	_, err = ParseMasterKey("zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	assert.Error(t, err)
}

func TestStoreWriteReadPlain(t *testing.T) {
	store := New(t.TempDir(), nil)
	text := "class Foo {\r\n  bar() {}\n}\r\n"
	sha := ComputeSHA(text)

	require.NoError(t, store.Write(sha, text, false))

	got, err := store.Read(sha)
	require.NoError(t, err)
	assert.Equal(t, text, got)

	_, err = os.Stat(filepath.Join(store.Dir, sha+".gz"))
	assert.NoError(t, err)
}

func TestStoreWriteReadEncrypted(t *testing.T) {
	store := New(t.TempDir(), testKey(t))
	text := "def handler(req):\n    return req\n"
	sha := ComputeSHA(text)

	require.NoError(t, store.Write(sha, text, true))

	got, err := store.Read(sha)
	require.NoError(t, err)
	assert.Equal(t, text, got)

	_, err = os.Stat(filepath.Join(store.Dir, sha+".gz.enc"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(store.Dir, sha+".gz"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreModeToggleRemovesOtherVariant(t *testing.T) {
	store := New(t.TempDir(), testKey(t))
	text := "select 1;"
	sha := ComputeSHA(text)

	require.NoError(t, store.Write(sha, text, true))
	require.NoError(t, store.Write(sha, text, false))

	_, err := os.Stat(filepath.Join(store.Dir, sha+".gz.enc"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(store.Dir, sha+".gz"))
	assert.NoError(t, err)
}

func TestStoreReadEncryptedWithoutKey(t *testing.T) {
	key := testKey(t)
	dir := t.TempDir()
	text := "secret content"
	sha := ComputeSHA(text)

	require.NoError(t, New(dir, key).Write(sha, text, true))

	_, err := New(dir, nil).Read(sha)
	assert.ErrorIs(t, err, ErrKeyRequired)
}

func TestStoreReadMissing(t *testing.T) {
	store := New(t.TempDir(), nil)
	_, err := store.Read("0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestStoreRemoveBothVariants(t *testing.T) {
	key := testKey(t)
	store := New(t.TempDir(), key)
	text := "removable"
	sha := ComputeSHA(text)

	// Place both variants manually to confirm Remove deletes both.
	require.NoError(t, store.Write(sha, text, false))
	compressed, err := Compress([]byte(text))
	require.NoError(t, err)
	payload, err := Encrypt(compressed, key)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir, sha+".gz.enc"), payload, 0o644))

	require.NoError(t, store.Remove(sha))
	assert.False(t, store.Exists(sha))
}

func TestStoreListSHAs(t *testing.T) {
	store := New(t.TempDir(), testKey(t))

	textA := "alpha"
	textB := "beta"
	shaA := ComputeSHA(textA)
	shaB := ComputeSHA(textB)

	require.NoError(t, store.Write(shaA, textA, false))
	require.NoError(t, store.Write(shaB, textB, true))

	shas, err := store.ListSHAs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{shaA, shaB}, shas)
}

func TestStoreCountByMode(t *testing.T) {
	store := New(t.TempDir(), testKey(t))
	require.NoError(t, store.Write(ComputeSHA("one"), "one", false))
	require.NoError(t, store.Write(ComputeSHA("two"), "two", true))
	require.NoError(t, store.Write(ComputeSHA("three"), "three", true))

	encrypted, plain, err := store.CountByMode()
	require.NoError(t, err)
	assert.Equal(t, 2, encrypted)
	assert.Equal(t, 1, plain)
}
