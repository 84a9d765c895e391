package security

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("server-secret")
	require.NoError(t, err)
	return c
}

func TestNewCipher_RequiresSecret(t *testing.T) {
	_, err := NewCipher("  ")
	assert.ErrorIs(t, err, ErrSecretNotConfigured)
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	c := newCipher(t)
	salt, err := GenerateSalt()
	require.NoError(t, err)
	iv, err := GenerateIV()
	require.NoError(t, err)

	blob, err := c.Encrypt("1BVtsOK4Bu...session", "user-1", salt, iv)
	require.NoError(t, err)

	// hex(ciphertext) + hex(16-byte tag)
	assert.Len(t, blob, len("1BVtsOK4Bu...session")*2+TagLength*2)
	_, err = hex.DecodeString(blob)
	require.NoError(t, err)

	plain, err := c.Decrypt(blob, "user-1", salt, iv)
	require.NoError(t, err)
	assert.Equal(t, "1BVtsOK4Bu...session", plain)
}

func TestEncrypt_EmptyPlaintext(t *testing.T) {
	c := newCipher(t)
	salt, _ := GenerateSalt()
	iv, _ := GenerateIV()

	blob, err := c.Encrypt("", "user-1", salt, iv)
	require.NoError(t, err)
	assert.Len(t, blob, TagLength*2)

	plain, err := c.Decrypt(blob, "user-1", salt, iv)
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestDecrypt_Failures(t *testing.T) {
	c := newCipher(t)
	salt, _ := GenerateSalt()
	iv, _ := GenerateIV()
	blob, err := c.Encrypt("payload", "user-1", salt, iv)
	require.NoError(t, err)

	flip := func(s string, i int) string {
		b := []byte(s)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		return string(b)
	}

	other, err := NewCipher("another-secret")
	require.NoError(t, err)
	otherSalt, _ := GenerateSalt()

	cases := []struct {
		name string
		run  func() (string, error)
	}{
		{"wrong user", func() (string, error) { return c.Decrypt(blob, "user-2", salt, iv) }},
		{"wrong secret", func() (string, error) { return other.Decrypt(blob, "user-1", salt, iv) }},
		{"wrong salt", func() (string, error) { return c.Decrypt(blob, "user-1", otherSalt, iv) }},
		{"tampered ciphertext", func() (string, error) { return c.Decrypt(flip(blob, 0), "user-1", salt, iv) }},
		{"tampered tag", func() (string, error) { return c.Decrypt(flip(blob, len(blob)-1), "user-1", salt, iv) }},
		{"too short", func() (string, error) { return c.Decrypt("abcd", "user-1", salt, iv) }},
		{"not hex", func() (string, error) { return c.Decrypt(strings.Repeat("z", 40), "user-1", salt, iv) }},
		{"bad iv length", func() (string, error) { return c.Decrypt(blob, "user-1", salt, []byte{1, 2, 3}) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plain, err := tc.run()
			assert.Empty(t, plain)
			assert.Equal(t, ErrDecryptionFailed, err)
		})
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	c := newCipher(t)
	salt := []byte("0123456789abcdef0123456789abcdef")

	k1, err := c.DeriveKey("user-1", salt)
	require.NoError(t, err)
	k2, err := c.DeriveKey("user-1", salt)
	require.NoError(t, err)
	k3, err := c.DeriveKey("user-2", salt)
	require.NoError(t, err)

	assert.Len(t, k1, KeyLength)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestTelegramCredentials_RoundTrip(t *testing.T) {
	c := newCipher(t)
	creds := TelegramCredentials{Session: "session-string", APIHash: "abc123", APIID: "424242"}

	bundle, err := c.EncryptTelegramCredentials(creds, "user-9")
	require.NoError(t, err)
	assert.Len(t, bundle.Salt, SaltLength*2)
	assert.Len(t, bundle.IV, IVLength*2)
	assert.NotContains(t, bundle.EncryptedSession, "session-string")

	got, err := c.DecryptTelegramCredentials(bundle, "user-9")
	require.NoError(t, err)
	assert.Equal(t, creds, *got)

	_, err = c.DecryptTelegramCredentials(bundle, "user-10")
	assert.Equal(t, ErrDecryptionFailed, err)
}

func TestTelegramCredentials_OptionalAPIID(t *testing.T) {
	c := newCipher(t)
	bundle, err := c.EncryptTelegramCredentials(TelegramCredentials{Session: "s", APIHash: "h"}, "u")
	require.NoError(t, err)
	assert.Empty(t, bundle.EncryptedAPIID)

	got, err := c.DecryptTelegramCredentials(bundle, "u")
	require.NoError(t, err)
	assert.Empty(t, got.APIID)
}
