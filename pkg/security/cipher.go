package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KeyLength     = 32
	SaltLength    = 32
	IVLength      = 12
	TagLength     = 16
	KDFIterations = 100000
)

var (
	ErrSecretNotConfigured = errors.New("security: encryption secret is not configured")
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrDecryptionFailed    = errors.New("decryption failed")
)

// Cipher encrypts small credential blobs with a key derived per user from
// the server secret. Ciphertexts are bound to the user id through AAD.
type Cipher struct {
	secret string
}

func NewCipher(secret string) (*Cipher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretNotConfigured
	}
	return &Cipher{secret: secret}, nil
}

// DeriveKey runs PBKDF2-SHA512 over "{userID}:{secret}".
func (c *Cipher) DeriveKey(userID string, salt []byte) ([]byte, error) {
	if c == nil || c.secret == "" {
		return nil, ErrSecretNotConfigured
	}
	password := []byte(fmt.Sprintf("%s:%s", userID, c.secret))
	return pbkdf2.Key(password, salt, KDFIterations, KeyLength, sha512.New), nil
}

// Encrypt returns hex(ciphertext) followed by hex(tag).
func (c *Cipher) Encrypt(plaintext, userID string, salt, iv []byte) (string, error) {
	aead, err := c.aead(userID, salt, iv)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), []byte(userID))
	body, tag := sealed[:len(sealed)-TagLength], sealed[len(sealed)-TagLength:]
	return hex.EncodeToString(body) + hex.EncodeToString(tag), nil
}

// Decrypt reverses Encrypt. Every failure collapses into ErrDecryptionFailed.
func (c *Cipher) Decrypt(blob, userID string, salt, iv []byte) (string, error) {
	if len(blob) < TagLength*2 {
		return "", ErrDecryptionFailed
	}

	body, err := hex.DecodeString(blob[:len(blob)-TagLength*2])
	if err != nil {
		return "", ErrDecryptionFailed
	}
	tag, err := hex.DecodeString(blob[len(blob)-TagLength*2:])
	if err != nil {
		return "", ErrDecryptionFailed
	}

	aead, err := c.aead(userID, salt, iv)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	plain, err := aead.Open(nil, iv, append(body, tag...), []byte(userID))
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

func (c *Cipher) aead(userID string, salt, iv []byte) (cipher.AEAD, error) {
	if len(iv) != IVLength {
		return nil, fmt.Errorf("iv must be %d bytes, got %d", IVLength, len(iv))
	}
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}

	key, err := c.DeriveKey(userID, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithTagSize(block, TagLength)
}

func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func GenerateSalt() ([]byte, error) { return RandomBytes(SaltLength) }

func GenerateIV() ([]byte, error) { return RandomBytes(IVLength) }
