package security

import (
	"encoding/hex"
)

// TelegramCredentials are the plaintext values kept for a user's imported session.
type TelegramCredentials struct {
	Session string
	APIHash string
	APIID   string
}

// EncryptedBundle shares one salt/IV pair across all fields, so it must be
// persisted as a whole.
type EncryptedBundle struct {
	EncryptedSession string
	EncryptedAPIHash string
	EncryptedAPIID   string
	Salt             string
	IV               string
}

func (c *Cipher) EncryptTelegramCredentials(creds TelegramCredentials, userID string) (*EncryptedBundle, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, ErrEncryptionFailed
	}
	iv, err := GenerateIV()
	if err != nil {
		return nil, ErrEncryptionFailed
	}

	bundle := &EncryptedBundle{
		Salt: hex.EncodeToString(salt),
		IV:   hex.EncodeToString(iv),
	}

	if bundle.EncryptedSession, err = c.Encrypt(creds.Session, userID, salt, iv); err != nil {
		return nil, err
	}
	if bundle.EncryptedAPIHash, err = c.Encrypt(creds.APIHash, userID, salt, iv); err != nil {
		return nil, err
	}
	if creds.APIID != "" {
		if bundle.EncryptedAPIID, err = c.Encrypt(creds.APIID, userID, salt, iv); err != nil {
			return nil, err
		}
	}

	return bundle, nil
}

func (c *Cipher) DecryptTelegramCredentials(bundle *EncryptedBundle, userID string) (*TelegramCredentials, error) {
	if bundle == nil {
		return nil, ErrDecryptionFailed
	}
	salt, err := hex.DecodeString(bundle.Salt)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	iv, err := hex.DecodeString(bundle.IV)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	var creds TelegramCredentials
	if creds.Session, err = c.Decrypt(bundle.EncryptedSession, userID, salt, iv); err != nil {
		return nil, err
	}
	if creds.APIHash, err = c.Decrypt(bundle.EncryptedAPIHash, userID, salt, iv); err != nil {
		return nil, err
	}
	if bundle.EncryptedAPIID != "" {
		if creds.APIID, err = c.Decrypt(bundle.EncryptedAPIID, userID, salt, iv); err != nil {
			return nil, err
		}
	}
	return &creds, nil
}
