package credential

//go:generate mockgen -source=telegram.go -destination=mock_telegram_test.go -package=credential

import (
	"context"
	"errors"
	"fmt"

	"ftc-platform/pkg/security"
)

// Error codes reported by the Telegram API that the auth flow reacts to.
const (
	CodePasswordNeeded      = "SESSION_PASSWORD_NEEDED"
	CodePhoneCodeInvalid    = "PHONE_CODE_INVALID"
	CodePhoneCodeExpired    = "PHONE_CODE_EXPIRED"
	CodePasswordHashInvalid = "PASSWORD_HASH_INVALID"
	CodeAuthKeyUnregistered = "AUTH_KEY_UNREGISTERED"
	CodeSessionRevoked      = "SESSION_REVOKED"
	CodeUserDeactivated     = "USER_DEACTIVATED"
)

// UpstreamError is an error returned by the Telegram API.
type UpstreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func upstreamCode(err error) string {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}

// IsRevoked reports whether err means the remote session is no longer valid.
func IsRevoked(err error) bool {
	switch upstreamCode(err) {
	case CodeAuthKeyUnregistered, CodeSessionRevoked, CodeUserDeactivated:
		return true
	}
	return false
}

// CodeRequest is the result of requesting a login code. Session carries the
// unauthorized session that must be reused to sign in.
type CodeRequest struct {
	PhoneCodeHash string `json:"phoneCodeHash"`
	Session       string `json:"session"`
}

type Authorization struct {
	Session        string `json:"session"`
	TelegramUserID string `json:"telegramUserId"`
	Username       string `json:"username"`
}

type TelegramContact struct {
	TelegramUserID string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Username       string `json:"username"`
	Phone          string `json:"phone"`
}

// TelegramClient is the Telegram API as used by the auth and import flows.
// creds.Session is empty until a code was requested.
type TelegramClient interface {
	SendCode(ctx context.Context, creds security.TelegramCredentials, phone string) (*CodeRequest, error)
	SignIn(ctx context.Context, creds security.TelegramCredentials, phone, phoneCodeHash, code string) (*Authorization, error)
	CheckPassword(ctx context.Context, creds security.TelegramCredentials, password string) (*Authorization, error)
	Contacts(ctx context.Context, creds security.TelegramCredentials) ([]TelegramContact, error)
}
