package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ftc-platform/pkg/config"
	"ftc-platform/pkg/security"

	"go.uber.org/zap"
)

var ErrBridgeNotConfigured = errors.New("telegram bridge is not configured")

// Bridge talks to an MTProto bridge service over JSON/HTTP. The bridge is
// stateless: every call carries the session string it operates on.
type Bridge struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewBridge(cfg *config.Config) TelegramClient {
	if cfg.Telegram.BridgeURL == "" {
		zap.L().Warn("telegram bridge url not set, telegram calls will fail")
	}
	timeout := cfg.Telegram.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Bridge{
		baseURL: strings.TrimRight(cfg.Telegram.BridgeURL, "/"),
		token:   cfg.Telegram.BridgeToken,
		http:    &http.Client{Timeout: timeout},
	}
}

type bridgeCreds struct {
	APIID   string `json:"apiId"`
	APIHash string `json:"apiHash"`
	Session string `json:"session,omitempty"`
}

func toBridge(c security.TelegramCredentials) bridgeCreds {
	return bridgeCreds{APIID: c.APIID, APIHash: c.APIHash, Session: c.Session}
}

func (b *Bridge) SendCode(ctx context.Context, creds security.TelegramCredentials, phone string) (*CodeRequest, error) {
	var out CodeRequest
	err := b.call(ctx, "/auth/send-code", map[string]any{"credentials": toBridge(creds), "phone": phone}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Bridge) SignIn(ctx context.Context, creds security.TelegramCredentials, phone, phoneCodeHash, code string) (*Authorization, error) {
	var out Authorization
	err := b.call(ctx, "/auth/sign-in", map[string]any{
		"credentials":   toBridge(creds),
		"phone":         phone,
		"phoneCodeHash": phoneCodeHash,
		"code":          code,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Bridge) CheckPassword(ctx context.Context, creds security.TelegramCredentials, password string) (*Authorization, error) {
	var out Authorization
	err := b.call(ctx, "/auth/check-password", map[string]any{"credentials": toBridge(creds), "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Bridge) Contacts(ctx context.Context, creds security.TelegramCredentials) ([]TelegramContact, error) {
	var out struct {
		Contacts []TelegramContact `json:"contacts"`
	}
	if err := b.call(ctx, "/contacts", map[string]any{"credentials": toBridge(creds)}, &out); err != nil {
		return nil, err
	}
	return out.Contacts, nil
}

func (b *Bridge) call(ctx context.Context, path string, body, out any) error {
	if b.baseURL == "" {
		return ErrBridgeNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram bridge %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("telegram bridge %s: read body: %w", path, err)
	}

	if resp.StatusCode >= 300 {
		var e struct {
			Error UpstreamError `json:"error"`
		}
		if jsonErr := json.Unmarshal(raw, &e); jsonErr == nil && e.Error.Code != "" {
			return &e.Error
		}
		return fmt.Errorf("telegram bridge %s: status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
