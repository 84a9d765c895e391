package credential

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/security"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

type StartAuthInput struct {
	// APIID and APIHash are optional; the platform app is used when empty.
	APIID   string `json:"apiId"`
	APIHash string `json:"apiHash"`
}

type SendCodeInput struct {
	Phone string `json:"phone"`
}

type VerifyInput struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

type AuthStatus struct {
	State      AuthState  `json:"state"`
	PhoneHint  string     `json:"phoneHint,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// StartAuth begins a login, replacing any unfinished one.
func (s *Service) StartAuth(ctx context.Context, userID string, in StartAuthInput) (*AuthStatus, error) {
	apiID, apiHash := strings.TrimSpace(in.APIID), strings.TrimSpace(in.APIHash)
	if apiID == "" && apiHash == "" && s.cfg != nil && s.cfg.Telegram.APIID != 0 {
		apiID, apiHash = strconv.Itoa(s.cfg.Telegram.APIID), s.cfg.Telegram.APIHash
	}

	var details []errutil.Detail
	if n, err := strconv.Atoi(apiID); err != nil || n <= 0 {
		details = append(details, errutil.Detail{Field: "apiId", Message: "must be a positive integer"})
	}
	if apiHash == "" {
		details = append(details, errutil.Detail{Field: "apiHash", Message: "is required"})
	}
	if len(details) > 0 {
		return nil, errutil.Validation(details...)
	}

	bundle, err := s.cipher.EncryptTelegramCredentials(security.TelegramCredentials{APIID: apiID, APIHash: apiHash}, userID)
	if err != nil {
		return nil, errutil.Internal("encryption failed", err)
	}

	state := &pendingAuth{State: StateAwaitingPhone, Bundle: *bundle, StartedAt: s.now()}
	if err := s.pending.Save(ctx, userID, state); err != nil {
		return nil, errutil.Internal("failed to store auth state", err)
	}

	logger(ctx).Info("telegram auth started", zap.String("user_hash", security.HashUserID(userID)))
	return &AuthStatus{State: StateAwaitingPhone}, nil
}

// SendPhoneCode requests a login code for phone. Calling it again resends.
func (s *Service) SendPhoneCode(ctx context.Context, userID string, in SendCodeInput) (*AuthStatus, error) {
	phone, ok := normalizePhone(in.Phone)
	if !ok {
		return nil, errutil.Validation(errutil.Detail{Field: "phone", Message: "must be an international phone number"})
	}

	state, creds, err := s.loadPending(ctx, userID, StateAwaitingPhone, StateCodeSent)
	if err != nil {
		return nil, err
	}
	if err := s.requireAttempt(ctx, userID); err != nil {
		return nil, err
	}

	req, err := s.client.SendCode(ctx, *creds, phone)
	if err != nil {
		logger(ctx).Warn("telegram send code failed", zap.String("user_hash", security.HashUserID(userID)), zap.Error(err))
		return nil, upstreamError("send code", err)
	}

	creds.Session = req.Session
	bundle, err := s.cipher.EncryptTelegramCredentials(*creds, userID)
	if err != nil {
		return nil, errutil.Internal("encryption failed", err)
	}
	state.State = StateCodeSent
	state.Phone = phone
	state.PhoneCodeHash = req.PhoneCodeHash
	state.Bundle = *bundle
	if err := s.pending.Save(ctx, userID, state); err != nil {
		return nil, errutil.Internal("failed to store auth state", err)
	}

	return &AuthStatus{State: StateCodeSent, PhoneHint: phoneHint(phone)}, nil
}

// VerifyAndStore signs in with the code, or the 2FA password once Telegram
// asked for it, and stores the encrypted session.
func (s *Service) VerifyAndStore(ctx context.Context, userID string, in VerifyInput) (*AuthStatus, error) {
	state, creds, err := s.loadPending(ctx, userID, StateCodeSent, StatePasswordRequired)
	if err != nil {
		return nil, err
	}

	code, password := strings.TrimSpace(in.Code), in.Password
	switch state.State {
	case StateCodeSent:
		if code == "" {
			return nil, errutil.Validation(errutil.Detail{Field: "code", Message: "is required"})
		}
	case StatePasswordRequired:
		if password == "" {
			return nil, errutil.Validation(errutil.Detail{Field: "password", Message: "is required"})
		}
	}
	if err := s.requireAttempt(ctx, userID); err != nil {
		return nil, err
	}

	var auth *Authorization
	if state.State == StateCodeSent {
		auth, err = s.client.SignIn(ctx, *creds, state.Phone, state.PhoneCodeHash, code)
		if upstreamCode(err) == CodePasswordNeeded {
			if password == "" {
				state.State = StatePasswordRequired
				if err := s.pending.Save(ctx, userID, state); err != nil {
					return nil, errutil.Internal("failed to store auth state", err)
				}
				return &AuthStatus{State: StatePasswordRequired, PhoneHint: phoneHint(state.Phone)}, nil
			}
			auth, err = s.client.CheckPassword(ctx, *creds, password)
		}
	} else {
		auth, err = s.client.CheckPassword(ctx, *creds, password)
	}
	if err != nil {
		logger(ctx).Warn("telegram sign in failed", zap.String("user_hash", security.HashUserID(userID)), zap.Error(err))
		return nil, upstreamError("sign in", err)
	}

	creds.Session = auth.Session
	sess, err := s.storeSession(ctx, userID, state.Phone, auth.TelegramUserID, *creds)
	if err != nil {
		return nil, err
	}

	if err := s.pending.Delete(ctx, userID); err != nil {
		logger(ctx).Warn("failed to clear auth state", zap.Error(err))
	}
	if err := s.limiter.Reset(ctx, RateLimitScope, userID); err != nil {
		logger(ctx).Warn("failed to reset auth rate limit", zap.Error(err))
	}

	logger(ctx).Info("telegram session stored", zap.String("user_hash", security.HashUserID(userID)))
	return &AuthStatus{State: StateAuthenticated, PhoneHint: sess.PhoneHint, ExpiresAt: &sess.ExpiresAt}, nil
}

// storeSession upserts the user's session with a fresh salt and IV.
func (s *Service) storeSession(ctx context.Context, userID, phone, telegramUserID string, creds security.TelegramCredentials) (*TelegramSession, error) {
	bundle, err := s.cipher.EncryptTelegramCredentials(creds, userID)
	if err != nil {
		return nil, errutil.Internal("encryption failed", err)
	}

	now := s.now()
	rec := &TelegramSession{
		ID:             s.node.Generate().String(),
		UserID:         userID,
		TelegramUserID: telegramUserID,
		PhoneHint:      phoneHint(phone),
		IsActive:       true,
		ExpiresAt:      SessionExpiration(now),
		LastUsedAt:     &now,
	}
	rec.setBundle(bundle)

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"telegram_user_id", "phone_hint",
			"encrypted_session", "encrypted_api_hash", "encrypted_api_id", "salt", "iv",
			"is_active", "expires_at", "last_used_at", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return nil, errutil.Internal("failed to store telegram session", err)
	}
	return rec, nil
}

func (s *Service) GetAuthStatus(ctx context.Context, userID string) (*AuthStatus, error) {
	state, err := s.pending.Load(ctx, userID)
	if err != nil {
		return nil, errutil.Internal("failed to load auth state", err)
	}
	if state != nil {
		return &AuthStatus{State: state.State, PhoneHint: phoneHint(state.Phone)}, nil
	}

	sess, err := s.session.FindOne(ctx, &TelegramSession{UserID: userID})
	if err != nil {
		return nil, errutil.Internal("failed to load telegram session", err)
	}
	if sess == nil {
		return &AuthStatus{State: StateNone}, nil
	}

	status := &AuthStatus{State: StateAuthenticated, PhoneHint: sess.PhoneHint, ExpiresAt: &sess.ExpiresAt, LastUsedAt: sess.LastUsedAt}
	switch {
	case !sess.IsActive:
		status.State = StateRevoked
	case IsSessionExpired(sess.ExpiresAt, s.now()):
		if err := s.session.Update(ctx, sess.ID, map[string]any{"is_active": false}); err != nil {
			logger(ctx).Error("failed to deactivate expired session", zap.Error(err))
		}
		status.State = StateExpired
	}
	return status, nil
}

// DeleteAuth drops any unfinished login and the stored session.
func (s *Service) DeleteAuth(ctx context.Context, userID string) error {
	if err := s.pending.Delete(ctx, userID); err != nil {
		return errutil.Internal("failed to clear auth state", err)
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&TelegramSession{}).Error; err != nil {
		return errutil.Internal("failed to delete telegram session", err)
	}
	logger(ctx).Info("telegram auth deleted", zap.String("user_hash", security.HashUserID(userID)))
	return nil
}

func (s *Service) loadPending(ctx context.Context, userID string, allowed ...AuthState) (*pendingAuth, *security.TelegramCredentials, error) {
	state, err := s.pending.Load(ctx, userID)
	if err != nil {
		return nil, nil, errutil.Internal("failed to load auth state", err)
	}
	if state == nil {
		return nil, nil, errutil.BadRequest("no authentication in progress, start again", nil)
	}

	ok := false
	for _, a := range allowed {
		ok = ok || state.State == a
	}
	if !ok {
		return nil, nil, errutil.Conflict("authentication is in state "+string(state.State), nil)
	}

	creds, err := s.cipher.DecryptTelegramCredentials(&state.Bundle, userID)
	if err != nil {
		return nil, nil, errutil.Internal("decryption failed", err)
	}
	return state, creds, nil
}

func upstreamError(op string, err error) error {
	if errors.Is(err, ErrBridgeNotConfigured) {
		return errutil.New(errutil.StatusServiceUnavailable, "telegram is not configured", errutil.WithErr(err))
	}

	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch ue.Code {
		case CodePhoneCodeInvalid, CodePhoneCodeExpired, CodePasswordHashInvalid:
			return errutil.BadRequest(ue.Error(), err)
		}
		return errutil.BadGateway(ue.Error(), err)
	}
	return errutil.BadGateway("telegram "+op+" failed", err)
}

// normalizePhone strips formatting and requires 7 to 15 digits.
func normalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		case r == '+' && b.Len() == 0:
		default:
			return "", false
		}
	}
	digits := b.String()
	if len(digits) < 7 || len(digits) > 15 {
		return "", false
	}
	return "+" + digits, true
}

func phoneHint(phone string) string {
	if len(phone) < 4 {
		return ""
	}
	return "***" + phone[len(phone)-4:]
}
