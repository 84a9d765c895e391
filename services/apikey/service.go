package apikey

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ftc-platform/pkg/access"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/repository"
	"ftc-platform/pkg/security"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	KeyPrefix    = "ftck_"
	secretLength = 32
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	now  func() time.Time
	repo repository.Repository[APIKey]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		now:  time.Now,
		repo: repository.ProvideStore[APIKey](p.DB),
	}
}

type CreateInput struct {
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expiresAt"`
	CreatedBy *string    `json:"-"`
}

// Created carries the raw key, which is only ever returned here.
type Created struct {
	Key *APIKey `json:"apiKey"`
	Raw string  `json:"key"`
}

func (in CreateInput) validate() []errutil.Detail {
	var out []errutil.Detail
	if strings.TrimSpace(in.Name) == "" {
		out = append(out, errutil.Detail{Field: "name", Message: "is required"})
	}
	if len(in.Scopes) == 0 {
		out = append(out, errutil.Detail{Field: "scopes", Message: "at least one scope is required"})
	}
	for i, s := range in.Scopes {
		if !access.ValidScope(s) {
			out = append(out, errutil.Detail{Field: fmt.Sprintf("scopes[%d]", i), Message: "unknown scope " + s})
		}
	}
	return out
}

// CreateKey generates a key of the form "{keyID}.{secret}" and stores only
// the argon2id hash of the secret.
func (s *Service) CreateKey(ctx context.Context, in CreateInput) (*Created, error) {
	if details := in.validate(); len(details) > 0 {
		return nil, errutil.Validation(details...)
	}

	id, err := security.GenerateBase64Secret(9)
	if err != nil {
		return nil, errutil.Internal("failed to generate key", err)
	}
	secret, err := security.GenerateBase64Secret(secretLength)
	if err != nil {
		return nil, errutil.Internal("failed to generate key", err)
	}

	raw := KeyPrefix + id + "." + secret
	key, err := s.store(ctx, raw, in)
	if err != nil {
		return nil, err
	}
	return &Created{Key: key, Raw: raw}, nil
}

// EnsureKey stores a key provisioned out of band. An existing key id is left untouched.
func (s *Service) EnsureKey(ctx context.Context, raw string, in CreateInput) (*APIKey, error) {
	keyID, _, ok := splitKey(raw)
	if !ok {
		return nil, errutil.BadRequest("api key must have the form keyId.secret", nil)
	}
	existing, err := s.repo.FindOne(ctx, &APIKey{KeyID: keyID})
	if err != nil {
		return nil, errutil.Internal("failed to load api key", err)
	}
	if existing != nil {
		return existing, nil
	}
	if details := in.validate(); len(details) > 0 {
		return nil, errutil.Validation(details...)
	}
	return s.store(ctx, raw, in)
}

func (s *Service) store(ctx context.Context, raw string, in CreateInput) (*APIKey, error) {
	keyID, secret, _ := splitKey(raw)
	hash, err := security.HashArgon2(secret)
	if err != nil {
		return nil, errutil.Internal("failed to hash api key", err)
	}

	key := &APIKey{
		ID:         s.node.Generate().String(),
		Name:       strings.TrimSpace(in.Name),
		KeyID:      keyID,
		SecretHash: hash,
		Scopes:     Scopes(in.Scopes),
		Status:     StatusActive,
		CreatedBy:  in.CreatedBy,
		ExpiresAt:  in.ExpiresAt,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, errutil.Internal("failed to store api key", err)
	}

	zap.L().Info("api key created", zap.String("key_id", keyID), zap.Strings("scopes", in.Scopes))
	return key, nil
}

// Authenticate resolves a raw key to its principal.
func (s *Service) Authenticate(ctx context.Context, raw string) (*access.Principal, error) {
	invalid := errutil.Unauthorized("invalid api key", nil)

	keyID, secret, ok := splitKey(raw)
	if !ok {
		return nil, invalid
	}

	key, err := s.repo.FindOne(ctx, &APIKey{KeyID: keyID})
	if err != nil {
		return nil, errutil.Internal("failed to load api key", err)
	}
	if key == nil || key.Status != StatusActive {
		return nil, invalid
	}
	if key.ExpiresAt != nil && s.now().After(*key.ExpiresAt) {
		return nil, errutil.Unauthorized("api key expired", nil)
	}

	match, err := security.VerifyArgon2(secret, key.SecretHash)
	if err != nil {
		zap.L().Error("stored api key hash is malformed", zap.String("key_id", keyID), zap.Error(err))
		return nil, invalid
	}
	if !match {
		return nil, invalid
	}

	now := s.now()
	if err := s.repo.Update(ctx, key.ID, map[string]any{"last_used_at": now}); err != nil {
		zap.L().Warn("failed to touch api key", zap.String("key_id", keyID), zap.Error(err))
	}

	return &access.Principal{KeyID: key.KeyID, Name: key.Name, Scopes: []string(key.Scopes)}, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string) error {
	key, err := s.repo.FindOne(ctx, &APIKey{KeyID: keyID})
	if err != nil {
		return errutil.Internal("failed to load api key", err)
	}
	if key == nil {
		return errutil.NotFound("api key not found", nil)
	}
	if err := s.repo.Update(ctx, key.ID, map[string]any{"status": StatusRevoked}); err != nil {
		return errutil.Internal("failed to revoke api key", err)
	}
	zap.L().Info("api key revoked", zap.String("key_id", keyID))
	return nil
}

func splitKey(raw string) (keyID, secret string, ok bool) {
	keyID, secret, ok = strings.Cut(strings.TrimSpace(raw), ".")
	return keyID, secret, ok && keyID != "" && secret != ""
}
