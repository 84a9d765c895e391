package user

import (
	"context"
	"errors"
	"strings"

	"ftc-platform/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("user.service", fx.Provide(NewService))

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[User]
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
		repo: repository.ProvideStore[User](p.DB),
	}
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindOne(ctx, &User{Email: strings.ToLower(strings.TrimSpace(email))})
}

// EnsureByEmail returns the user with email, creating it with defaults when absent.
// A concurrent insert from another process loses on the unique email index and
// falls back to reading the winner's row.
func (s *Service) EnsureByEmail(ctx context.Context, email string, defaults User) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("user: email is required")
	}

	defaults.ID = s.node.Generate().String()
	defaults.Email = email

	var out User
	err := s.db.WithContext(ctx).
		Where(User{Email: email}).
		Attrs(defaults).
		FirstOrCreate(&out).Error
	if err == nil {
		return &out, nil
	}

	existing, findErr := s.FindByEmail(ctx, email)
	if findErr != nil || existing == nil {
		return nil, err
	}
	return existing, nil
}
