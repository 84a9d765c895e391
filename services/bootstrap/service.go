package bootstrap

import (
	"context"
	"fmt"

	"ftc-platform/pkg/config"
	"ftc-platform/services/apikey"
	"ftc-platform/services/application"
	"ftc-platform/services/credential"
	"ftc-platform/services/evaluation"
	"ftc-platform/services/user"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCriteria is the rubric created on first start.
var DefaultCriteria = []evaluation.Criterion{
	{Name: "Technical Skills", Description: "Depth of engineering experience and code quality", Category: evaluation.CategoryTechnical, Weight: 1.5, MaxScore: 10, DisplayOrder: 1},
	{Name: "Project Quality", Description: "Scope, traction and execution of the submitted project", Category: evaluation.CategoryProject, Weight: 1.5, MaxScore: 10, DisplayOrder: 2},
	{Name: "Community Fit", Description: "Willingness to contribute to and learn from the cohort", Category: evaluation.CategoryCommunityFit, Weight: 1, MaxScore: 10, DisplayOrder: 3},
	{Name: "Video Pitch", Description: "Clarity and conviction of the video pitch", Category: evaluation.CategoryVideo, Weight: 1, MaxScore: 10, DisplayOrder: 4},
	{Name: "Entrepreneurial Drive", Description: "Ownership, resilience and ambition", Category: evaluation.CategoryEntrepreneurial, Weight: 1, MaxScore: 10, DisplayOrder: 5},
	{Name: "Overall Impression", Description: "Holistic reviewer judgement", Category: evaluation.CategoryOverall, Weight: 0.5, MaxScore: 10, DisplayOrder: 6},
}

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	config   *config.Config
	sentinel *evaluation.Sentinel
	apikeys  *apikey.Service
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Config   *config.Config
	Sentinel *evaluation.Sentinel
	APIKeys  *apikey.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		config:   p.Config,
		sentinel: p.Sentinel,
		apikeys:  p.APIKeys,
	}
}

func Models() []any {
	models := []any{&user.User{}, &apikey.APIKey{}}
	models = append(models, application.Models()...)
	models = append(models, evaluation.Models()...)
	models = append(models, credential.Models()...)
	return models
}

// Run migrates the schema and creates the rows every deployment needs.
// Each step is idempotent.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Migrate(ctx); err != nil {
		return err
	}
	if err := s.SeedCriteria(ctx); err != nil {
		return err
	}

	reviewer, err := s.sentinel.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("ensure ai reviewer: %w", err)
	}
	zap.L().Info("[bootstrap] ai reviewer ready", zap.String("user_id", reviewer.ID))

	return s.EnsureAPIKey(ctx)
}

func (s *Service) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		zap.L().Error("[bootstrap] migration failed", zap.Error(err))
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Service) SeedCriteria(ctx context.Context) error {
	rows := make([]evaluation.Criterion, len(DefaultCriteria))
	for i, c := range DefaultCriteria {
		c.ID = s.node.Generate().String()
		c.IsActive = true
		rows[i] = c
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows)
	if res.Error != nil {
		return fmt.Errorf("seed criteria: %w", res.Error)
	}
	zap.L().Info("[bootstrap] criteria seeded", zap.Int64("created", res.RowsAffected))
	return nil
}

// EnsureAPIKey stores BOOTSTRAP.API_KEY when configured.
func (s *Service) EnsureAPIKey(ctx context.Context) error {
	raw := s.config.Bootstrap.APIKey
	if raw == "" {
		return nil
	}

	key, err := s.apikeys.EnsureKey(ctx, raw, apikey.CreateInput{
		Name:   s.config.Bootstrap.APIKeyName,
		Scopes: s.config.Bootstrap.APIKeyScopes,
	})
	if err != nil {
		return fmt.Errorf("bootstrap api key: %w", err)
	}
	zap.L().Info("[bootstrap] api key ready", zap.String("key_id", key.KeyID))
	return nil
}
