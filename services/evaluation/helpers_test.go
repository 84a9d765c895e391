package evaluation

import (
	"fmt"
	"testing"

	"ftc-platform/pkg/config"
	"ftc-platform/services/application"
	"ftc-platform/services/testutil"
	"ftc-platform/services/user"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	models := append([]any{&user.User{}}, application.Models()...)
	models = append(models, Models()...)
	db := testutil.NewTestDB(t, models...)

	node := testutil.NewNode(t)
	users := user.NewService(user.ServiceParams{DB: db, Node: node})
	svc := NewService(ServiceParams{
		DB:       db,
		Node:     node,
		Sentinel: NewSentinel(users, &config.Config{}),
	})

	require.NoError(t, db.Create(&application.Event{ID: "ev1", Name: "Demo Day", Slug: "demo-day"}).Error)
	require.NoError(t, db.Create(&application.Event{ID: "ev2", Name: "Other", Slug: "other"}).Error)
	for i := 1; i <= 25; i++ {
		require.NoError(t, db.Create(&application.Application{ID: appID(i), EventID: "ev1", UserID: fmt.Sprintf("u%d", i)}).Error)
	}
	require.NoError(t, db.Create(&application.Application{ID: "foreign", EventID: "ev2", UserID: "u99"}).Error)

	for _, c := range testCriteria() {
		c.IsActive = true
		require.NoError(t, db.Create(&c).Error)
	}
	return svc, db
}

func appID(i int) string { return fmt.Sprintf("app%02d", i) }

func validInput(app string) EvaluationInput {
	return EvaluationInput{
		ApplicationID:   app,
		Stage:           StageScreening,
		OverallScore:    80,
		Confidence:      4,
		Recommendation:  RecommendAccept,
		OverallComments: "solid applicant",
		Scores: []ScoreInput{
			{CriteriaID: "c1", Score: 8, Reasoning: "strong code samples"},
			{CriteriaID: "c2", Score: 6, Reasoning: "early stage"},
		},
		AIMetadata: &AIMetadataInput{ModelVersion: "model-2026-01", ProcessingTimeMs: 100, PromptTokens: 30, CompletionTokens: 20},
	}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
