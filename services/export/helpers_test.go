package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"ftc-platform/pkg/config"
	"ftc-platform/pkg/minio"
	"ftc-platform/services/application"
	"ftc-platform/services/evaluation"
	"ftc-platform/services/testutil"
	"ftc-platform/services/user"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var (
	created   = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	submitted = created.Add(48 * time.Hour)
)

type fakeStore struct {
	key  string
	body []byte
	err  error
}

func (f *fakeStore) Put(_ context.Context, key, contentType string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if contentType != "application/json" {
		return "", errors.New("unexpected content type")
	}
	f.key, f.body = key, body
	return "exports/" + key, nil
}

// newTestService seeds one event with four applications:
//
//	a1 accepted, fully answered, one ai and one human evaluation
//	a2 rejected, half answered, one ai evaluation
//	a3 draft, one ai evaluation
//	a4 submitted, no evaluations
func newTestService(t *testing.T, store minio.ObjectStore) *Service {
	t.Helper()

	models := append([]any{&user.User{}}, application.Models()...)
	models = append(models, evaluation.Models()...)
	db := testutil.NewTestDB(t, models...)
	node := testutil.NewNode(t)

	users := user.NewService(user.ServiceParams{DB: db, Node: node})
	apps := application.NewService(application.ServiceParams{DB: db})
	evals := evaluation.NewService(evaluation.ServiceParams{
		DB:       db,
		Node:     node,
		Sentinel: evaluation.NewSentinel(users, &config.Config{}),
	})

	require.NoError(t, db.Create(&application.Event{ID: "ev1", Name: "Demo Day", Slug: "demo-day"}).Error)
	require.NoError(t, db.Create(&[]application.Question{
		{ID: "q1", EventID: "ev1", Key: "github", Text: "GitHub profile", Type: application.QuestionURL, Required: true, DisplayOrder: 1},
		{ID: "q2", EventID: "ev1", Key: "pitch", Text: "Pitch", Type: application.QuestionTextarea, Required: true, DisplayOrder: 2},
	}).Error)

	at := submitted
	require.NoError(t, db.Create(&[]application.Application{
		{ID: "a1", EventID: "ev1", UserID: "user-one", Status: application.StatusAccepted, SubmittedAt: &at, CreatedAt: created},
		{ID: "a2", EventID: "ev1", UserID: "user-two", Status: application.StatusRejected, SubmittedAt: &at, CreatedAt: created.Add(time.Minute)},
		{ID: "a3", EventID: "ev1", UserID: "user-three", Status: application.StatusDraft, CreatedAt: created.Add(2 * time.Minute)},
		{ID: "a4", EventID: "ev1", UserID: "user-four", Status: application.StatusSubmitted, SubmittedAt: &at, CreatedAt: created.Add(3 * time.Minute)},
	}).Error)
	require.NoError(t, db.Create(&[]application.Response{
		{ID: "r1", ApplicationID: "a1", QuestionID: "q1", Answer: "https://github.com/example"},
		{ID: "r2", ApplicationID: "a1", QuestionID: "q2", Answer: "We build payment rails"},
		{ID: "r3", ApplicationID: "a2", QuestionID: "q1", Answer: "https://github.com/other"},
		{ID: "r4", ApplicationID: "a3", QuestionID: "q2", Answer: "draft pitch"},
	}).Error)

	for _, c := range []evaluation.Criterion{
		{ID: "c1", Name: "Technical depth", Category: evaluation.CategoryTechnical, Weight: 1, MinScore: 0, MaxScore: 10, IsActive: true},
		{ID: "c2", Name: "Project clarity", Category: evaluation.CategoryProject, Weight: 1, MinScore: 0, MaxScore: 10, IsActive: true},
	} {
		require.NoError(t, db.Create(&c).Error)
	}
	require.NoError(t, db.Create(&user.User{ID: "rev1", Email: "rev@example.com", Role: user.RoleReviewer}).Error)

	ctx := context.Background()
	create := func(app string, reviewer string, overall float64, rec evaluation.Recommendation, tech, project float64) {
		in := evaluation.EvaluationInput{
			ApplicationID:   app,
			Stage:           evaluation.StageScreening,
			OverallScore:    overall,
			Confidence:      4,
			Recommendation:  rec,
			OverallComments: "reviewed",
			Scores: []evaluation.ScoreInput{
				{CriteriaID: "c1", Score: tech, Reasoning: "code"},
				{CriteriaID: "c2", Score: project, Reasoning: "plan"},
			},
		}
		if reviewer == "" {
			in.AIMetadata = &evaluation.AIMetadataInput{ModelVersion: "model-2026-01", PromptTokens: 10, CompletionTokens: 5}
		}
		_, err := evals.CreateEvaluation(ctx, "ev1", in, reviewer)
		require.NoError(t, err)
	}
	create("a1", "", 80, evaluation.RecommendAccept, 8, 6)
	create("a1", "rev1", 40, evaluation.RecommendReject, 4, 2)
	create("a2", "", 30, evaluation.RecommendReject, 3, 3)
	create("a3", "", 60, evaluation.RecommendWaitlist, 6, 6)

	svc := NewService(ServiceParams{Applications: apps, Evaluations: evals, Store: store})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func recordIDs(exp *Export) []string {
	out := make([]string, 0, len(exp.Records))
	for _, r := range exp.Records {
		out = append(out, r.ApplicationID)
	}
	return out
}
