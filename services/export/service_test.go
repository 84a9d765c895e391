package export

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"ftc-platform/pkg/errutil"
	"ftc-platform/services/evaluation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrainingDataSelection(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		opts func(*Options)
		want []string
	}{
		{"defaults", func(*Options) {}, []string{"a1", "a2"}},
		{"in progress only", func(o *Options) { o.IncludeCompleted, o.IncludeInProgress = false, true }, []string{"a3"}},
		{"everything", func(o *Options) { o.IncludeInProgress = true }, []string{"a1", "a2", "a3"}},
		{"no evaluation floor", func(o *Options) { o.MinEvaluations = 0 }, []string{"a1", "a2", "a4"}},
		{"two evaluations", func(o *Options) { o.MinEvaluations = 2 }, []string{"a1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			tc.opts(&opts)
			exp, err := svc.TrainingData(ctx, "ev1", opts)
			require.NoError(t, err)
			assert.Equal(t, tc.want, recordIDs(exp))
			assert.Equal(t, len(tc.want), exp.Count)
		})
	}
}

func TestTrainingDataDetailed(t *testing.T) {
	svc := newTestService(t, nil)

	exp, err := svc.TrainingData(context.Background(), "ev1", DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "Demo Day", exp.EventName)
	require.Len(t, exp.Criteria, 2)
	require.Len(t, exp.Records, 2)

	a1 := exp.Records[0]
	assert.Equal(t, "accept", a1.Label)
	require.NotNil(t, a1.Applicant)
	assert.True(t, a1.Applicant.IsComplete)
	assert.True(t, a1.Applicant.HasSubmitted)
	assert.Equal(t, 100, a1.Applicant.CompletionPercentage)
	assert.Equal(t, 2, a1.Applicant.RequiredQuestions)
	require.NotNil(t, a1.Applicant.HoursToSubmit)
	assert.Equal(t, 48.0, *a1.Applicant.HoursToSubmit)
	assert.Equal(t, "https://github.com/example", a1.Responses["github"])

	require.Len(t, a1.Evaluations, 2)
	ai, human := a1.Evaluations[0], a1.Evaluations[1]
	assert.True(t, ai.IsAI)
	assert.NotNil(t, ai.AIMetadata)
	assert.False(t, human.IsAI)
	assert.Equal(t, 0.8, ai.Scores[0].Normalized)
	assert.Equal(t, evaluation.CategoryTechnical, ai.Scores[0].Category)

	require.NotNil(t, a1.Summary)
	assert.Equal(t, 1, a1.Summary.AIEvaluations)
	assert.Equal(t, 1, a1.Summary.HumanEvaluations)
	// one accept, one reject
	assert.Equal(t, evaluation.RecommendNeedsMoreInfo, a1.Summary.Consensus)

	a2 := exp.Records[1]
	assert.Equal(t, "reject", a2.Label)
	assert.Equal(t, 50, a2.Applicant.CompletionPercentage)
	assert.False(t, a2.Applicant.IsComplete)

	body, err := json.Marshal(exp)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(body), "user-one"), "applicant identity leaked")
	assert.False(t, strings.Contains(string(body), "rev@example.com"), "reviewer identity leaked")
}

func TestTrainingDataMinimal(t *testing.T) {
	svc := newTestService(t, nil)

	opts := DefaultOptions()
	opts.Format = FormatMinimal
	exp, err := svc.TrainingData(context.Background(), "ev1", opts)
	require.NoError(t, err)
	require.Nil(t, exp.Criteria)

	for _, r := range exp.Records {
		assert.NotNil(t, r.Summary)
		assert.Nil(t, r.Applicant)
		assert.Nil(t, r.Responses)
		assert.Nil(t, r.Evaluations)
		assert.Nil(t, r.Features)
	}
}

func TestTrainingDataMLReady(t *testing.T) {
	svc := newTestService(t, nil)

	opts := DefaultOptions()
	opts.Format = FormatMLReady
	exp, err := svc.TrainingData(context.Background(), "ev1", opts)
	require.NoError(t, err)

	a1 := exp.Records[0]
	require.Nil(t, a1.Responses)
	require.Nil(t, a1.Applicant)
	f := a1.Features
	assert.Equal(t, 1.0, f["completion"])
	assert.Equal(t, 1.0, f["is_complete"])
	assert.Equal(t, 2.0, f["evaluation_count"])
	assert.Equal(t, 80.0, f["ai_avg_score"])
	assert.Equal(t, 40.0, f["human_avg_score"])
	assert.Equal(t, 0.6, f["category_technical"])
	assert.Equal(t, 0.4, f["category_project"])
	assert.Equal(t, 0.0, f["category_video"])
	assert.Equal(t, 0.5, f["recommendation_accept"])

	// every record has the same columns
	require.Len(t, exp.Records[1].Features, len(f))
}

func TestTrainingDataErrors(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	opts := DefaultOptions()
	opts.Format = "csv"
	opts.MinEvaluations = -1
	_, err := svc.TrainingData(ctx, "ev1", opts)
	require.True(t, errutil.IsCode(err, errutil.StatusValidationFailed))
	require.Len(t, errutil.From(err).Details, 2)

	opts = DefaultOptions()
	opts.IncludeCompleted = false
	_, err = svc.TrainingData(ctx, "ev1", opts)
	require.True(t, errutil.IsCode(err, errutil.StatusValidationFailed))

	_, err = svc.TrainingData(ctx, "missing", DefaultOptions())
	require.True(t, errutil.IsCode(err, errutil.StatusNotFound))
}

func TestArchive(t *testing.T) {
	ctx := context.Background()

	svc := newTestService(t, nil)
	exp, err := svc.TrainingData(ctx, "ev1", DefaultOptions())
	require.NoError(t, err)
	_, err = svc.Archive(ctx, exp)
	require.True(t, errutil.IsCode(err, errutil.StatusServiceUnavailable))

	store := &fakeStore{}
	svc.store = store
	location, err := svc.Archive(ctx, exp)
	require.NoError(t, err)
	require.Equal(t, "training-data/ev1/20260301T120000Z-detailed.json", store.key)
	require.Equal(t, "exports/"+store.key, location)
	require.Equal(t, location, exp.ArchiveKey)

	var decoded Export
	require.NoError(t, json.Unmarshal(store.body, &decoded))
	require.Equal(t, 2, decoded.Count)

	svc.store = &fakeStore{err: errors.New("bucket unavailable")}
	_, err = svc.Archive(ctx, exp)
	require.True(t, errutil.IsCode(err, errutil.StatusBadGateway))
}
