package evaluation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testCriteria() map[string]Criterion {
	return map[string]Criterion{
		"c1": {ID: "c1", Name: "Technical Skills", Category: CategoryTechnical, Weight: 2, MinScore: 0, MaxScore: 10},
		"c2": {ID: "c2", Name: "Project Quality", Category: CategoryProject, Weight: 1, MinScore: 0, MaxScore: 10},
		"c3": {ID: "c3", Name: "Video", Category: CategoryVideo, Weight: 0, MinScore: 1, MaxScore: 5},
	}
}

func TestNormalize(t *testing.T) {
	require.Equal(t, 0.5, Normalize(5, 0, 10))
	require.Equal(t, 0.0, Normalize(1, 1, 5))
	require.Equal(t, 1.0, Normalize(12, 0, 10))
	require.Equal(t, 0.0, Normalize(-3, 0, 10))
	require.Equal(t, 0.0, Normalize(7, 3, 3))
}

func TestWeightedScore(t *testing.T) {
	got, ok := WeightedScore([]CriterionScore{
		{CriterionID: "c1", Score: 8},
		{CriterionID: "c2", Score: 6},
		{CriterionID: "c3", Score: 5},
		{CriterionID: "unknown", Score: 10},
	}, testCriteria())
	require.True(t, ok)
	require.Equal(t, 73.33, got)

	_, ok = WeightedScore([]CriterionScore{{CriterionID: "c3", Score: 5}}, testCriteria())
	require.False(t, ok)
}

func TestBreakdownCoversEveryCategory(t *testing.T) {
	b := Breakdown([]CriterionScore{
		{CriterionID: "c1", Score: 8},
		{CriterionID: "c1", Score: 6},
		{CriterionID: "c2", Score: 10},
	}, testCriteria())

	require.Len(t, b, len(Categories))
	require.Equal(t, 2, b[CategoryTechnical].Count)
	require.Equal(t, 7.0, b[CategoryTechnical].AverageScore)
	require.Equal(t, 0.7, b[CategoryTechnical].Normalized)
	require.Equal(t, 1.0, b[CategoryProject].Normalized)
	require.Zero(t, b[CategoryEntrepreneurial].Count)
}

func TestCategoryDescription(t *testing.T) {
	for _, c := range Categories {
		require.NotEqual(t, defaultCategoryDescription, CategoryDescription(c), c)
	}
	require.Equal(t, defaultCategoryDescription, CategoryDescription("astrology"))
}

func TestRollup(t *testing.T) {
	computed := 70.0
	evals := []Evaluation{
		{ReviewerID: "ai", OverallScore: 80, Confidence: 4, Recommendation: RecommendAccept, ComputedScore: &computed,
			Scores: []CriterionScore{{CriterionID: "c1", Score: 8}}},
		{ReviewerID: "h1", OverallScore: 60, Confidence: 2, Recommendation: RecommendAccept},
		{ReviewerID: "h2", OverallScore: 40, Confidence: 3, Recommendation: RecommendReject},
	}
	isAI := func(e Evaluation) bool { return e.ReviewerID == "ai" }

	s := Rollup(evals, testCriteria(), isAI)
	require.Equal(t, 3, s.Count)
	require.Equal(t, 1, s.AIEvaluations)
	require.Equal(t, 2, s.HumanEvaluations)
	require.Equal(t, 60.0, s.AverageDeclaredScore)
	require.Equal(t, 3.0, s.AverageConfidence)
	require.NotNil(t, s.AverageComputedScore)
	require.Equal(t, 70.0, *s.AverageComputedScore)
	require.Equal(t, RecommendAccept, s.Consensus)
	require.Equal(t, 1, s.Categories[CategoryTechnical].Count)

	tie := Rollup(evals[1:], testCriteria(), isAI)
	require.Equal(t, RecommendNeedsMoreInfo, tie.Consensus)
	require.Nil(t, tie.AverageComputedScore)

	empty := Rollup(nil, nil, isAI)
	require.Zero(t, empty.Count)
	require.Empty(t, string(empty.Consensus))
	require.Len(t, empty.Categories, len(Categories))
}
