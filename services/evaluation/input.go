package evaluation

import (
	"fmt"
	"strings"

	"ftc-platform/pkg/errutil"
)

const (
	MinOverallScore = 0
	MaxOverallScore = 100
	MinConfidence   = 1
	MaxConfidence   = 5

	ChunkSize    = 10
	MaxBatchSize = 500
)

type ScoreInput struct {
	CriteriaID string  `json:"criteriaId"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
}

type AIMetadataInput struct {
	ModelVersion     string         `json:"modelVersion"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	PromptTokens     int            `json:"promptTokens"`
	CompletionTokens int            `json:"completionTokens"`
	TotalTokens      int            `json:"totalTokens"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// Tokens prefers the declared total and falls back to prompt+completion.
func (m *AIMetadataInput) Tokens() int {
	if m == nil {
		return 0
	}
	if m.TotalTokens > 0 {
		return m.TotalTokens
	}
	return m.PromptTokens + m.CompletionTokens
}

type EvaluationInput struct {
	ApplicationID    string           `json:"applicationId"`
	Stage            Stage            `json:"stage"`
	OverallScore     float64          `json:"overallScore"`
	Confidence       int              `json:"confidence"`
	Recommendation   Recommendation   `json:"recommendation"`
	OverallComments  string           `json:"overallComments"`
	TimeSpentMinutes *int             `json:"timeSpentMinutes,omitempty"`
	Scores           []ScoreInput     `json:"scores"`
	AIMetadata       *AIMetadataInput `json:"aiMetadata,omitempty"`
}

type BatchInput struct {
	Evaluations   []EvaluationInput `json:"evaluations"`
	BatchMetadata map[string]any    `json:"batchMetadata,omitempty"`
}

// Validate checks shape and ranges. prefix is prepended to field names so
// batch items report "evaluations[3].confidence".
func (in EvaluationInput) Validate(prefix string) []errutil.Detail {
	var out []errutil.Detail
	add := func(field, msg string) {
		out = append(out, errutil.Detail{Field: prefix + field, Message: msg})
	}

	if strings.TrimSpace(in.ApplicationID) == "" {
		add("applicationId", "is required")
	}
	if !in.Stage.Valid() {
		add("stage", "must be one of screening, detailed, video, consensus, final")
	}
	if in.OverallScore < MinOverallScore || in.OverallScore > MaxOverallScore {
		add("overallScore", fmt.Sprintf("must be between %d and %d", MinOverallScore, MaxOverallScore))
	}
	if in.Confidence < MinConfidence || in.Confidence > MaxConfidence {
		add("confidence", fmt.Sprintf("must be between %d and %d", MinConfidence, MaxConfidence))
	}
	if !in.Recommendation.Valid() {
		add("recommendation", "must be one of accept, reject, waitlist, needs_more_info")
	}
	if in.TimeSpentMinutes != nil && *in.TimeSpentMinutes < 0 {
		add("timeSpentMinutes", "must not be negative")
	}
	if len(in.Scores) == 0 {
		add("scores", "at least one criterion score is required")
	}

	seen := make(map[string]struct{}, len(in.Scores))
	for i, s := range in.Scores {
		field := fmt.Sprintf("scores[%d].criteriaId", i)
		if strings.TrimSpace(s.CriteriaID) == "" {
			add(field, "is required")
			continue
		}
		if _, dup := seen[s.CriteriaID]; dup {
			add(field, "duplicate criterion")
		}
		seen[s.CriteriaID] = struct{}{}
	}

	if m := in.AIMetadata; m != nil {
		if m.ProcessingTimeMs < 0 {
			add("aiMetadata.processingTimeMs", "must not be negative")
		}
		if m.PromptTokens < 0 || m.CompletionTokens < 0 || m.TotalTokens < 0 {
			add("aiMetadata.totalTokens", "token counts must not be negative")
		}
	}
	return out
}

// checkScores validates each score against its criterion's range. Missing
// criteria are reported separately as not found.
func checkScores(in EvaluationInput, criteria map[string]Criterion, prefix string) (missing []string, details []errutil.Detail) {
	for i, s := range in.Scores {
		c, ok := criteria[s.CriteriaID]
		if !ok {
			missing = append(missing, s.CriteriaID)
			continue
		}
		if s.Score < c.MinScore || s.Score > c.MaxScore {
			details = append(details, errutil.Detail{
				Field:   fmt.Sprintf("%sscores[%d].score", prefix, i),
				Message: fmt.Sprintf("must be between %g and %g for %s", c.MinScore, c.MaxScore, c.Name),
			})
		}
	}
	return missing, details
}
