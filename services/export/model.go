package export

import (
	"time"

	"ftc-platform/services/application"
	"ftc-platform/services/evaluation"
)

type Format string

const (
	FormatDetailed Format = "detailed"
	FormatMinimal  Format = "minimal"
	FormatMLReady  Format = "ml-ready"
)

func (f Format) Valid() bool {
	switch f {
	case FormatDetailed, FormatMinimal, FormatMLReady:
		return true
	}
	return false
}

type Options struct {
	IncludeCompleted  bool   `json:"includeCompleted"`
	IncludeInProgress bool   `json:"includeInProgress"`
	MinEvaluations    int    `json:"minEvaluations"`
	Format            Format `json:"format"`
	Archive           bool   `json:"archive"`
}

func DefaultOptions() Options {
	return Options{
		IncludeCompleted: true,
		MinEvaluations:   1,
		Format:           FormatDetailed,
	}
}

// Applicant carries only derived facts about the applicant, never identity.
type Applicant struct {
	HasSubmitted         bool     `json:"hasSubmitted"`
	IsComplete           bool     `json:"isComplete"`
	CompletionPercentage int      `json:"completionPercentage"`
	AnsweredQuestions    int      `json:"answeredQuestions"`
	RequiredQuestions    int      `json:"requiredQuestions"`
	HoursToSubmit        *float64 `json:"hoursToSubmit,omitempty"`
}

type Score struct {
	CriterionID string              `json:"criteriaId"`
	Name        string              `json:"name,omitempty"`
	Category    evaluation.Category `json:"category,omitempty"`
	Score       float64             `json:"score"`
	Normalized  float64             `json:"normalized"`
	Reasoning   string              `json:"reasoning,omitempty"`
}

type Evaluation struct {
	Stage          evaluation.Stage          `json:"stage"`
	IsAI           bool                      `json:"isAI"`
	OverallScore   float64                   `json:"overallScore"`
	ComputedScore  *float64                  `json:"computedScore,omitempty"`
	Confidence     int                       `json:"confidence"`
	Recommendation evaluation.Recommendation `json:"recommendation"`
	Comments       string                    `json:"comments,omitempty"`
	Scores         []Score                   `json:"scores"`
	AIMetadata     *evaluation.AIMetadata    `json:"aiMetadata,omitempty"`
}

// Record is one application in the export. Which fields are set depends on
// the format.
type Record struct {
	ApplicationID string              `json:"applicationId"`
	Status        application.Status  `json:"status"`
	Label         string              `json:"label,omitempty"`
	SubmittedAt   *time.Time          `json:"submittedAt,omitempty"`
	Applicant     *Applicant          `json:"applicant,omitempty"`
	Responses     map[string]string   `json:"responses,omitempty"`
	Evaluations   []Evaluation        `json:"evaluations,omitempty"`
	Summary       *evaluation.Summary `json:"summary,omitempty"`
	Features      map[string]float64  `json:"features,omitempty"`
}

type Export struct {
	EventID     string                 `json:"eventId"`
	EventName   string                 `json:"eventName"`
	Format      Format                 `json:"format"`
	Options     Options                `json:"options"`
	GeneratedAt time.Time              `json:"generatedAt"`
	Count       int                    `json:"count"`
	Criteria    []evaluation.Criterion `json:"criteria,omitempty"`
	Records     []Record               `json:"records"`
	ArchiveKey  string                 `json:"archiveKey,omitempty"`
}
