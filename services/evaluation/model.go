package evaluation

import (
	"time"

	"ftc-platform/services/user"

	"gorm.io/datatypes"
)

type Stage string

const (
	StageScreening Stage = "screening"
	StageDetailed  Stage = "detailed"
	StageVideo     Stage = "video"
	StageConsensus Stage = "consensus"
	StageFinal     Stage = "final"
)

func (s Stage) Valid() bool {
	switch s {
	case StageScreening, StageDetailed, StageVideo, StageConsensus, StageFinal:
		return true
	}
	return false
}

type Recommendation string

const (
	RecommendAccept        Recommendation = "accept"
	RecommendReject        Recommendation = "reject"
	RecommendWaitlist      Recommendation = "waitlist"
	RecommendNeedsMoreInfo Recommendation = "needs_more_info"
)

func (r Recommendation) Valid() bool {
	switch r {
	case RecommendAccept, RecommendReject, RecommendWaitlist, RecommendNeedsMoreInfo:
		return true
	}
	return false
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Category string

const (
	CategoryTechnical       Category = "technical"
	CategoryProject         Category = "project"
	CategoryCommunityFit    Category = "community_fit"
	CategoryVideo           Category = "video"
	CategoryEntrepreneurial Category = "entrepreneurial"
	CategoryOverall         Category = "overall"
)

// Categories lists every category in display order.
var Categories = [...]Category{
	CategoryTechnical,
	CategoryProject,
	CategoryCommunityFit,
	CategoryVideo,
	CategoryEntrepreneurial,
	CategoryOverall,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Criterion is global, not per event. Weights are coefficients and are not
// required to sum to one.
type Criterion struct {
	ID           string    `gorm:"column:id;primaryKey" json:"id"`
	Name         string    `gorm:"column:name;uniqueIndex;not null" json:"name"`
	Description  string    `gorm:"column:description" json:"description"`
	Category     Category  `gorm:"column:category;not null" json:"category"`
	Weight       float64   `gorm:"column:weight;not null;default:1" json:"weight"`
	MinScore     float64   `gorm:"column:min_score;not null;default:0" json:"minScore"`
	MaxScore     float64   `gorm:"column:max_score;not null;default:10" json:"maxScore"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"isActive"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0" json:"displayOrder"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Criterion) TableName() string { return "evaluation_criteria" }

// Evaluation is one reviewer's assessment of an application at one stage.
// OverallScore is the declared value; ComputedScore is derived from the
// criterion scores and stored next to it.
type Evaluation struct {
	ID               string         `gorm:"column:id;primaryKey" json:"id"`
	ApplicationID    string         `gorm:"column:application_id;not null;uniqueIndex:idx_evaluation_reviewer_stage" json:"applicationId"`
	ReviewerID       string         `gorm:"column:reviewer_id;not null;index;uniqueIndex:idx_evaluation_reviewer_stage" json:"reviewerId"`
	Stage            Stage          `gorm:"column:stage;not null;uniqueIndex:idx_evaluation_reviewer_stage" json:"stage"`
	Status           Status         `gorm:"column:status;not null;default:'pending'" json:"status"`
	OverallScore     float64        `gorm:"column:overall_score" json:"overallScore"`
	ComputedScore    *float64       `gorm:"column:computed_score" json:"computedScore"`
	Confidence       int            `gorm:"column:confidence" json:"confidence"`
	Recommendation   Recommendation `gorm:"column:recommendation" json:"recommendation"`
	OverallComments  string         `gorm:"column:overall_comments" json:"overallComments"`
	TimeSpentMinutes *int           `gorm:"column:time_spent_minutes" json:"timeSpentMinutes,omitempty"`
	CompletedAt      *time.Time     `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`

	Reviewer   *user.User       `gorm:"foreignKey:ReviewerID" json:"reviewer,omitempty"`
	Scores     []CriterionScore `gorm:"foreignKey:EvaluationID" json:"scores"`
	AIMetadata *AIMetadata      `gorm:"foreignKey:EvaluationID" json:"aiMetadata,omitempty"`
}

func (Evaluation) TableName() string { return "evaluations" }

type CriterionScore struct {
	ID           string  `gorm:"column:id;primaryKey" json:"id"`
	EvaluationID string  `gorm:"column:evaluation_id;not null;uniqueIndex:idx_score_evaluation_criterion" json:"evaluationId"`
	CriterionID  string  `gorm:"column:criterion_id;not null;uniqueIndex:idx_score_evaluation_criterion" json:"criteriaId"`
	Score        float64 `gorm:"column:score;not null" json:"score"`
	Reasoning    string  `gorm:"column:reasoning" json:"reasoning"`
	Position     int     `gorm:"column:position;not null;default:0" json:"-"`

	Criterion *Criterion `gorm:"foreignKey:CriterionID" json:"criterion,omitempty"`
}

func (CriterionScore) TableName() string { return "evaluation_scores" }

// AIMetadata is the typed side record for machine-generated evaluations.
type AIMetadata struct {
	EvaluationID     string         `gorm:"column:evaluation_id;primaryKey" json:"-"`
	ModelVersion     string         `gorm:"column:model_version" json:"modelVersion"`
	ProcessingTimeMs int64          `gorm:"column:processing_time_ms" json:"processingTimeMs"`
	PromptTokens     int            `gorm:"column:prompt_tokens" json:"promptTokens"`
	CompletionTokens int            `gorm:"column:completion_tokens" json:"completionTokens"`
	TotalTokens      int            `gorm:"column:total_tokens" json:"totalTokens"`
	BatchID          *string        `gorm:"column:batch_id;index" json:"batchId,omitempty"`
	Extra            datatypes.JSON `gorm:"column:extra" json:"extra,omitempty"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (AIMetadata) TableName() string { return "evaluation_ai_metadata" }

// Batch records one batch ingestion call.
type Batch struct {
	ID         string         `gorm:"column:id;primaryKey" json:"id"`
	EventID    string         `gorm:"column:event_id;index;not null" json:"eventId"`
	Total      int            `gorm:"column:total" json:"total"`
	Successful int            `gorm:"column:successful" json:"successful"`
	Failed     int            `gorm:"column:failed" json:"failed"`
	Metadata   datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Batch) TableName() string { return "evaluation_batches" }

// Models is every table owned by this package, for migration.
func Models() []any {
	return []any{&Criterion{}, &Evaluation{}, &CriterionScore{}, &AIMetadata{}, &Batch{}}
}
