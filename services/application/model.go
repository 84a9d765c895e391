package application

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusAccepted    Status = "accepted"
	StatusRejected    Status = "rejected"
	StatusWaitlisted  Status = "waitlisted"
	StatusWithdrawn   Status = "withdrawn"
)

// InProgress reports whether the applicant is still filling the form.
func (s Status) InProgress() bool {
	return s == StatusDraft
}

type QuestionType string

const (
	QuestionText        QuestionType = "text"
	QuestionTextarea    QuestionType = "textarea"
	QuestionEmail       QuestionType = "email"
	QuestionURL         QuestionType = "url"
	QuestionPhone       QuestionType = "phone"
	QuestionNumber      QuestionType = "number"
	QuestionSelect      QuestionType = "select"
	QuestionMultiSelect QuestionType = "multiselect"
	QuestionCheckbox    QuestionType = "checkbox"
)

func (t QuestionType) IsChoice() bool {
	return t == QuestionSelect || t == QuestionMultiSelect
}

type Event struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Slug      string    `gorm:"column:slug;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Event) TableName() string { return "events" }

type Application struct {
	ID          string     `gorm:"column:id;primaryKey"`
	EventID     string     `gorm:"column:event_id;index;not null"`
	UserID      string     `gorm:"column:user_id;index;not null"`
	Status      Status     `gorm:"column:status;not null;default:'draft'"`
	SubmittedAt *time.Time `gorm:"column:submitted_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Responses []Response `gorm:"foreignKey:ApplicationID"`
}

func (Application) TableName() string { return "applications" }

// Question belongs to one event's form. ConditionalOnKey/ConditionalOnValue
// and RequiredWhen make a required question apply only in some cases.
type Question struct {
	ID                 string                      `gorm:"column:id;primaryKey"`
	EventID            string                      `gorm:"column:event_id;index;not null"`
	Key                string                      `gorm:"column:question_key;not null"`
	Text               string                      `gorm:"column:text;not null"`
	Type               QuestionType                `gorm:"column:type;not null"`
	Required           bool                        `gorm:"column:required;not null;default:false"`
	Options            datatypes.JSONSlice[string] `gorm:"column:options"`
	DisplayOrder       int                         `gorm:"column:display_order;not null;default:0"`
	ConditionalOnKey   *string                     `gorm:"column:conditional_on_key"`
	ConditionalOnValue *string                     `gorm:"column:conditional_on_value"`
	RequiredWhen       *string                     `gorm:"column:required_when"`
	CreatedAt          time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

func (Question) TableName() string { return "questions" }

type Response struct {
	ID            string    `gorm:"column:id;primaryKey"`
	ApplicationID string    `gorm:"column:application_id;not null;uniqueIndex:idx_response_application_question"`
	QuestionID    string    `gorm:"column:question_id;not null;uniqueIndex:idx_response_application_question"`
	Answer        string    `gorm:"column:answer"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Response) TableName() string { return "responses" }

// Completion is the result of ComputeCompletion.
type Completion struct {
	CompletionPercentage int      `json:"completionPercentage"`
	CompletedFields      int      `json:"completedFields"`
	TotalFields          int      `json:"totalFields"`
	MissingFields        []string `json:"missingFields"`
	IsComplete           bool     `json:"isComplete"`
}

func Models() []any {
	return []any{&Event{}, &Application{}, &Question{}, &Response{}}
}
