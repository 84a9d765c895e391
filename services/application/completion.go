package application

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"ftc-platform/pkg/celengine"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	technicalSkillsKey      = "technical_skills"
	technicalSkillsOtherKey = "technical_skills_other"
	otherOption             = "Other"
)

var placeholders = map[string]struct{}{
	"please select":    {},
	"select an option": {},
	"select...":        {},
	"choose an option": {},
	"null":             {},
	"undefined":        {},
	"none selected":    {},
}

// legacyConditionalMarkers flag follow-up questions by their copy. Only used
// for questions that carry no declarative condition.
var legacyConditionalMarkers = []string{"specify", "if you answered"}

// NormalizeKey maps question keys written as labels ("Technical Skills") onto
// their snake_case form.
func NormalizeKey(key string) string {
	return strings.ReplaceAll(slug.Make(key), "-", "_")
}

type Calculator struct {
	cel *celengine.Engine
}

// NewCalculator accepts a nil engine; required_when expressions then fail open
// and the question stays required.
func NewCalculator(engine *celengine.Engine) *Calculator {
	return &Calculator{cel: engine}
}

// Compute derives required-field completion for one application. It is a pure
// function of its inputs.
func (c *Calculator) Compute(questions []Question, responses []Response) Completion {
	ordered := make([]Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].DisplayOrder < ordered[j].DisplayOrder })

	byQuestion := make(map[string]string, len(responses))
	for _, r := range responses {
		byQuestion[r.QuestionID] = r.Answer
	}

	raw := make(map[string]string, len(ordered))
	for _, q := range ordered {
		if a, ok := byQuestion[q.ID]; ok {
			raw[NormalizeKey(q.Key)] = a
		}
	}

	out := Completion{MissingFields: []string{}}
	for _, q := range ordered {
		if !q.Required || !c.applies(q, raw) {
			continue
		}

		out.TotalFields++
		answer, ok := byQuestion[q.ID]
		if ok && IsAnswered(q, answer) {
			out.CompletedFields++
			continue
		}
		out.MissingFields = append(out.MissingFields, q.Key)
	}

	if out.TotalFields == 0 {
		out.CompletionPercentage = 100
		out.IsComplete = true
		return out
	}

	out.CompletionPercentage = int(math.Round(float64(out.CompletedFields) / float64(out.TotalFields) * 100))
	out.IsComplete = out.CompletedFields == out.TotalFields
	return out
}

// applies reports whether a required question is actually in force given
// the other answers.
func (c *Calculator) applies(q Question, raw map[string]string) bool {
	if q.ConditionalOnKey != nil && strings.TrimSpace(*q.ConditionalOnKey) != "" {
		want := ""
		if q.ConditionalOnValue != nil {
			want = *q.ConditionalOnValue
		}
		return containsOption(raw[NormalizeKey(*q.ConditionalOnKey)], want)
	}

	if q.RequiredWhen != nil && strings.TrimSpace(*q.RequiredWhen) != "" {
		if c.cel == nil {
			return true
		}
		ok, err := c.cel.Evaluate(*q.RequiredWhen, answersForCEL(raw))
		if err != nil {
			zap.L().Warn("required_when evaluation failed", zap.String("question_key", q.Key), zap.Error(err))
			return true
		}
		return ok
	}

	if NormalizeKey(q.Key) == technicalSkillsOtherKey {
		return containsOption(raw[technicalSkillsKey], otherOption)
	}

	text := strings.ToLower(q.Text)
	for _, marker := range legacyConditionalMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

// containsOption checks a stored answer for value, reading it as a JSON array
// first and as raw text otherwise.
func containsOption(answer, value string) bool {
	if answer == "" || value == "" {
		return false
	}
	var list []string
	if err := json.Unmarshal([]byte(answer), &list); err == nil {
		for _, v := range list {
			if v == value {
				return true
			}
		}
		return false
	}
	return strings.Contains(answer, value)
}

// IsAnswered reports whether answer counts as a present, valid response to q.
func IsAnswered(q Question, answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return false
	}
	if !q.Type.IsChoice() {
		return true
	}

	if isPlaceholder(trimmed) {
		return false
	}

	if q.Type == QuestionSelect {
		return len(q.Options) == 0 || validOption(q.Options, trimmed)
	}

	selected, ok := ParseSelections(trimmed)
	if !ok || len(selected) == 0 {
		return false
	}
	for _, s := range selected {
		if isPlaceholder(s) {
			return false
		}
		if len(q.Options) > 0 && !validOption(q.Options, s) {
			return false
		}
	}
	return true
}

// ParseSelections reads a multiselect answer stored as a JSON array or a
// comma separated list. Blank entries are dropped.
func ParseSelections(answer string) ([]string, bool) {
	answer = strings.TrimSpace(answer)
	var parts []string
	if strings.HasPrefix(answer, "[") {
		var list []any
		if err := json.Unmarshal([]byte(answer), &list); err != nil {
			return nil, false
		}
		for _, v := range list {
			s, ok := v.(string)
			if !ok {
				return nil, false
			}
			parts = append(parts, s)
		}
	} else {
		parts = strings.Split(answer, ",")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

func isPlaceholder(v string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

func validOption(options []string, v string) bool {
	for _, o := range options {
		if strings.EqualFold(strings.TrimSpace(o), v) {
			return true
		}
	}
	return false
}

func answersForCEL(raw map[string]string) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			if sel, ok := ParseSelections(trimmed); ok {
				list := make([]any, len(sel))
				for i, s := range sel {
					list[i] = s
				}
				out[k] = list
				continue
			}
		}
		out[k] = v
	}
	return out
}
