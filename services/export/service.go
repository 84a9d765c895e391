package export

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/minio"
	"ftc-platform/services/application"
	"ftc-platform/services/evaluation"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var labels = map[application.Status]string{
	application.StatusAccepted:   string(evaluation.RecommendAccept),
	application.StatusRejected:   string(evaluation.RecommendReject),
	application.StatusWaitlisted: string(evaluation.RecommendWaitlist),
}

type Service struct {
	applications *application.Service
	evaluations  *evaluation.Service
	store        minio.ObjectStore
	now          func() time.Time
}

type ServiceParams struct {
	fx.In
	Applications *application.Service
	Evaluations  *evaluation.Service
	Store        minio.ObjectStore `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		applications: p.Applications,
		evaluations:  p.Evaluations,
		store:        p.Store,
		now:          time.Now,
	}
}

// TrainingData builds the export for eventID. Applications are selected by
// form state and by how many evaluations they have.
func (s *Service) TrainingData(ctx context.Context, eventID string, opts Options) (*Export, error) {
	span := trace.SpanFromContext(ctx)
	log := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
		zap.String("event_id", eventID),
	)

	if details := validate(opts); len(details) > 0 {
		return nil, errutil.Validation(details...)
	}

	ev, err := s.applications.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	apps, err := s.applications.ApplicationsForEvent(ctx, ev.ID)
	if err != nil {
		log.Error("failed to load applications", zap.Error(err))
		return nil, errutil.Internal("failed to load applications", err)
	}
	questions, err := s.applications.ListQuestions(ctx, ev.ID)
	if err != nil {
		log.Error("failed to load questions", zap.Error(err))
		return nil, errutil.Internal("failed to load questions", err)
	}
	evals, err := s.evaluations.EvaluationsForEvent(ctx, ev.ID, "")
	if err != nil {
		log.Error("failed to load evaluations", zap.Error(err))
		return nil, errutil.Internal("failed to load evaluations", err)
	}
	active, err := s.evaluations.ActiveCriteria(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to load criteria", err)
	}

	criteria := make(map[string]evaluation.Criterion, len(active))
	for _, c := range active {
		criteria[c.ID] = c
	}
	byApp := make(map[string][]evaluation.Evaluation)
	for _, e := range evals {
		for _, sc := range e.Scores {
			if sc.Criterion != nil {
				if _, ok := criteria[sc.CriterionID]; !ok {
					criteria[sc.CriterionID] = *sc.Criterion
				}
			}
		}
		byApp[e.ApplicationID] = append(byApp[e.ApplicationID], e)
	}

	qs := make([]application.Question, 0, len(questions))
	keys := make(map[string]string, len(questions))
	for _, q := range questions {
		qs = append(qs, *q)
		keys[q.ID] = q.Key
	}

	sentinel := s.evaluations.Sentinel()
	isAI := func(e evaluation.Evaluation) bool {
		return e.Reviewer != nil && sentinel != nil && sentinel.IsAI(e.Reviewer.Email)
	}

	out := &Export{
		EventID:     ev.ID,
		EventName:   ev.Name,
		Format:      opts.Format,
		Options:     opts,
		GeneratedAt: s.now().UTC(),
		Records:     []Record{},
	}
	if opts.Format != FormatMinimal {
		out.Criteria = active
	}

	for _, app := range apps {
		if !selected(app.Status, opts) {
			continue
		}
		appEvals := byApp[app.ID]
		if len(appEvals) < opts.MinEvaluations {
			continue
		}

		completion := s.applications.CompletionFor(qs, app.Responses)
		summary := evaluation.Rollup(appEvals, criteria, isAI)
		rec := Record{
			ApplicationID: app.ID,
			Status:        app.Status,
			Label:         labels[app.Status],
		}

		switch opts.Format {
		case FormatMinimal:
			rec.Summary = &summary
		case FormatMLReady:
			rec.Features = features(app, completion, appEvals, criteria, isAI, summary)
		default:
			rec.SubmittedAt = app.SubmittedAt
			rec.Applicant = applicant(app, completion)
			rec.Responses = responses(app.Responses, keys)
			rec.Evaluations = evaluationRecords(appEvals, criteria, isAI)
			rec.Summary = &summary
		}
		out.Records = append(out.Records, rec)
	}
	out.Count = len(out.Records)

	log.Info("training data exported",
		zap.String("format", string(opts.Format)),
		zap.Int("applications", len(apps)),
		zap.Int("records", out.Count),
	)
	return out, nil
}

// Archive uploads the export as JSON and records the object key on it.
func (s *Service) Archive(ctx context.Context, exp *Export) (string, error) {
	if s.store == nil {
		return "", errutil.New(errutil.StatusServiceUnavailable, "archive storage is not configured")
	}

	body, err := json.Marshal(exp)
	if err != nil {
		return "", errutil.Internal("failed to encode export", err)
	}

	key := fmt.Sprintf("training-data/%s/%s-%s.json", exp.EventID, exp.GeneratedAt.Format("20060102T150405Z"), exp.Format)
	location, err := s.store.Put(ctx, key, "application/json", body)
	if err != nil {
		zap.L().Error("failed to archive export", zap.String("event_id", exp.EventID), zap.Error(err))
		return "", errutil.BadGateway("failed to archive export", err)
	}
	exp.ArchiveKey = location
	return location, nil
}

func validate(opts Options) []errutil.Detail {
	var details []errutil.Detail
	if !opts.Format.Valid() {
		details = append(details, errutil.Detail{Field: "format", Message: "must be one of detailed, minimal, ml-ready"})
	}
	if opts.MinEvaluations < 0 {
		details = append(details, errutil.Detail{Field: "minEvaluations", Message: "must not be negative"})
	}
	if !opts.IncludeCompleted && !opts.IncludeInProgress {
		details = append(details, errutil.Detail{Field: "includeCompleted", Message: "at least one of includeCompleted, includeInProgress must be true"})
	}
	return details
}

func selected(status application.Status, opts Options) bool {
	if status.InProgress() {
		return opts.IncludeInProgress
	}
	return opts.IncludeCompleted
}

func applicant(app application.Application, c application.Completion) *Applicant {
	answered := 0
	for _, r := range app.Responses {
		if r.Answer != "" {
			answered++
		}
	}
	out := &Applicant{
		HasSubmitted:         app.SubmittedAt != nil,
		IsComplete:           c.IsComplete,
		CompletionPercentage: c.CompletionPercentage,
		AnsweredQuestions:    answered,
		RequiredQuestions:    c.TotalFields,
	}
	if app.SubmittedAt != nil && !app.CreatedAt.IsZero() {
		h := round2(app.SubmittedAt.Sub(app.CreatedAt).Hours())
		out.HoursToSubmit = &h
	}
	return out
}

func responses(in []application.Response, keys map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for _, r := range in {
		key, ok := keys[r.QuestionID]
		if !ok {
			continue
		}
		out[key] = r.Answer
	}
	return out
}

func evaluationRecords(evals []evaluation.Evaluation, criteria map[string]evaluation.Criterion, isAI func(evaluation.Evaluation) bool) []Evaluation {
	out := make([]Evaluation, 0, len(evals))
	for _, e := range evals {
		rec := Evaluation{
			Stage:          e.Stage,
			IsAI:           isAI(e),
			OverallScore:   e.OverallScore,
			ComputedScore:  e.ComputedScore,
			Confidence:     e.Confidence,
			Recommendation: e.Recommendation,
			Comments:       e.OverallComments,
			Scores:         make([]Score, 0, len(e.Scores)),
			AIMetadata:     e.AIMetadata,
		}
		for _, sc := range e.Scores {
			row := Score{CriterionID: sc.CriterionID, Score: sc.Score, Reasoning: sc.Reasoning}
			if c, ok := criteria[sc.CriterionID]; ok {
				row.Name = c.Name
				row.Category = c.Category
				row.Normalized = round2(evaluation.Normalize(sc.Score, c.MinScore, c.MaxScore))
			}
			rec.Scores = append(rec.Scores, row)
		}
		out = append(out, rec)
	}
	return out
}

// features flattens one application into numeric model inputs. Keys are
// stable across records so rows line up as columns.
func features(app application.Application, c application.Completion, evals []evaluation.Evaluation, criteria map[string]evaluation.Criterion, isAI func(evaluation.Evaluation) bool, summary evaluation.Summary) map[string]float64 {
	f := map[string]float64{
		"completion":             float64(c.CompletionPercentage) / 100,
		"is_complete":            boolValue(c.IsComplete),
		"has_submitted":          boolValue(app.SubmittedAt != nil),
		"evaluation_count":       float64(summary.Count),
		"ai_evaluation_count":    float64(summary.AIEvaluations),
		"human_evaluation_count": float64(summary.HumanEvaluations),
		"avg_declared_score":     summary.AverageDeclaredScore,
		"avg_confidence":         summary.AverageConfidence,
	}
	if summary.AverageComputedScore != nil {
		f["avg_computed_score"] = *summary.AverageComputedScore
	}
	for _, cat := range evaluation.Categories {
		f["category_"+string(cat)] = summary.Categories[cat].Normalized
	}

	var ai, human []evaluation.Evaluation
	for _, e := range evals {
		if isAI(e) {
			ai = append(ai, e)
		} else {
			human = append(human, e)
		}
	}
	f["ai_avg_score"] = evaluation.Rollup(ai, criteria, isAI).AverageDeclaredScore
	f["human_avg_score"] = evaluation.Rollup(human, criteria, isAI).AverageDeclaredScore

	for _, r := range []evaluation.Recommendation{
		evaluation.RecommendAccept,
		evaluation.RecommendReject,
		evaluation.RecommendWaitlist,
		evaluation.RecommendNeedsMoreInfo,
	} {
		share := 0.0
		if summary.Count > 0 {
			share = round2(float64(summary.Recommendations[r]) / float64(summary.Count))
		}
		f["recommendation_"+string(r)] = share
	}
	return f
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
