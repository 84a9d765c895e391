package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"ftc-platform/pkg/db/option"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/repository"
	"ftc-platform/services/application"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const errDuplicateEvaluation = "reviewer already evaluated this application at this stage"

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	sentinel *Sentinel
	now      func() time.Time
	metrics  instruments

	evaluation  repository.Repository[Evaluation]
	criterion   repository.Repository[Criterion]
	score       repository.Repository[CriterionScore]
	metadata    repository.Repository[AIMetadata]
	batch       repository.Repository[Batch]
	application repository.Repository[application.Application]
	event       repository.Repository[application.Event]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Sentinel *Sentinel
	Meter    metric.MeterProvider `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		sentinel: p.Sentinel,
		now:      time.Now,
		metrics:  newInstruments(p.Meter),

		evaluation:  repository.ProvideStore[Evaluation](p.DB),
		criterion:   repository.ProvideStore[Criterion](p.DB),
		score:       repository.ProvideStore[CriterionScore](p.DB),
		metadata:    repository.ProvideStore[AIMetadata](p.DB),
		batch:       repository.ProvideStore[Batch](p.DB),
		application: repository.ProvideStore[application.Application](p.DB),
		event:       repository.ProvideStore[application.Event](p.DB),
	}
}

func (s *Service) Sentinel() *Sentinel { return s.sentinel }

func logger(ctx context.Context) *zap.Logger {
	span := trace.SpanFromContext(ctx)
	return zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	)
}

// CreateEvaluation persists one evaluation with its scores and metadata in a
// single transaction. An empty reviewerID selects the AI reviewer.
func (s *Service) CreateEvaluation(ctx context.Context, eventID string, in EvaluationInput, reviewerID string) (*Evaluation, error) {
	log := logger(ctx).With(zap.String("event_id", eventID), zap.String("application_id", in.ApplicationID))

	if details := in.Validate(""); len(details) > 0 {
		return nil, errutil.Validation(details...)
	}

	app, err := s.application.FindOne(ctx, &application.Application{ID: in.ApplicationID})
	if err != nil {
		log.Error("failed to load application", zap.Error(err))
		return nil, errutil.Internal("failed to load application", err)
	}
	if app == nil || app.EventID != eventID {
		return nil, errutil.NotFound("application not found for this event", nil)
	}

	criteria, err := s.CriteriaByID(ctx, criterionIDs([]EvaluationInput{in}))
	if err != nil {
		log.Error("failed to load criteria", zap.Error(err))
		return nil, errutil.Internal("failed to load criteria", err)
	}
	missing, details := checkScores(in, criteria, "")
	if len(missing) > 0 {
		return nil, errutil.NotFound("criterion not found", nil, errutil.WithDetails(missingDetails("scores", missing)...))
	}
	if len(details) > 0 {
		return nil, errutil.Validation(details...)
	}

	if reviewerID == "" {
		reviewer, err := s.sentinel.Resolve(ctx)
		if err != nil {
			log.Error("failed to resolve ai reviewer", zap.Error(err))
			return nil, errutil.Internal("failed to resolve ai reviewer", err)
		}
		reviewerID = reviewer.ID
	}

	existing, err := s.evaluation.FindOne(ctx, &Evaluation{ApplicationID: app.ID, ReviewerID: reviewerID, Stage: in.Stage})
	if err != nil {
		return nil, errutil.Internal("failed to check existing evaluation", err)
	}
	if existing != nil {
		return nil, errutil.Conflict(errDuplicateEvaluation, nil)
	}

	rec := s.build(in, reviewerID, criteria, nil)
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.insert(ctx, tx, rec)
	}); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent insert for the same stage
			return nil, errutil.Conflict(errDuplicateEvaluation, err)
		}
		log.Error("failed to create evaluation", zap.Error(err))
		return nil, errutil.Internal("failed to create evaluation", err)
	}

	if rec.AIMetadata != nil {
		s.metrics.recordIngested(ctx, "single", 1, 0, rec.AIMetadata.TotalTokens)
	}
	log.Info("evaluation created", zap.String("evaluation_id", rec.ID), zap.String("reviewer_id", reviewerID))
	return rec, nil
}

// CriteriaByID loads criteria keyed by id.
func (s *Service) CriteriaByID(ctx context.Context, ids []string) (map[string]Criterion, error) {
	out := make(map[string]Criterion, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.criterion.Find(ctx, &Criterion{}, option.ApplyOperator(option.Condition{
		Field: "id", Operator: option.IN, Value: ids,
	}))
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = *c
	}
	return out, nil
}

// ActiveCriteria lists active criteria in display order.
func (s *Service) ActiveCriteria(ctx context.Context) ([]Criterion, error) {
	rows, err := s.criterion.Find(ctx, &Criterion{IsActive: true}, option.WithSortBy(option.QuerySortBy{
		SortBy: "display_order", Allow: map[string]bool{"display_order": true},
	}))
	if err != nil {
		return nil, err
	}
	out := make([]Criterion, 0, len(rows))
	for _, c := range rows {
		out = append(out, *c)
	}
	return out, nil
}

// build turns validated input into a record tree with fresh ids.
func (s *Service) build(in EvaluationInput, reviewerID string, criteria map[string]Criterion, batchID *string) *Evaluation {
	now := s.now()
	rec := &Evaluation{
		ID:               s.node.Generate().String(),
		ApplicationID:    in.ApplicationID,
		ReviewerID:       reviewerID,
		Stage:            in.Stage,
		Status:           StatusCompleted,
		OverallScore:     in.OverallScore,
		Confidence:       in.Confidence,
		Recommendation:   in.Recommendation,
		OverallComments:  in.OverallComments,
		TimeSpentMinutes: in.TimeSpentMinutes,
		CompletedAt:      &now,
	}

	for i, sc := range in.Scores {
		c := criteria[sc.CriteriaID]
		rec.Scores = append(rec.Scores, CriterionScore{
			ID:           s.node.Generate().String(),
			EvaluationID: rec.ID,
			CriterionID:  sc.CriteriaID,
			Score:        sc.Score,
			Reasoning:    sc.Reasoning,
			Position:     i,
			Criterion:    &c,
		})
	}

	if computed, ok := WeightedScore(rec.Scores, criteria); ok {
		rec.ComputedScore = &computed
	}

	if m := in.AIMetadata; m != nil || batchID != nil {
		meta := &AIMetadata{EvaluationID: rec.ID, BatchID: batchID}
		if m != nil {
			meta.ModelVersion = m.ModelVersion
			meta.ProcessingTimeMs = m.ProcessingTimeMs
			meta.PromptTokens = m.PromptTokens
			meta.CompletionTokens = m.CompletionTokens
			meta.TotalTokens = m.Tokens()
			if len(m.Extra) > 0 {
				if b, err := json.Marshal(m.Extra); err == nil {
					meta.Extra = datatypes.JSON(b)
				}
			}
		}
		rec.AIMetadata = meta
	}
	return rec
}

// insert writes rec inside tx. Associations are written explicitly so the
// statements stay visible to the caller's savepoints.
func (s *Service) insert(ctx context.Context, tx *gorm.DB, rec *Evaluation) error {
	row := *rec
	row.Scores, row.AIMetadata, row.Reviewer = nil, nil, nil
	if err := s.evaluation.WithTrx(tx).Create(ctx, &row); err != nil {
		return err
	}
	rec.CreatedAt, rec.UpdatedAt = row.CreatedAt, row.UpdatedAt

	scores := make([]*CriterionScore, 0, len(rec.Scores))
	for i := range rec.Scores {
		sc := rec.Scores[i]
		sc.Criterion = nil
		scores = append(scores, &sc)
	}
	if err := s.score.WithTrx(tx).BatchCreate(ctx, scores); err != nil {
		return err
	}

	if rec.AIMetadata != nil {
		if err := s.metadata.WithTrx(tx).Create(ctx, rec.AIMetadata); err != nil {
			return err
		}
	}
	return nil
}

// ListAIEvaluations returns every evaluation of the event authored by the AI
// reviewer, with scores and metadata, plus a rollup.
func (s *Service) ListAIEvaluations(ctx context.Context, eventID string) ([]Evaluation, Summary, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, Summary{}, err
	}

	reviewer, err := s.sentinel.Lookup(ctx)
	if err != nil {
		return nil, Summary{}, errutil.Internal("failed to resolve ai reviewer", err)
	}
	if reviewer == nil {
		return []Evaluation{}, Rollup(nil, nil, nil), nil
	}

	evals, err := s.EvaluationsForEvent(ctx, eventID, reviewer.ID)
	if err != nil {
		logger(ctx).Error("failed to list ai evaluations", zap.String("event_id", eventID), zap.Error(err))
		return nil, Summary{}, errutil.Internal("failed to list evaluations", err)
	}

	criteria := criteriaFromScores(evals)
	summary := Rollup(evals, criteria, func(e Evaluation) bool { return e.ReviewerID == reviewer.ID })
	return evals, summary, nil
}

// EvaluationsForEvent loads evaluations for applications of eventID with
// reviewer, scores, criteria and metadata preloaded. reviewerID narrows the
// result when set.
func (s *Service) EvaluationsForEvent(ctx context.Context, eventID, reviewerID string) ([]Evaluation, error) {
	q := s.db.WithContext(ctx).
		Model(&Evaluation{}).
		Joins("JOIN applications ON applications.id = evaluations.application_id").
		Where("applications.event_id = ?", eventID).
		Preload("Reviewer").
		Preload("AIMetadata").
		Preload("Scores", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Scores.Criterion").
		Order("evaluations.created_at ASC").
		Order("evaluations.id ASC")
	if reviewerID != "" {
		q = q.Where("evaluations.reviewer_id = ?", reviewerID)
	}

	var out []Evaluation
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) requireEvent(ctx context.Context, eventID string) error {
	if strings.TrimSpace(eventID) == "" {
		return errutil.BadRequest("eventId is required", nil)
	}
	ev, err := s.event.FindOne(ctx, &application.Event{ID: eventID})
	if err != nil {
		return errutil.Internal("failed to load event", err)
	}
	if ev == nil {
		return errutil.NotFound("event not found", nil)
	}
	return nil
}

func criteriaFromScores(evals []Evaluation) map[string]Criterion {
	out := make(map[string]Criterion)
	for _, e := range evals {
		for _, sc := range e.Scores {
			if sc.Criterion != nil {
				out[sc.CriterionID] = *sc.Criterion
			}
		}
	}
	return out
}

func criterionIDs(inputs []EvaluationInput) []string {
	set := make(map[string]struct{})
	for _, in := range inputs {
		for _, sc := range in.Scores {
			if sc.CriteriaID != "" {
				set[sc.CriteriaID] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func missingDetails(field string, ids []string) []errutil.Detail {
	out := make([]errutil.Detail, 0, len(ids))
	for _, id := range ids {
		out = append(out, errutil.Detail{Field: field, Message: id})
	}
	return out
}
