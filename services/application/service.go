package application

import (
	"context"
	"strings"

	"ftc-platform/pkg/celengine"
	"ftc-platform/pkg/db/option"
	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/repository"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	calculator *Calculator

	event       repository.Repository[Event]
	application repository.Repository[Application]
	question    repository.Repository[Question]
	response    repository.Repository[Response]
}

type ServiceParams struct {
	fx.In
	DB  *gorm.DB
	CEL *celengine.Engine `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:          p.DB,
		calculator:  NewCalculator(p.CEL),
		event:       repository.ProvideStore[Event](p.DB),
		application: repository.ProvideStore[Application](p.DB),
		question:    repository.ProvideStore[Question](p.DB),
		response:    repository.ProvideStore[Response](p.DB),
	}
}

func (s *Service) GetApplication(ctx context.Context, applicationID string) (*Application, error) {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return nil, errutil.BadRequest("applicationId is required", nil)
	}

	app, err := s.application.FindOne(ctx, &Application{ID: applicationID})
	if err != nil {
		return nil, errutil.Internal("failed to load application", err)
	}
	if app == nil {
		return nil, errutil.NotFound("application not found", nil)
	}
	return app, nil
}

func (s *Service) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return nil, errutil.BadRequest("eventId is required", nil)
	}

	ev, err := s.event.FindOne(ctx, &Event{ID: eventID})
	if err != nil {
		return nil, errutil.Internal("failed to load event", err)
	}
	if ev == nil {
		return nil, errutil.NotFound("event not found", nil)
	}
	return ev, nil
}

// ApplicationsForEvent loads the event's applications with their responses,
// oldest first.
func (s *Service) ApplicationsForEvent(ctx context.Context, eventID string) ([]Application, error) {
	var out []Application
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Preload("Responses").
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ListQuestions(ctx context.Context, eventID string) ([]*Question, error) {
	return s.question.Find(ctx, &Question{EventID: eventID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "display_order",
		OrderBy: "ASC",
		Allow:   map[string]bool{"display_order": true},
	}))
}

// GetCompletion loads an application's answers and its event's questions and
// computes required-field completion.
func (s *Service) GetCompletion(ctx context.Context, applicationID string) (*Completion, error) {
	span := trace.SpanFromContext(ctx)
	log := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
		zap.String("application_id", applicationID),
	)

	app, err := s.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	questions, err := s.ListQuestions(ctx, app.EventID)
	if err != nil {
		log.Error("failed to load questions", zap.Error(err))
		return nil, errutil.Internal("failed to load questions", err)
	}

	responses, err := s.response.Find(ctx, &Response{ApplicationID: app.ID})
	if err != nil {
		log.Error("failed to load responses", zap.Error(err))
		return nil, errutil.Internal("failed to load responses", err)
	}

	result := s.calculator.Compute(deref(questions), deref(responses))
	return &result, nil
}

// CompletionFor computes completion from already loaded rows.
func (s *Service) CompletionFor(questions []Question, responses []Response) Completion {
	return s.calculator.Compute(questions, responses)
}

func deref[T any](in []*T) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}
