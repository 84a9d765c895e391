package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"ftc-platform/pkg/db/option"
	"ftc-platform/pkg/errutil"
	"ftc-platform/services/application"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ItemError struct {
	Index         int              `json:"index"`
	ApplicationID string           `json:"applicationId"`
	Error         string           `json:"error"`
	Details       []errutil.Detail `json:"details,omitempty"`
}

type BatchStats struct {
	Total                   int     `json:"total"`
	Successful              int     `json:"successful"`
	Failed                  int     `json:"failed"`
	TotalProcessingTimeMs   int64   `json:"totalProcessingTimeMs"`
	AverageProcessingTimeMs float64 `json:"averageProcessingTimeMs"`
	TotalTokens             int     `json:"totalTokens"`
	Chunks                  int     `json:"chunks"`
}

type BatchResult struct {
	Success       bool        `json:"success"`
	DryRun        bool        `json:"dryRun"`
	BatchID       string      `json:"batchId,omitempty"`
	Stats         BatchStats  `json:"stats"`
	EvaluationIDs []string    `json:"evaluationIds"`
	Errors        []ItemError `json:"errors"`
}

// item is one batch entry after pre-validation.
type item struct {
	index   int
	input   EvaluationInput
	record  *Evaluation
	missing []string
	err     *ItemError
}

// BatchCreateEvaluations ingests AI evaluations in chunks of ChunkSize. Every
// referenced application and criterion must exist and every entry must pass
// validation, or nothing is written. Each chunk commits in its own
// transaction; items inside a chunk are isolated by savepoints, and a
// failure of the chunk transaction itself fails every item of that chunk.
// A dry run writes nothing and reports invalid entries per item.
func (s *Service) BatchCreateEvaluations(ctx context.Context, eventID string, in BatchInput, dryRun bool) (*BatchResult, error) {
	log := logger(ctx).With(zap.String("event_id", eventID), zap.Bool("dry_run", dryRun))

	switch n := len(in.Evaluations); {
	case n == 0:
		return nil, errutil.Validation(errutil.Detail{Field: "evaluations", Message: "at least one evaluation is required"})
	case n > MaxBatchSize:
		return nil, errutil.Validation(errutil.Detail{Field: "evaluations", Message: fmt.Sprintf("at most %d evaluations per batch", MaxBatchSize)})
	}

	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	if missing, err := s.missingApplications(ctx, eventID, in.Evaluations); err != nil {
		log.Error("failed to pre-validate applications", zap.Error(err))
		return nil, errutil.Internal("failed to validate applications", err)
	} else if len(missing) > 0 {
		log.Warn("batch rejected, applications missing", zap.Strings("application_ids", missing))
		return nil, errutil.NotFound("applications not found for this event", nil,
			errutil.WithDetails(missingDetails("applicationId", missing)...))
	}

	criteria, err := s.CriteriaByID(ctx, criterionIDs(in.Evaluations))
	if err != nil {
		return nil, errutil.Internal("failed to load criteria", err)
	}

	items := make([]*item, len(in.Evaluations))
	for i, ev := range in.Evaluations {
		items[i] = check(i, ev, criteria)
	}
	if !dryRun {
		if err := rejectInvalid(items); err != nil {
			log.Warn("batch rejected, invalid items", zap.Error(err))
			return nil, err
		}
	}

	reviewerID, err := s.batchReviewer(ctx, dryRun)
	if err != nil {
		return nil, errutil.Internal("failed to resolve ai reviewer", err)
	}

	result := &BatchResult{DryRun: dryRun, EvaluationIDs: []string{}, Errors: []ItemError{}}
	var batchID *string
	if !dryRun {
		id := s.node.Generate().String()
		batchID = &id
		result.BatchID = id
	}
	for _, it := range items {
		if it.err == nil {
			it.record = s.build(it.input, reviewerID, criteria, batchID)
		}
	}

	var created []*item
	if dryRun {
		for _, it := range items {
			if it.err == nil {
				created = append(created, it)
			}
		}
	} else {
		for start := 0; start < len(items); start += ChunkSize {
			end := min(start+ChunkSize, len(items))
			created = append(created, s.runChunk(ctx, items[start:end])...)
			result.Stats.Chunks++
		}
	}

	for _, it := range items {
		if it.err != nil {
			result.Errors = append(result.Errors, *it.err)
		}
	}
	for _, it := range created {
		if !dryRun {
			result.EvaluationIDs = append(result.EvaluationIDs, it.record.ID)
		}
		if m := it.input.AIMetadata; m != nil {
			result.Stats.TotalProcessingTimeMs += m.ProcessingTimeMs
			result.Stats.TotalTokens += m.Tokens()
		}
	}

	result.Stats.Total = len(items)
	result.Stats.Successful = len(created)
	result.Stats.Failed = len(result.Errors)
	if result.Stats.Successful > 0 {
		result.Stats.AverageProcessingTimeMs = float64(result.Stats.TotalProcessingTimeMs) / float64(result.Stats.Successful)
	}
	result.Success = len(result.Errors) == 0

	if !dryRun {
		s.recordBatch(ctx, eventID, *batchID, result, in.BatchMetadata)
		s.metrics.recordBatchSize(ctx, result.Stats.Total)
		s.metrics.recordIngested(ctx, "batch", result.Stats.Successful, result.Stats.Failed, result.Stats.TotalTokens)
	}

	log.Info("batch ingestion finished",
		zap.Int("total", result.Stats.Total),
		zap.Int("successful", result.Stats.Successful),
		zap.Int("failed", result.Stats.Failed),
	)
	return result, nil
}

// check validates one entry against the schema and the loaded criteria.
func check(i int, in EvaluationInput, criteria map[string]Criterion) *item {
	it := &item{index: i, input: in}
	prefix := fmt.Sprintf("evaluations[%d].", i)

	details := in.Validate(prefix)
	missing, scoreDetails := checkScores(in, criteria, prefix)
	details = append(details, scoreDetails...)
	it.missing = missing

	switch {
	case len(details) > 0:
		it.err = &ItemError{Index: i, ApplicationID: in.ApplicationID, Error: "validation failed", Details: details}
	case len(missing) > 0:
		it.err = &ItemError{Index: i, ApplicationID: in.ApplicationID,
			Error: "criterion not found: " + strings.Join(missing, ", ")}
	}
	return it
}

// rejectInvalid fails the whole batch when any entry is invalid. Field
// errors win over unknown criteria.
func rejectInvalid(items []*item) error {
	var details []errutil.Detail
	var missing []string
	seen := map[string]struct{}{}
	for _, it := range items {
		if it.err == nil {
			continue
		}
		details = append(details, it.err.Details...)
		for _, id := range it.missing {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				missing = append(missing, id)
			}
		}
	}
	if len(details) > 0 {
		return errutil.Validation(details...)
	}
	if len(missing) > 0 {
		return errutil.NotFound("criterion not found", nil, errutil.WithDetails(missingDetails("scores", missing)...))
	}
	return nil
}

// batchReviewer resolves the AI reviewer. A dry run never creates it.
func (s *Service) batchReviewer(ctx context.Context, dryRun bool) (string, error) {
	if !dryRun {
		u, err := s.sentinel.Resolve(ctx)
		if err != nil {
			return "", err
		}
		return u.ID, nil
	}
	u, err := s.sentinel.Lookup(ctx)
	if err != nil || u == nil {
		return "", err
	}
	return u.ID, nil
}

// runChunk commits one chunk and returns the items that were written.
func (s *Service) runChunk(ctx context.Context, chunk []*item) []*item {
	var written []*item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		written = written[:0]
		for _, it := range chunk {
			if it.err != nil {
				continue
			}

			sp := fmt.Sprintf("item_%d", it.index)
			if err := tx.Exec("SAVEPOINT " + sp).Error; err != nil {
				return fmt.Errorf("savepoint %s: %w", sp, err)
			}
			if err := s.insert(ctx, tx, it.record); err != nil {
				if rbErr := tx.Exec("ROLLBACK TO SAVEPOINT " + sp).Error; rbErr != nil {
					return fmt.Errorf("rollback to %s: %w", sp, rbErr)
				}
				msg := "failed to store evaluation"
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					msg = errDuplicateEvaluation
				}
				it.err = &ItemError{Index: it.index, ApplicationID: it.input.ApplicationID, Error: msg}
				logger(ctx).Warn("batch item failed", zap.Int("index", it.index), zap.Error(err))
				continue
			}
			if err := tx.Exec("RELEASE SAVEPOINT " + sp).Error; err != nil {
				return fmt.Errorf("release %s: %w", sp, err)
			}
			written = append(written, it)
		}
		return nil
	})
	if err == nil {
		return written
	}

	logger(ctx).Error("batch chunk failed", zap.Int("first_index", chunk[0].index), zap.Error(err))
	for _, it := range chunk {
		if it.err == nil {
			it.err = &ItemError{Index: it.index, ApplicationID: it.input.ApplicationID, Error: "chunk transaction failed"}
		}
	}
	return nil
}

func (s *Service) missingApplications(ctx context.Context, eventID string, inputs []EvaluationInput) ([]string, error) {
	want := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		id := strings.TrimSpace(in.ApplicationID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			want = append(want, id)
		}
	}
	if len(want) == 0 {
		return nil, nil
	}

	found, err := s.application.Find(ctx, &application.Application{EventID: eventID}, option.ApplyOperator(option.Condition{
		Field: "id", Operator: option.IN, Value: want,
	}))
	if err != nil {
		return nil, err
	}

	ok := make(map[string]struct{}, len(found))
	for _, a := range found {
		ok[a.ID] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, exists := ok[id]; !exists {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *Service) recordBatch(ctx context.Context, eventID, batchID string, result *BatchResult, meta map[string]any) {
	rec := &Batch{
		ID:         batchID,
		EventID:    eventID,
		Total:      result.Stats.Total,
		Successful: result.Stats.Successful,
		Failed:     result.Stats.Failed,
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			rec.Metadata = datatypes.JSON(b)
		}
	}
	if err := s.batch.Create(ctx, rec); err != nil {
		logger(ctx).Warn("failed to record batch", zap.String("batch_id", batchID), zap.Error(err))
	}
}
