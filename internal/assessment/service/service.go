// Package service implements the step completion transition and the progress
// summary. Completing a step is the only mutation path for completion flags:
// one merge-write carrying the payload, the completed-at timestamp, and the
// flag. Flags are never cleared.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"intake/internal/assessment"
	"intake/internal/assessment/metrics"
	"intake/internal/audit"
	"intake/internal/profile"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/sentinel"
	"intake/pkg/requestcontext"
)

// Service coordinates submissions and progress reads against the record
// store.
type Service struct {
	registry  *assessment.Registry
	evaluator *assessment.Evaluator
	store     profile.Store
	publisher *audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures optional dependencies.
type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(registry *assessment.Registry, evaluator *assessment.Evaluator, store profile.Store, publisher *audit.Publisher, logger *slog.Logger, opts ...Option) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("step registry is required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("audit publisher is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	svc := &Service{
		registry:  registry,
		evaluator: evaluator,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// CompleteStep validates a submission, normalizes selection payloads to the
// canonical map form, and performs the single merge-write that marks the step
// done. Returns the path the client should navigate to next.
func (s *Service) CompleteStep(ctx context.Context, userID id.UserID, stepID string, payload any) (string, error) {
	step, ok := s.registry.StepByID(stepID)
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "unknown assessment step")
	}

	value, err := s.preparePayload(ctx, step, payload)
	if err != nil {
		return "", err
	}

	now := requestcontext.Now(ctx)
	fields := map[string]any{
		step.PayloadField:       value,
		step.CompletionFlag:     true,
		step.CompletedAtField(): now.Format(time.RFC3339),
	}
	// The last step closes the whole assessment; the terminal flag has no
	// other setter in this service.
	if step.Order == s.registry.Len()-1 {
		fields[profile.FieldAssessmentCompleted] = true
	}

	if err := s.store.Merge(ctx, userID, fields); err != nil {
		s.logger.ErrorContext(ctx, "step submission write failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"step", step.ID,
			"error", err,
		)
		return "", dErrors.Wrap(dErrors.CodeUnavailable, "could not save your answers, please retry", err)
	}

	s.metrics.IncrementStepCompletion(step.ID)
	s.publisher.Emit(ctx, audit.Event{
		UserID: userID,
		Action: audit.ActionStepCompleted,
		Path:   step.Path,
	})

	if next, err := s.registry.StepAt(step.Order + 1); err == nil {
		return next.Path, nil
	}
	return assessment.PathDashboard, nil
}

// preparePayload applies the presence checks and shape normalization policy.
func (s *Service) preparePayload(ctx context.Context, step assessment.Step, payload any) (any, error) {
	if step.Selection {
		selections, ok := profile.NormalizeSelections(payload)
		if !ok {
			s.metrics.IncrementMalformedPayload(step.PayloadField)
			return nil, dErrors.New(dErrors.CodeBadRequest, "selections must be a list or a map of identifiers")
		}
		if len(selections) == 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "at least one selection is required")
		}
		return profile.CanonicalSelections(selections), nil
	}

	fields, ok := payload.(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "step payload is required")
	}
	return fields, nil
}

// StepState is one row of the progress summary.
type StepState struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Completed bool   `json:"completed"`
}

// Progress is the resumption answer for a user: the canonical resume path
// plus per-step completion.
type Progress struct {
	ResumePath          string      `json:"resume_path"`
	AssessmentCompleted bool        `json:"assessment_completed"`
	Steps               []StepState `json:"steps"`
}

// Progress builds the summary from the user's record. A missing record means
// a brand-new user, resuming at the first step.
func (s *Service) Progress(ctx context.Context, userID id.UserID) (*Progress, error) {
	record, err := s.fetchRecord(ctx, userID)
	if err != nil {
		return nil, err
	}

	steps := s.registry.Steps()
	states := make([]StepState, len(steps))
	for i, step := range steps {
		states[i] = StepState{
			ID:        step.ID,
			Path:      step.Path,
			Completed: record != nil && record.Flag(step.CompletionFlag),
		}
	}

	return &Progress{
		ResumePath:          s.evaluator.FirstIncompleteStep(record),
		AssessmentCompleted: record != nil && record.AssessmentCompleted(),
		Steps:               states,
	}, nil
}

// StepPayload returns the saved payload for a step page, selection fields in
// canonical form. Nil when nothing is saved yet.
func (s *Service) StepPayload(ctx context.Context, userID id.UserID, stepID string) (any, error) {
	step, ok := s.registry.StepByID(stepID)
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown assessment step")
	}

	record, err := s.fetchRecord(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	if step.Selection {
		selections, ok := record.Selections(step.PayloadField)
		if !ok {
			// Neither recognized shape: degrade to empty rather than fail
			// the page, but leave a trace for operators.
			s.metrics.IncrementMalformedPayload(step.PayloadField)
			s.logger.WarnContext(ctx, "malformed selection payload in record",
				"user_id", userID,
				"field", step.PayloadField,
			)
		}
		return profile.CanonicalSelections(selections), nil
	}

	value, _ := record.Field(step.PayloadField)
	return value, nil
}

// fetchRecord maps not-found to nil; other failures are infrastructure
// errors surfaced to the caller.
func (s *Service) fetchRecord(ctx context.Context, userID id.UserID) (*profile.Record, error) {
	record, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "profile temporarily unavailable", err)
	}
	return record, nil
}
