// Package handler wires the wizard endpoints to the assessment service. The
// handlers carry no gating logic; the guard middleware has already evaluated
// progression by the time a step handler runs.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"intake/internal/assessment"
	"intake/internal/assessment/service"
	"intake/internal/entitlement"
	"intake/internal/profile"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/httputil"
	"intake/pkg/platform/middleware/session"
	"intake/pkg/requestcontext"
)

// Service is the assessment operations interface.
type Service interface {
	CompleteStep(ctx context.Context, userID id.UserID, stepID string, payload any) (string, error)
	Progress(ctx context.Context, userID id.UserID) (*service.Progress, error)
	StepPayload(ctx context.Context, userID id.UserID, stepID string) (any, error)
}

// RecordReader is the slice of the store the dashboard needs.
type RecordReader interface {
	Get(ctx context.Context, userID id.UserID) (*profile.Record, error)
}

// Handler serves step pages, submissions, progress, and the dashboard.
type Handler struct {
	registry *assessment.Registry
	service  Service
	records  RecordReader
	logger   *slog.Logger
}

func New(registry *assessment.Registry, svc Service, records RecordReader, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		service:  svc,
		records:  records,
		logger:   logger,
	}
}

// Register mounts the guarded wizard routes: one GET/POST pair per step plus
// the dashboard.
func (h *Handler) Register(r chi.Router) {
	for _, step := range h.registry.Steps() {
		r.Get(step.Path, h.handleStepPage(step))
		r.Post(step.Path, h.handleStepSubmit(step))
	}
	r.Get(assessment.PathDashboard, h.HandleDashboard)
}

// RegisterProgress mounts the resume endpoint outside the completion gate:
// it answers "where do I resume", so gating it on completion would be
// circular. Authentication is still required.
func (h *Handler) RegisterProgress(r chi.Router) {
	r.Get("/assessment/progress", h.HandleProgress)
}

func (h *Handler) handleStepPage(step assessment.Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := requestcontext.UserID(ctx)

		payload, err := h.service.StepPayload(ctx, userID, step.ID)
		if err != nil {
			h.logger.ErrorContext(ctx, "step page load failed",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", userID,
				"step", step.ID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"step": step.ID,
			"path": step.Path,
			"data": payload,
		})
	}
}

func (h *Handler) handleStepSubmit(step assessment.Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)
		userID := requestcontext.UserID(ctx)

		// Selection steps accept either historical shape, so the body is
		// decoded untyped and the service normalizes.
		var payload any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			h.logger.WarnContext(ctx, "malformed step submission",
				"request_id", requestID,
				"step", step.ID,
				"error", err,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
			return
		}

		next, err := h.service.CompleteStep(ctx, userID, step.ID, payload)
		if err != nil {
			h.logger.ErrorContext(ctx, "step submission failed",
				"request_id", requestID,
				"user_id", userID,
				"step", step.ID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		h.logger.InfoContext(ctx, "step completed",
			"request_id", requestID,
			"user_id", userID,
			"step", step.ID,
			"next", next,
		)
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"next": next})
	}
}

// HandleProgress returns the canonical resumption answer.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(r)
	if !sess.Authenticated {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	progress, err := h.service.Progress(ctx, sess.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "progress lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", sess.UserID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, progress)
}

// HandleDashboard serves the gated dashboard summary. The guard only lets
// completed assessments through, so a missing record here is an internal
// inconsistency, not a routing concern.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	record, err := h.records.Get(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard record fetch failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeUnavailable, "profile temporarily unavailable", err))
		return
	}

	now := requestcontext.Now(ctx)
	tier := entitlement.UserTier(record, now)
	httputil.WriteJSON(w, http.StatusOK, dashboardResponse{
		Tier:  string(tier),
		IsPro: entitlement.IsPro(record, now),
		Features: map[string]bool{
			entitlement.FeatureDashboard:       entitlement.HasFeatureAccess(record, entitlement.FeatureDashboard, now),
			entitlement.FeatureProgramLibrary:  entitlement.HasFeatureAccess(record, entitlement.FeatureProgramLibrary, now),
			entitlement.FeatureClinicianReview: entitlement.HasFeatureAccess(record, entitlement.FeatureClinicianReview, now),
		},
		GeneratedAt: now.Format(time.RFC3339),
	})
}

type dashboardResponse struct {
	Tier        string          `json:"tier"`
	IsPro       bool            `json:"is_pro"`
	Features    map[string]bool `json:"features"`
	GeneratedAt string          `json:"generated_at"`
}
