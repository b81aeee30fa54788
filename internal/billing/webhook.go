// Package billing receives one-way notifications from the hosted payment
// processor and flips the subscription fields on the intake record. It never
// touches completion flags; entitlement widening is its only effect.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"intake/internal/audit"
	"intake/internal/profile"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/httputil"
	"intake/pkg/requestcontext"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw body.
const signatureHeader = "Intake-Signature"

const maxBodyBytes = 1 << 20

// webhookEvent is the processor's notification envelope.
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		UserID           string `json:"user_id"`
		Tier             string `json:"tier"`
		Status           string `json:"status"`
		CurrentPeriodEnd string `json:"current_period_end"`
	} `json:"data"`
}

// Handler verifies and applies webhook notifications.
type Handler struct {
	store     profile.Store
	secret    []byte
	publisher *audit.Publisher
	logger    *slog.Logger
}

func NewHandler(store profile.Store, secret string, publisher *audit.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		secret:    []byte(secret),
		publisher: publisher,
		logger:    logger,
	}
}

// Register mounts the webhook endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/billing/webhook", h.HandleWebhook)
}

// HandleWebhook applies a subscription notification. Merge semantics make
// redelivery idempotent; unknown event types are acknowledged and ignored so
// the processor stops retrying them.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read webhook body"))
		return
	}

	if !h.verifySignature(body, r.Header.Get(signatureHeader)) {
		h.logger.WarnContext(ctx, "webhook signature mismatch",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid webhook signature"))
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed webhook payload"))
		return
	}

	switch event.Type {
	case "subscription.updated", "subscription.canceled":
	default:
		h.logger.InfoContext(ctx, "ignoring webhook event type",
			"request_id", requestID,
			"type", event.Type,
		)
		httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	userID, err := id.ParseUserID(event.Data.UserID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "webhook event missing user_id"))
		return
	}

	fields := h.subscriptionFields(event)
	if err := h.store.Merge(ctx, userID, fields); err != nil {
		h.logger.ErrorContext(ctx, "subscription merge failed",
			"request_id", requestID,
			"user_id", userID,
			"event_id", event.ID,
			"error", err,
		)
		// Non-2xx so the processor redelivers.
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeUnavailable, "could not apply subscription update", err))
		return
	}

	h.publisher.Emit(ctx, audit.Event{
		UserID:   userID,
		Action:   audit.ActionSubscriptionUpdated,
		Reason:   event.Type,
		Decision: event.Data.Tier,
	})
	h.logger.InfoContext(ctx, "subscription updated",
		"request_id", requestID,
		"user_id", userID,
		"event_id", event.ID,
		"tier", event.Data.Tier,
		"status", event.Data.Status,
	)

	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (h *Handler) verifySignature(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

func (h *Handler) subscriptionFields(event webhookEvent) map[string]any {
	sub := map[string]any{
		profile.SubFieldTier:   event.Data.Tier,
		profile.SubFieldStatus: event.Data.Status,
	}
	if event.Data.CurrentPeriodEnd != "" {
		if t, err := time.Parse(time.RFC3339, event.Data.CurrentPeriodEnd); err == nil {
			sub[profile.SubFieldCurrentPeriodEnd] = t.Format(time.RFC3339)
		}
	}
	return map[string]any{
		profile.FieldSubscription: sub,
		profile.FieldIsPro:        event.Data.Tier == "pro" && event.Data.Status == "active",
	}
}

// Sign computes the signature for a payload. The processor does the same on
// its side; exported so tests and local tooling can forge valid deliveries.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
