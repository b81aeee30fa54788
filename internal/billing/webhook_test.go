package billing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake/internal/audit"
	auditmem "intake/internal/audit/store/memory"
	"intake/internal/entitlement"
	"intake/internal/profile"
	profilemem "intake/internal/profile/store/memory"
	id "intake/pkg/domain"
)

const testSecret = "whsec_test"

func newWebhookRouter(store profile.Store) (chi.Router, *audit.Publisher) {
	logger := slog.New(slog.DiscardHandler)
	publisher := audit.NewPublisher(auditmem.New(), logger)
	h := NewHandler(store, testSecret, publisher, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r, publisher
}

func deliver(t *testing.T, r http.Handler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/billing/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("Intake-Signature", signature)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestWebhookSubscriptionUpdated(t *testing.T) {
	store := profilemem.New()
	router, publisher := newWebhookRouter(store)

	body := []byte(`{
		"id": "evt_1",
		"type": "subscription.updated",
		"data": {
			"user_id": "user-1",
			"tier": "pro",
			"status": "active",
			"current_period_end": "2026-12-01T00:00:00Z"
		}
	}`)
	rr := deliver(t, router, body, Sign(testSecret, body))
	require.Equal(t, http.StatusOK, rr.Code)

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	sub := rec.Subscription()
	assert.Equal(t, "pro", sub.Tier)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), sub.CurrentPeriodEnd)
	assert.True(t, rec.Flag(profile.FieldIsPro))
	assert.True(t, entitlement.IsPro(rec, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)))

	events, err := publisher.List(context.Background(), id.UserID("user-1"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionSubscriptionUpdated, events[0].Action)
	assert.Equal(t, "subscription.updated", events[0].Reason)
}

func TestWebhookCancellationPreservesCompletion(t *testing.T) {
	store := profilemem.New()
	require.NoError(t, store.Merge(context.Background(), "user-1", map[string]any{
		"assessmentCompleted":  true,
		"userDetailsCompleted": true,
		"subscription": map[string]any{
			"tier": "pro", "status": "active",
		},
		"isPro": true,
	}))
	router, _ := newWebhookRouter(store)

	body := []byte(`{
		"id": "evt_2",
		"type": "subscription.canceled",
		"data": {"user_id": "user-1", "tier": "pro", "status": "canceled"}
	}`)
	rr := deliver(t, router, body, Sign(testSecret, body))
	require.Equal(t, http.StatusOK, rr.Code)

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "canceled", rec.Subscription().Status)
	assert.False(t, rec.Flag(profile.FieldIsPro))
	assert.True(t, rec.AssessmentCompleted(), "billing never touches completion state")
	assert.True(t, rec.Flag("userDetailsCompleted"))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	store := profilemem.New()
	router, _ := newWebhookRouter(store)
	body := []byte(`{"id":"evt_3","type":"subscription.updated","data":{"user_id":"user-1","tier":"pro","status":"active"}}`)

	t.Run("missing signature", func(t *testing.T) {
		rr := deliver(t, router, body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		rr := deliver(t, router, body, Sign("whsec_other", body))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("not hex", func(t *testing.T) {
		rr := deliver(t, router, body, "zzzz")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	_, err := store.Get(context.Background(), "user-1")
	assert.Error(t, err, "rejected deliveries must not write")
}

func TestWebhookUnknownTypeAcknowledged(t *testing.T) {
	store := profilemem.New()
	router, _ := newWebhookRouter(store)

	body := []byte(`{"id":"evt_4","type":"invoice.paid","data":{"user_id":"user-1"}}`)
	rr := deliver(t, router, body, Sign(testSecret, body))

	assert.Equal(t, http.StatusOK, rr.Code, "unknown types are acked so the processor stops retrying")
	_, err := store.Get(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestWebhookMalformedPayload(t *testing.T) {
	router, _ := newWebhookRouter(profilemem.New())

	t.Run("invalid JSON", func(t *testing.T) {
		body := []byte(`{"type":`)
		rr := deliver(t, router, body, Sign(testSecret, body))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing user_id", func(t *testing.T) {
		body := []byte(`{"id":"evt_5","type":"subscription.updated","data":{"tier":"pro","status":"active"}}`)
		rr := deliver(t, router, body, Sign(testSecret, body))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

type failingStore struct{}

func (failingStore) Get(context.Context, id.UserID) (*profile.Record, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Merge(context.Context, id.UserID, map[string]any) error {
	return errors.New("connection refused")
}

func TestWebhookMergeFailureTriggersRedelivery(t *testing.T) {
	router, _ := newWebhookRouter(failingStore{})

	body := []byte(`{"id":"evt_6","type":"subscription.updated","data":{"user_id":"user-1","tier":"pro","status":"active"}}`)
	rr := deliver(t, router, body, Sign(testSecret, body))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code,
		"non-2xx so the processor redelivers")
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	store := profilemem.New()
	router, _ := newWebhookRouter(store)

	body := []byte(`{"id":"evt_7","type":"subscription.updated","data":{"user_id":"user-1","tier":"pro","status":"active"}}`)
	for i := 0; i < 3; i++ {
		rr := deliver(t, router, body, Sign(testSecret, body))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "pro", rec.Subscription().Tier)
}
