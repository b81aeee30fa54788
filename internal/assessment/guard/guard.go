// Package guard is the route-guard integration: one middleware that calls the
// progression evaluator before any protected handler renders and applies the
// decision. Pages never carry their own gating if-chains; this is the single
// enforcement point.
package guard

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"intake/internal/assessment"
	"intake/internal/assessment/metrics"
	"intake/internal/audit"
	"intake/internal/profile"
	dErrors "intake/pkg/domain-errors"
	"intake/pkg/platform/httputil"
	"intake/pkg/platform/middleware/session"
	"intake/pkg/platform/sentinel"
	"intake/pkg/requestcontext"
)

// Guard fetches the intake record, evaluates progression, and either lets the
// request through or redirects.
type Guard struct {
	evaluator *assessment.Evaluator
	store     profile.Store
	publisher *audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func New(evaluator *assessment.Evaluator, store profile.Store, publisher *audit.Publisher, logger *slog.Logger, metrics *metrics.Metrics) *Guard {
	return &Guard{
		evaluator: evaluator,
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Middleware wraps protected routes. Redirects use 303 with a JSON body so
// both browser navigation and API clients can follow them.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()
		sess := session.FromContext(r)

		var record *profile.Record
		if sess.Authenticated {
			rec, err := g.store.Get(ctx, sess.UserID)
			switch {
			case err == nil:
				record = rec
			case errors.Is(err, sentinel.ErrNotFound):
				// Genuinely new user; routing treats this as absent.
			default:
				// Outage, not new-user state: same routing outcome, but
				// logged and counted so operators can tell them apart.
				g.metrics.IncrementRecordFetchFailure()
				g.logger.ErrorContext(ctx, "record fetch failed, routing as absent",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", sess.UserID,
					"path", r.URL.Path,
					"error", err,
				)
				g.publisher.Emit(ctx, audit.Event{
					UserID: sess.UserID,
					Action: audit.ActionRecordFetchFailed,
					Path:   r.URL.Path,
					Reason: err.Error(),
				})
			}
		}

		decision, err := g.evaluator.Evaluate(r.URL.Path, record, sess)
		g.metrics.ObserveEvaluateLatency(time.Since(start))
		if err != nil {
			g.logger.ErrorContext(ctx, "progression evaluation failed",
				"request_id", requestcontext.RequestID(ctx),
				"path", r.URL.Path,
				"error", err,
			)
			httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "progression evaluation failed", err))
			return
		}

		if decision.Allow {
			g.metrics.IncrementDecision(r.URL.Path, "allow")
			next.ServeHTTP(w, r)
			return
		}

		g.metrics.IncrementDecision(r.URL.Path, "redirect")
		if sess.Authenticated {
			g.publisher.Emit(ctx, audit.Event{
				UserID:   sess.UserID,
				Action:   audit.ActionRedirectIssued,
				Path:     r.URL.Path,
				Decision: decision.RedirectTo,
			})
		}

		w.Header().Set("Location", decision.RedirectTo)
		httputil.WriteJSON(w, http.StatusSeeOther, map[string]string{
			"redirect": decision.RedirectTo,
		})
	})
}
