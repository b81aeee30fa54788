// Package httptransport assembles the full router: middleware chain, public
// pages, the billing webhook, and the guarded wizard routes.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intake/internal/assessment/guard"
	assessmenthandler "intake/internal/assessment/handler"
	"intake/internal/billing"
	"intake/pkg/platform/httputil"
	"intake/pkg/platform/middleware/metadata"
	"intake/pkg/platform/middleware/requestid"
	"intake/pkg/platform/middleware/requesttime"
	"intake/pkg/platform/middleware/session"

	dErrors "intake/pkg/domain-errors"
)

// Deps carries the wired handlers and middleware dependencies.
type Deps struct {
	Logger     *slog.Logger
	Validator  session.TokenValidator
	Guard      *guard.Guard
	Assessment *assessmenthandler.Handler
	Billing    *billing.Handler
}

// NewRouter builds the chi router. Route shape:
//
//	public:   /, /login, /signup, /terms, /privacy, /healthz, /metrics
//	webhook:  POST /billing/webhook (signature-authenticated)
//	resume:   GET /assessment/progress (auth only, no completion gate)
//	guarded:  the eight step paths and /dashboard
//
// Unknown paths fall through to a guard-wrapped 404 so they obey the same
// completion gate as any other protected path.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(session.Resolve(d.Validator, d.Logger))

	registerPublic(r)
	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	d.Billing.Register(r)
	d.Assessment.RegisterProgress(r)

	r.Group(func(pr chi.Router) {
		pr.Use(d.Guard.Middleware)
		d.Assessment.Register(pr)
	})

	r.NotFound(d.Guard.Middleware(http.HandlerFunc(handleUnknownPath)).ServeHTTP)

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUnknownPath runs only when the guard allowed the request, which for
// an unrecognized path means an authenticated user with a completed
// assessment, or a public-path miss.
func handleUnknownPath(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no such page"))
}
