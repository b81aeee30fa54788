package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"intake/pkg/platform/httputil"
)

// Public pages reachable without authentication. The SPA renders the real
// chrome; these endpoints exist so the path set is complete and the guard has
// a public surface to bypass.
func registerPublic(r chi.Router) {
	r.Get("/", page("home"))
	r.Get("/login", page("login"))
	r.Get("/signup", page("signup"))
	r.Get("/terms", page("terms"))
	r.Get("/privacy", page("privacy"))
}

func page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"page": name})
	}
}
