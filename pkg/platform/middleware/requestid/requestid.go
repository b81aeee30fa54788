// Package requestid assigns a correlation ID to every request. The ID is
// echoed in the X-Request-ID response header and attached to the context for
// log correlation.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"intake/pkg/requestcontext"
)

const headerName = "X-Request-ID"

// Middleware reuses an inbound X-Request-ID when present so IDs survive
// proxies, otherwise it mints a fresh UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerName)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerName, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
