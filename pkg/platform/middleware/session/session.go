// Package session resolves the caller's identity before any routing decision
// runs. Unlike a classic RequireAuth middleware it never rejects: anonymous
// and invalid-token requests continue as a resolved anonymous session, and the
// assessment guard decides whether that means a login redirect. This is what
// guarantees progression is only ever evaluated against resolved auth state.
package session

import (
	"log/slog"
	"net/http"
	"strings"

	"intake/internal/auth"
	id "intake/pkg/domain"
	"intake/pkg/requestcontext"
)

// TokenValidator verifies a bearer token and yields its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// Resolve returns middleware that authenticates the request if a bearer token
// is present and marks the session resolved either way.
func Resolve(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			const bearerPrefix = "Bearer "
			authHeader := r.Header.Get("Authorization")
			if token, ok := strings.CutPrefix(authHeader, bearerPrefix); ok {
				claims, err := validator.ValidateToken(token)
				if err != nil {
					// Invalid token downgrades to anonymous rather than 401:
					// the guard will route to /login, matching how expired
					// sessions behave in the wizard.
					logger.WarnContext(ctx, "session not established - invalid token",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				} else {
					ctx = requestcontext.WithUserID(ctx, id.UserID(claims.UserID))
				}
			}

			ctx = requestcontext.WithAuthResolved(ctx, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext rebuilds the session value from a resolved request context.
func FromContext(r *http.Request) auth.Session {
	ctx := r.Context()
	if !requestcontext.AuthResolved(ctx) {
		return auth.Session{}
	}
	userID := requestcontext.UserID(ctx)
	if userID.IsZero() {
		return auth.Anonymous()
	}
	return auth.ForUser(userID)
}
