package testutil

import (
	"net/http"

	id "intake/pkg/domain"
	"intake/pkg/requestcontext"
)

// WithResolvedUser marks the request's session as resolved and authenticated,
// simulating what the session middleware does for a valid bearer token.
func WithResolvedUser(req *http.Request, userID string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), id.UserID(userID))
	ctx = requestcontext.WithAuthResolved(ctx, true)
	return req.WithContext(ctx)
}

// WithResolvedAnonymous marks the session as resolved with no identity.
func WithResolvedAnonymous(req *http.Request) *http.Request {
	return req.WithContext(requestcontext.WithAuthResolved(req.Context(), true))
}
