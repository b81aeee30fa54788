// Package auth models the hosted auth provider as a narrow collaborator: it
// verifies bearer tokens and resolves a per-request session. It never decides
// routing; that belongs to the assessment guard.
package auth

import (
	id "intake/pkg/domain"
)

// Session is the resolved authentication state for one request. Resolved
// distinguishes "we checked and found nobody" from "we have not checked yet";
// progression must never be evaluated against an unresolved session.
type Session struct {
	UserID        id.UserID
	Authenticated bool
	Resolved      bool
}

// Anonymous is a resolved session with no identity.
func Anonymous() Session {
	return Session{Resolved: true}
}

// ForUser is a resolved, authenticated session.
func ForUser(userID id.UserID) Session {
	return Session{UserID: userID, Authenticated: true, Resolved: true}
}
