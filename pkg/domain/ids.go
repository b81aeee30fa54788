// Package domain holds the small shared identifier types used across
// features. Identities come from the hosted auth provider and are opaque
// strings; we give them a named type so signatures stay honest.
package domain

import "fmt"

// UserID is the opaque identity string issued by the auth provider. It keys
// the per-user intake record in the document store.
type UserID string

// ParseUserID validates an incoming identity string. The provider guarantees
// opacity, not format, so the only rule is non-emptiness.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return "", fmt.Errorf("user id is empty")
	}
	return UserID(s), nil
}

func (u UserID) String() string { return string(u) }

// IsZero reports whether the ID is unset.
func (u UserID) IsZero() bool { return u == "" }
