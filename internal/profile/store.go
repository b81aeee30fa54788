package profile

import (
	"context"

	id "intake/pkg/domain"
)

// Store is the document-store collaborator. Get returns sentinel.ErrNotFound
// when the user has no record yet; any other error is an infrastructure
// failure the caller must treat distinctly (outage, not new-user state).
// Merge is a partial field-granular update and creates the record when
// absent. Last-write-wins at the field level is the only concurrency
// guarantee.
type Store interface {
	Get(ctx context.Context, userID id.UserID) (*Record, error)
	Merge(ctx context.Context, userID id.UserID, fields map[string]any) error
}
