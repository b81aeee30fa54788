// Package audit records the operationally interesting moments of the intake
// flow: accepted submissions, issued redirects, store failures, subscription
// changes. Events are transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"time"

	id "intake/pkg/domain"
)

// Action identifies what happened.
type Action string

const (
	ActionStepCompleted       Action = "step_completed"
	ActionRedirectIssued      Action = "redirect_issued"
	ActionRecordFetchFailed   Action = "record_fetch_failed"
	ActionSubscriptionUpdated Action = "subscription_updated"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	UserID    id.UserID `json:"user_id"`
	Action    Action    `json:"action"`
	// Path is the requested route for routing events, the step path for
	// submissions.
	Path string `json:"path,omitempty"`
	// Decision is the routing outcome ("allow" or the redirect target).
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
	// Request correlation, filled by the publisher from context when empty.
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists events for inspection. Implementations must be safe for
// concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, userID id.UserID) ([]Event, error)
}
