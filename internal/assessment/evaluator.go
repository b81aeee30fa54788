package assessment

import (
	"intake/internal/auth"
	"intake/internal/profile"
	dErrors "intake/pkg/domain-errors"
)

// Decision is the outcome of one progression evaluation. Either the request
// may render, or the caller must redirect. Decisions are ephemeral and never
// persisted.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Allowed permits rendering.
func Allowed() Decision { return Decision{Allow: true} }

// Redirect sends the user to path instead of rendering.
func Redirect(path string) Decision { return Decision{RedirectTo: path} }

// Evaluator computes the authoritative progression decision for a requested
// path. It is pure once its inputs (session, record) are resolved; all rules
// live here so per-page guards cannot drift.
type Evaluator struct {
	registry *Registry
}

func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate decides what the user may see when requesting path. record is nil
// when the user has no intake record yet; record-fetch failures are the
// caller's concern and arrive here as nil too.
//
// The rules, in order:
//  1. Unauthenticated requests reach only public paths; everything else
//     redirects to login.
//  2. No record yet: only the first step renders; any later step redirects
//     to the first.
//  3. assessmentCompleted is terminal: the wizard redirects to the
//     dashboard, everything else renders.
//  4. A step renders only when its predecessor is complete; strict linear
//     gating, regardless of later flags being (corruptly) true.
//  5. Any other protected path while the assessment is incomplete redirects
//     to where the user should resume.
func (e *Evaluator) Evaluate(path string, record *profile.Record, sess auth.Session) (Decision, error) {
	if !sess.Resolved {
		// Contract violation: the caller must wait for auth resolution, or
		// anonymous users would bounce to /login mid-handshake.
		return Decision{}, dErrors.New(dErrors.CodeInternal, "progression evaluated before auth state resolved")
	}

	if !sess.Authenticated {
		if IsPublicPath(path) {
			return Allowed(), nil
		}
		return Redirect(PathLogin), nil
	}

	if IsPublicPath(path) {
		return Allowed(), nil
	}

	stepIndex, isStep := e.registry.IndexOf(path)

	if record == nil {
		if isStep && stepIndex == 0 {
			return Allowed(), nil
		}
		first, err := e.registry.StepAt(0)
		if err != nil {
			return Decision{}, dErrors.Wrap(dErrors.CodeInternal, "empty step registry", err)
		}
		return Redirect(first.Path), nil
	}

	if record.AssessmentCompleted() {
		if isStep {
			return Redirect(PathDashboard), nil
		}
		return Allowed(), nil
	}

	if isStep {
		if stepIndex > 0 {
			prev, err := e.registry.StepAt(stepIndex - 1)
			if err != nil {
				return Decision{}, dErrors.Wrap(dErrors.CodeInternal, "step registry lookup failed", err)
			}
			if !record.Flag(prev.CompletionFlag) {
				return Redirect(e.FirstIncompleteStep(record)), nil
			}
		}
		return Allowed(), nil
	}

	// Non-public, non-assessment path (dashboard or unknown) with the
	// assessment still incomplete.
	return Redirect(e.FirstIncompleteStep(record)), nil
}

// FirstIncompleteStep is the canonical "where does this user resume" answer:
// the path of the first step in order whose completion flag is not true, or
// the dashboard when every step is done. The guard, the progress endpoint,
// and resumption links all go through here; there is deliberately no second
// implementation.
func (e *Evaluator) FirstIncompleteStep(record *profile.Record) string {
	for _, step := range e.registry.Steps() {
		if record == nil || !record.Flag(step.CompletionFlag) {
			return step.Path
		}
	}
	return PathDashboard
}
