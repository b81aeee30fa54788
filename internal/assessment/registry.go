// Package assessment implements the intake progression state machine: a fixed
// ordered catalogue of wizard steps and the evaluator that decides, for any
// request, whether the user may see a path or where they are redirected.
package assessment

import "fmt"

// Step is one entry of the assessment flow. Immutable; the catalogue is fixed
// at eight steps and reordering is a data-migration concern, not runtime
// behavior.
type Step struct {
	// ID is the stable step key used in submissions and audit events.
	ID string
	// Path is the canonical route for the step page.
	Path string
	// CompletionFlag is the boolean field on the intake record marking the
	// step done. The completed-at timestamp field is CompletionFlag + "At".
	CompletionFlag string
	// PayloadField is the top-level record field holding the step's payload.
	PayloadField string
	// Selection marks steps whose payload is a selection set and goes
	// through shape normalization (historical sequence vs. current map).
	Selection bool
	// Order is the 0-based position in the flow.
	Order int
}

// CompletedAtField names the timestamp field written alongside the flag.
func (s Step) CompletedAtField() string {
	return s.CompletionFlag + "At"
}

// Canonical non-step paths.
const (
	PathDashboard = "/dashboard"
	PathLogin     = "/login"
)

var publicPaths = map[string]struct{}{
	"/":        {},
	"/login":   {},
	"/signup":  {},
	"/terms":   {},
	"/privacy": {},
}

// IsPublicPath reports whether a path is reachable without authentication.
func IsPublicPath(path string) bool {
	_, ok := publicPaths[path]
	return ok
}

// steps is the single source of truth for order, paths, and flag names.
var steps = []Step{
	{ID: "user-details", Path: "/user-details", CompletionFlag: "userDetailsCompleted", PayloadField: "userDetails", Order: 0},
	{ID: "medical-screen", Path: "/medical-screen", CompletionFlag: "medicalScreeningCompleted", PayloadField: "medicalScreening", Order: 1},
	{ID: "outcome-measure", Path: "/outcome-measure", CompletionFlag: "outcomeMeasureCompleted", PayloadField: "outcomeMeasure", Order: 2},
	{ID: "pain-region", Path: "/pain-region", CompletionFlag: "painRegionsCompleted", PayloadField: "painRegions", Selection: true, Order: 3},
	{ID: "nerve-symptoms", Path: "/nerve-symptoms", CompletionFlag: "nerveSymptomsCompleted", PayloadField: "nerveSymptoms", Selection: true, Order: 4},
	{ID: "mobility-test", Path: "/mobility-test", CompletionFlag: "mobilityTestCompleted", PayloadField: "mobilityTest", Order: 5},
	{ID: "endurance-test", Path: "/endurance-test", CompletionFlag: "enduranceTestCompleted", PayloadField: "enduranceTest", Order: 6},
	{ID: "nerve-mobility-test", Path: "/nerve-mobility-test", CompletionFlag: "nerveMobilityTestCompleted", PayloadField: "nerveMobilityTest", Order: 7},
}

// Registry is the pure lookup table over the step catalogue.
type Registry struct {
	steps  []Step
	byPath map[string]int
	byID   map[string]int
}

func NewRegistry() *Registry {
	r := &Registry{
		steps:  steps,
		byPath: make(map[string]int, len(steps)),
		byID:   make(map[string]int, len(steps)),
	}
	for i, s := range steps {
		r.byPath[s.Path] = i
		r.byID[s.ID] = i
	}
	return r
}

// Len is the number of steps in the flow.
func (r *Registry) Len() int { return len(r.steps) }

// StepAt returns the step at the given 0-based order.
func (r *Registry) StepAt(index int) (Step, error) {
	if index < 0 || index >= len(r.steps) {
		return Step{}, fmt.Errorf("step index %d out of range [0,%d)", index, len(r.steps))
	}
	return r.steps[index], nil
}

// IndexOf resolves an assessment path to its step index. ok is false for
// paths outside the assessment flow (public, dashboard, unknown).
func (r *Registry) IndexOf(path string) (int, bool) {
	i, ok := r.byPath[path]
	return i, ok
}

// StepByID resolves a step key, used by submission handlers.
func (r *Registry) StepByID(id string) (Step, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Step{}, false
	}
	return r.steps[i], true
}

// Steps returns the ordered catalogue. The returned slice is a copy.
func (r *Registry) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}
