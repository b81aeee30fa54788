// Package profile owns the per-user intake record: a schemaless field map
// persisted in the document store, merged incrementally as the wizard
// progresses, and never deleted by this service.
package profile

import (
	"time"
)

// Well-known top-level field names on the intake record.
const (
	FieldAssessmentCompleted = "assessmentCompleted"
	FieldSubscription        = "subscription"
	FieldIsPro               = "isPro"
)

// Subscription sub-record field names.
const (
	SubFieldTier             = "tier"
	SubFieldStatus           = "status"
	SubFieldCurrentPeriodEnd = "currentPeriodEnd"
)

// Record is a read view over the stored field map. Mutation happens only
// through Store.Merge; handlers and services never write fields directly.
type Record struct {
	fields map[string]any
}

// NewRecord wraps a field map. A nil map yields an empty record.
func NewRecord(fields map[string]any) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Record{fields: fields}
}

// Fields exposes the underlying map for serialization. Callers must not
// mutate it.
func (r *Record) Fields() map[string]any {
	return r.fields
}

// Field returns a raw field value.
func (r *Record) Field(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Flag reports whether a boolean field is present and true. Absent fields and
// non-boolean values are falsy; legacy records carry both.
func (r *Record) Flag(name string) bool {
	v, ok := r.fields[name].(bool)
	return ok && v
}

// AssessmentCompleted reports the terminal override flag.
func (r *Record) AssessmentCompleted() bool {
	return r.Flag(FieldAssessmentCompleted)
}

// Selections reads a selection payload field in canonical map form,
// normalizing the historical sequence shape on the way out. ok is false when
// the stored value is in neither recognized shape; the result is then empty
// rather than an error, and the caller logs.
func (r *Record) Selections(name string) (map[string]bool, bool) {
	return NormalizeSelections(r.fields[name])
}

// Subscription reads the billing sub-record. Missing or malformed fields
// degrade to zero values; entitlement checks treat those as free tier.
func (r *Record) Subscription() Subscription {
	var sub Subscription
	m, ok := r.fields[FieldSubscription].(map[string]any)
	if !ok {
		return sub
	}
	sub.Tier, _ = m[SubFieldTier].(string)
	sub.Status, _ = m[SubFieldStatus].(string)
	if raw, ok := m[SubFieldCurrentPeriodEnd].(string); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			sub.CurrentPeriodEnd = t
		}
	}
	return sub
}

// Subscription is the billing state written by the payment webhook and read
// by entitlement checks. This service never writes it outside the webhook.
type Subscription struct {
	Tier             string
	Status           string
	CurrentPeriodEnd time.Time
}

// MergeFields merges src into dst at field granularity and returns dst.
// Nested maps merge recursively so a subscription update cannot clobber
// sibling keys; every other value type overwrites. This mirrors the merge
// semantics the document store guarantees.
func MergeFields(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = MergeFields(dstMap, srcMap)
			continue
		}
		if srcIsMap {
			dst[k] = MergeFields(map[string]any{}, srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}

// CloneFields deep-copies a field map so store implementations never hand out
// aliased state.
func CloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if m, ok := v.(map[string]any); ok {
			out[k] = CloneFields(m)
			continue
		}
		out[k] = v
	}
	return out
}
