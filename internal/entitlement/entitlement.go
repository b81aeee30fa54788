// Package entitlement answers subscription-gating questions from fields the
// payment webhook maintains on the intake record. It performs no webhook
// verification and no writes; it is a pure read over subscription state.
package entitlement

import (
	"time"

	"intake/internal/profile"
)

// Tier is the effective subscription level.
type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

// Gated dashboard features.
const (
	FeatureDashboard       = "dashboard"
	FeatureProgramLibrary  = "program-library"
	FeatureClinicianReview = "clinician-review"
)

// featureTiers is the minimum tier per feature. Unknown features are denied.
var featureTiers = map[string]Tier{
	FeatureDashboard:       TierFree,
	FeatureProgramLibrary:  TierPro,
	FeatureClinicianReview: TierPro,
}

// UserTier derives the effective tier at the given time. Expired or
// non-active subscriptions degrade to free. Legacy records carry only the
// isPro flag with no subscription sub-record; those stay pro until a webhook
// writes the richer shape.
func UserTier(record *profile.Record, now time.Time) Tier {
	if record == nil {
		return TierFree
	}
	sub := record.Subscription()
	if sub.Tier == "" && sub.Status == "" {
		if record.Flag(profile.FieldIsPro) {
			return TierPro
		}
		return TierFree
	}
	if !subscriptionActive(sub, now) {
		return TierFree
	}
	if Tier(sub.Tier) == TierPro {
		return TierPro
	}
	return TierFree
}

// IsPro reports whether the user currently has the paid tier.
func IsPro(record *profile.Record, now time.Time) bool {
	return UserTier(record, now) == TierPro
}

// HasFeatureAccess reports whether the user's tier unlocks the feature.
func HasFeatureAccess(record *profile.Record, feature string, now time.Time) bool {
	required, ok := featureTiers[feature]
	if !ok {
		return false
	}
	if required == TierFree {
		return true
	}
	return UserTier(record, now) == required
}

func subscriptionActive(sub profile.Subscription, now time.Time) bool {
	switch sub.Status {
	case "active", "trialing":
	default:
		return false
	}
	// Zero expiry means the processor did not send one; treat as open-ended.
	if sub.CurrentPeriodEnd.IsZero() {
		return true
	}
	return sub.CurrentPeriodEnd.After(now)
}
