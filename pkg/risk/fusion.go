package risk

import (
	"fmt"

	"github.com/entrhq/aegis/pkg/types"
)

// Fuse combines the fast pass, the deep pass, and the domain verification
// overlay into one effective assessment.
//
// The lattice is escalation-only: the effective level is the maximum of all
// contributors, and no contributor can lower a level set by another. The
// recommended action is taken from whichever contributor produced the
// maximum level; ties prefer the more restrictive action.
//
// fast must be non-nil. deep is nil when the deep pass timed out; the fast
// level is then retained with degraded deep confidence, and a fast level of
// HIGH_RISK or above forbids a proceed recommendation — uncertain-and-risky
// always defaults to pause-and-ask. verification is nil when no identity
// check ran. failClosed escalates an unverified identity check to CAUTION
// instead of the default fail-open behavior.
func Fuse(fast, deep *types.RiskAssessment, verification *types.DomainVerificationResult, failClosed bool) *types.RiskAssessment {
	fused := &types.RiskAssessment{
		Level:              fast.Level,
		Reasons:            append([]string{}, fast.Reasons...),
		RecommendedAction:  fast.RecommendedAction,
		VoiceMessage:       fast.VoiceMessage,
		ConfirmationPhrase: fast.ConfirmationPhrase,
		Confidence: types.Confidence{
			Fast: fast.Confidence.Fast,
			Deep: types.ConfidenceDegraded,
		},
	}

	if deep != nil {
		fused.Confidence.Deep = deep.Confidence.Deep
		fused.Reasons = append(fused.Reasons, deep.Reasons...)

		// The deep pass is authoritative for narration and the
		// confirmation phrase when it arrives.
		if deep.VoiceMessage != "" {
			fused.VoiceMessage = deep.VoiceMessage
		}
		if deep.ConfirmationPhrase != "" {
			fused.ConfirmationPhrase = deep.ConfirmationPhrase
		}

		switch {
		case deep.Level > fused.Level:
			fused.Level = deep.Level
			fused.RecommendedAction = deep.RecommendedAction
		case deep.Level == fused.Level:
			fused.RecommendedAction = fused.RecommendedAction.MoreRestrictive(deep.RecommendedAction)
		}
	} else if fast.Level >= types.RiskHighRisk && fused.RecommendedAction == types.ActionProceed {
		// Deep pass missing on an already-risky action: never proceed.
		fused.RecommendedAction = types.ActionWarn
		fused.Reasons = append(fused.Reasons, "Deep classification unavailable; holding for confirmation.")
	}

	if verification != nil {
		applyVerification(fused, verification, failClosed)
	}

	return fused
}

// applyVerification folds a domain identity check into the fused
// assessment. A mismatch is an absolute DANGER override; an unverified
// check is fail-open (caveat only) unless failClosed escalates it.
func applyVerification(fused *types.RiskAssessment, v *types.DomainVerificationResult, failClosed bool) {
	switch v.Status {
	case types.VerificationMismatched:
		fused.Level = types.RiskDanger
		fused.RecommendedAction = types.ActionBlock
		fused.Reasons = append(fused.Reasons, fmt.Sprintf(
			"Domain mismatch: this site is %s but %s is actually at %s.",
			v.ObservedDomain, v.ClaimedServiceName, v.VerifiedDomain))
		fused.VoiceMessage = fmt.Sprintf(
			"Stop. This site claims to be %s, but %s is actually at %s, and we are on %s. This looks like an impostor site, so I will not continue here.",
			v.ClaimedServiceName, v.ClaimedServiceName, v.VerifiedDomain, v.ObservedDomain)

	case types.VerificationUnverified:
		fused.Reasons = append(fused.Reasons, "I could not verify this site's identity.")
		if failClosed {
			fused.Level = fused.Level.Max(types.RiskCaution)
			fused.RecommendedAction = fused.RecommendedAction.MoreRestrictive(types.ActionNarrate)
		}

	case types.VerificationMatched:
		// Identity confirmed; contributes nothing to the level.
	}
}
